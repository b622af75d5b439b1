// Package report composes the aggregation engine's statistics into the
// payloads the CLI commands and the query API present: headline KPIs,
// temporal profiles, borough tables and rankings, delay breakdowns and
// the borough-level regression suite.
package report

import (
	"github.com/sells-group/lfb-cli/internal/stats"
)

// minutes rescales a seconds figure for presentation.
func minutes(v stats.Value) stats.Value {
	f, ok := v.Float()
	if !ok {
		return stats.Undefined()
	}
	return stats.Defined(f / 60)
}
