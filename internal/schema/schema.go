// Package schema defines the snapshot column contract shared by the
// snapshot builder and the record loader.
package schema

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Snapshot column names, one row per incident (first pump only).
const (
	ColIncidentNumber    = "incident_number"
	ColCallTimestamp     = "call_timestamp"
	ColIncidentGroup     = "incident_group"
	ColBorough           = "borough"
	ColFirstPumpSeconds  = "first_pump_seconds"
	ColTurnoutSeconds    = "turnout_seconds"
	ColTravelSeconds     = "travel_seconds"
	ColSecondPumpSeconds = "second_pump_seconds"
	ColDelayCode         = "delay_code"
)

// TimeLayout is the wall-clock layout used for call_timestamp values.
const TimeLayout = "2006-01-02 15:04:05"

// ErrSchema indicates a dataset or subset that violates the column contract.
var ErrSchema = eris.New("dataset schema mismatch")

// Columns returns the snapshot header in canonical order.
func Columns() []string {
	return []string{
		ColIncidentNumber,
		ColCallTimestamp,
		ColIncidentGroup,
		ColBorough,
		ColFirstPumpSeconds,
		ColTurnoutSeconds,
		ColTravelSeconds,
		ColSecondPumpSeconds,
		ColDelayCode,
	}
}

// Index maps trimmed, lowercased header names to their positions.
func Index(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

// ValidateHeader checks that every canonical column is present.
func ValidateHeader(header []string) error {
	idx := Index(header)
	var missing []string
	for _, col := range Columns() {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return eris.Wrapf(ErrSchema, "missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
