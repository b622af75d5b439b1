package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/lfb-cli/internal/boundary"
	"github.com/sells-group/lfb-cli/internal/dataset"
	"github.com/sells-group/lfb-cli/internal/enrich"
	"github.com/sells-group/lfb-cli/internal/filter"
	"github.com/sells-group/lfb-cli/internal/stats"
)

var (
	reportYears  []int
	reportMonths []int
	reportTypes  []string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print response-time reports to the terminal",
	Long: `Reads the analysis snapshot, applies the shared selection flags and
prints one of the report views. Statistics with no qualifying rows
print as n/a rather than zero.`,
}

func init() {
	reportCmd.PersistentFlags().IntSliceVar(&reportYears, "years", nil, "restrict to calendar years (e.g. 2021,2022)")
	reportCmd.PersistentFlags().IntSliceVar(&reportMonths, "months", nil, "restrict to months 1-12")
	reportCmd.PersistentFlags().StringSliceVar(&reportTypes, "types", nil, "restrict to incident types (case-insensitive)")
	rootCmd.AddCommand(reportCmd)
}

// loadSubset reads, enriches and filters the snapshot per the shared
// report flags.
func loadSubset(ctx context.Context) (*filter.Subset, error) {
	if err := cfg.Validate("report"); err != nil {
		return nil, err
	}

	ref, err := boundary.Load(ctx, cfg.Data.BoundaryPath, cfg.Data.PopulationPath)
	if err != nil {
		return nil, err
	}

	provider := dataset.NewProvider(cfg.Data.SnapshotPath, enrich.Func(enrich.Options{
		MaxPlausibleSeconds: cfg.Clean.MaxPlausibleSeconds,
		Reference:           ref,
	}))
	ds, err := provider.Load(ctx)
	if err != nil {
		return nil, err
	}

	return filter.Apply(ds, filter.Selection{
		Years:  reportYears,
		Months: reportMonths,
		Types:  reportTypes,
	})
}

func printHeading(title string) {
	fmt.Println(title)
	fmt.Println(strings.Repeat("-", 72))
}

// printSelection echoes any active filters so a narrowed report is
// never mistaken for the full dataset.
func printSelection() {
	var parts []string
	if len(reportYears) > 0 {
		parts = append(parts, fmt.Sprintf("years %s", joinInts(reportYears)))
	}
	if len(reportMonths) > 0 {
		parts = append(parts, fmt.Sprintf("months %s", joinInts(reportMonths)))
	}
	if len(reportTypes) > 0 {
		parts = append(parts, fmt.Sprintf("types %s", strings.Join(reportTypes, ",")))
	}
	if len(parts) > 0 {
		fmt.Printf("Selection: %s\n\n", strings.Join(parts, "; "))
	}
}

func joinInts(vals []int) string {
	strs := make([]string, len(vals))
	for i, v := range vals {
		strs[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(strs, ",")
}

// fmtValue renders a statistic with the given number of decimals, or
// n/a when undefined.
func fmtValue(v stats.Value, digits int) string {
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", digits, f)
}

// fmtPct renders a 0..1 rate as a percentage.
func fmtPct(v stats.Value) string {
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", f*100)
}

// fmtMin renders a minutes statistic with its unit.
func fmtMin(v stats.Value) string {
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.1f min", f)
}

// fmtSec renders a seconds statistic with its unit.
func fmtSec(v stats.Value) string {
	f, ok := v.Float()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.0f s", f)
}
