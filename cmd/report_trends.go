package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/lfb-cli/internal/report"
)

var reportTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Monthly, hourly and yearly response profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sub, err := loadSubset(cmd.Context())
		if err != nil {
			return err
		}
		tr, err := report.ComputeTrends(sub)
		if err != nil {
			return err
		}

		printSelection()
		printHeading("Monthly series")
		fmt.Printf("%-10s %10s %12s %10s\n", "Month", "Incidents", "Median", "Within 6")
		for _, p := range tr.Monthly {
			fmt.Printf("%-10s %10d %12s %10s\n",
				p.Label, p.Count, fmtMin(p.MedianResponseMin), fmtPct(p.Within6Rate))
		}

		fmt.Println()
		printHeading("Hour of day")
		fmt.Printf("%-10s %10s %12s %10s\n", "Hour", "Incidents", "Median", "Within 6")
		for _, p := range tr.Hourly {
			fmt.Printf("%-10s %10d %12s %10s\n",
				p.Label, p.Count, fmtMin(p.MedianResponseMin), fmtPct(p.Within6Rate))
		}

		fmt.Println()
		printHeading("Yearly totals")
		fmt.Printf("%-10s %10s %12s %10s\n", "Year", "Incidents", "Median", "Within 6")
		for _, p := range tr.Yearly {
			fmt.Printf("%-10s %10d %12s %10s\n",
				p.Label, p.Count, fmtMin(p.MedianResponseMin), fmtPct(p.Within6Rate))
		}

		fmt.Println()
		if tr.BusiestMonth != "" {
			fmt.Printf("Busiest month: %s\n", tr.BusiestMonth)
		}
		if tr.SlowestMonth != "" {
			fmt.Printf("Slowest month: %s\n", tr.SlowestMonth)
		}
		if tr.SlowestHour != "" {
			fmt.Printf("Slowest hour:  %s:00\n", tr.SlowestHour)
		}
		if tr.FastestHour != "" {
			fmt.Printf("Fastest hour:  %s:00\n", tr.FastestHour)
		}
		return nil
	},
}

func init() {
	reportCmd.AddCommand(reportTrendsCmd)
}
