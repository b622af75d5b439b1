package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/lfb-cli/internal/report"
)

var reportOverviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Headline attendance KPIs for the selection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sub, err := loadSubset(cmd.Context())
		if err != nil {
			return err
		}
		ov, err := report.ComputeOverview(sub)
		if err != nil {
			return err
		}

		printSelection()
		printHeading("Attendance overview")
		fmt.Printf("%-22s %d\n", "Incidents", ov.TotalIncidents)
		fmt.Printf("%-22s %d of %d\n", "Defined responses", ov.Responses.Defined, ov.Responses.Total)
		fmt.Printf("%-22s %s\n", "Median response", fmtMin(ov.MedianResponseMin))
		fmt.Printf("%-22s %s\n", "Mean response", fmtMin(ov.MeanResponseMin))
		fmt.Printf("%-22s %s\n", "90th percentile", fmtMin(ov.P90ResponseMin))
		fmt.Printf("%-22s %s\n", "Within 6 minutes", fmtPct(ov.Within6Rate))
		fmt.Printf("%-22s %s\n", "Within 10 minutes", fmtPct(ov.Within10Rate))
		fmt.Printf("%-22s %s\n", "Over 10 minutes", fmtPct(ov.Over10Share))
		fmt.Printf("%-22s %s\n", "Over 15 minutes", fmtPct(ov.Over15Share))
		fmt.Printf("%-22s %s\n", "Mean-median gap", fmtSec(ov.MeanMedianGapSec))

		fmt.Println()
		printHeading("Response bands")
		for _, b := range ov.Bands {
			fmt.Printf("%-10s %8d  %s\n", b.Label, b.Count, fmtPct(b.Share))
		}

		fmt.Println()
		printHeading("Incident mix")
		for _, m := range ov.Mix {
			fmt.Printf("%-22s %8d  %-7s median %s\n",
				m.Type, m.Count, fmtPct(m.Share), fmtMin(m.MedianResponseMin))
		}

		c := ov.Cleaning
		fmt.Println()
		printHeading("Cleaning")
		fmt.Printf("%-22s %d\n", "Rows loaded", c.TotalRows)
		fmt.Printf("%-22s %d\n", "Responses derived", c.ResponseDerived)
		fmt.Printf("%-22s %d\n", "Missing both legs", c.MissingBoth)
		fmt.Printf("%-22s %d / %d / %d\n", "Implausible t/t/r",
			c.ImplausibleTurnout, c.ImplausibleTravel, c.ImplausibleResponse)
		fmt.Printf("%-22s %d\n", "Delay recoded", c.DelayRecoded)
		fmt.Printf("%-22s %d\n", "Second pumps", c.SecondPumpPresent)

		return nil
	},
}

func init() {
	reportCmd.AddCommand(reportOverviewCmd)
}
