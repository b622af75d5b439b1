package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/lfb-cli/internal/report"
	"github.com/sells-group/lfb-cli/internal/stats"
)

var reportBoroughsCmd = &cobra.Command{
	Use:   "boroughs",
	Short: "Borough league table and the Inner/Outer contrast",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sub, err := loadSubset(cmd.Context())
		if err != nil {
			return err
		}
		br, err := report.ComputeBoroughs(sub)
		if err != nil {
			return err
		}

		printSelection()
		printHeading("Borough table")
		fmt.Printf("%-24s %5s %10s %10s %10s %10s\n",
			"Borough", "Ring", "Incidents", "Median", "Within 6", "No delay")
		for _, b := range br.Table {
			ring := "Outer"
			if b.Inner {
				ring = "Inner"
			}
			fmt.Printf("%-24s %5s %10d %10s %10s %10s\n",
				b.Name, ring, b.Scope.Total,
				fmtSec(b.MedianResponse), fmtPct(b.Within6Rate), fmtPct(b.NotHeldUpShare))
		}

		fmt.Println()
		printHeading("Rankings")
		printRanking("Fastest median", br.FastestMedian, fmtSec)
		printRanking("Slowest median", br.SlowestMedian, fmtSec)
		printRanking("Best compliance", br.BestCompliance, fmtPct)
		printRanking("Worst compliance", br.WorstCompliance, fmtPct)
		fmt.Printf("%-18s %s\n", "Median spread", fmtSec(br.SpreadSeconds))

		fmt.Println()
		printHeading("Inner versus Outer London")
		fmt.Printf("%-18s %d boroughs, mean of medians %s\n",
			"Inner", br.Rings.InnerBoroughs, fmtSec(br.Rings.InnerMeanOfMedians))
		fmt.Printf("%-18s %d boroughs, mean of medians %s\n",
			"Outer", br.Rings.OuterBoroughs, fmtSec(br.Rings.OuterMeanOfMedians))
		fmt.Printf("%-18s %s\n", "Gap", fmtSec(br.Rings.GapSeconds))
		if br.RingVariance.F.Defined() {
			fmt.Printf("%-18s F=%s (df %d,%d), p=%s\n", "Variance test",
				fmtValue(br.RingVariance.F, 3), br.RingVariance.DF1, br.RingVariance.DF2,
				fmtValue(br.RingVariance.PValue, 3))
		}

		if len(br.SlowestSplits) > 0 {
			fmt.Println()
			printHeading("Slowest boroughs: turnout versus travel")
			fmt.Printf("%-24s %10s %10s %10s %12s\n",
				"Borough", "Median", "Turnout", "Travel", "Travel share")
			for _, s := range br.SlowestSplits {
				fmt.Printf("%-24s %10s %10s %10s %12s\n",
					s.Borough, fmtMin(s.MedianResponseMin),
					fmtSec(s.MedianTurnoutSec), fmtSec(s.MedianTravelSec), fmtPct(s.TravelShare))
			}
		}
		return nil
	},
}

func printRanking(label string, r *report.Ranking, render func(stats.Value) string) {
	if r == nil {
		return
	}
	fmt.Printf("%-18s %s (%s)\n", label, r.Borough, render(r.Value))
}

func init() {
	reportCmd.AddCommand(reportBoroughsCmd)
}
