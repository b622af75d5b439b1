package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/lfb-cli/internal/report"
)

var reportDelaysCmd = &cobra.Command{
	Use:   "delays",
	Short: "Recorded causes behind responses over six minutes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sub, err := loadSubset(cmd.Context())
		if err != nil {
			return err
		}
		dr, err := report.ComputeDelays(sub)
		if err != nil {
			return err
		}

		printSelection()
		printHeading("Delay causes")
		fmt.Printf("%-22s %d of %d rows\n", "Defined responses", dr.Scope.Defined, dr.Scope.Total)
		fmt.Printf("%-22s %d\n", "Over 6 minutes", dr.Over6Count)
		fmt.Printf("%-22s %s\n", "Not held up share", fmtPct(dr.NotHeldUpShare))

		fmt.Println()
		fmt.Printf("%-36s %8s %8s %10s %12s\n",
			"Cause", "Count", "Over 6", "Of over-6", "Median")
		for _, d := range dr.Top {
			fmt.Printf("%-36s %8d %8d %10s %12s\n",
				d.Code, d.Count, d.CountOver6, fmtPct(d.ShareOfOver6), fmtSec(d.MedianResponse))
		}
		if dr.Others != nil {
			label := fmt.Sprintf("Others (%d codes)", dr.Others.Codes)
			fmt.Printf("%-36s %8d %8d %10s %12s\n",
				label, dr.Others.Count, dr.Others.CountOver6, fmtPct(dr.Others.ShareOfOver6), "n/a")
		}
		return nil
	},
}

func init() {
	reportCmd.AddCommand(reportDelaysCmd)
}
