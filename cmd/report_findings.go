package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/lfb-cli/internal/report"
)

var reportFindingsCmd = &cobra.Command{
	Use:   "findings",
	Short: "Narrative takeaways for the selection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sub, err := loadSubset(cmd.Context())
		if err != nil {
			return err
		}
		findings, err := report.ComputeFindings(sub, cfg.Analysis.WeightedBoroughs)
		if err != nil {
			return err
		}

		printSelection()
		printHeading("Key findings")
		if len(findings) == 0 {
			fmt.Println("No findings: the selection has no defined statistics.")
			return nil
		}
		for i, f := range findings {
			fmt.Printf("%d. %s\n   %s\n", i+1, f.Title, f.Detail)
			if i < len(findings)-1 {
				fmt.Println()
			}
		}
		return nil
	},
}

func init() {
	reportCmd.AddCommand(reportFindingsCmd)
}
