package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"skillcore/internal/core"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate assessment levels per category",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")
		employees, _ := cmd.Flags().GetStringSlice("employee")
		categoryID, _ := cmd.Flags().GetString("category")

		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		report, err := svc.CategoryReport(cmd.Context(), core.AggregateMode(mode), employees)
		if err != nil {
			return err
		}
		if categoryID != "" {
			filtered := report[:0]
			for _, row := range report {
				if row.ID == categoryID {
					filtered = append(filtered, row)
				}
			}
			report = filtered
		}

		fmt.Printf("%-40s  %s\n", "Category", mode)
		fmt.Println(strings.Repeat("─", 50))
		for _, row := range report {
			if row.Defined {
				fmt.Printf("%-40s  %d\n", row.Name, row.Value)
			} else {
				fmt.Printf("%-40s  -\n", row.Name)
			}
		}
		fmt.Printf("\n%d categories\n", len(report))
		return nil
	},
}

func init() {
	reportCmd.Flags().String("mode", string(core.ModeAverage), "Aggregation mode: average|maximum|fulfillment")
	reportCmd.Flags().StringSlice("employee", nil, "Restrict to employee ids (repeatable)")
	reportCmd.Flags().String("category", "", "Restrict to a single category id")
}
