package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var gapsCmd = &cobra.Command{
	Use:   "gaps <employee-id>",
	Short: "List skills below an employee's role targets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetRole, _ := cmd.Flags().GetString("role")

		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		gaps, err := svc.SkillGaps(cmd.Context(), args[0], targetRole)
		if err != nil {
			return err
		}
		if len(gaps) == 0 {
			fmt.Println("No gaps: all role targets are met.")
			return nil
		}

		fmt.Printf("%-40s  %7s  %7s  %5s\n", "Skill", "Current", "Target", "Gap")
		fmt.Println(strings.Repeat("─", 66))
		for _, gap := range gaps {
			fmt.Printf("%-40s  %7d  %7d  %5d\n", gap.SkillName, gap.Current, gap.Target, gap.Gap)
		}
		fmt.Printf("\n%d gaps\n", len(gaps))
		return nil
	},
}

func init() {
	gapsCmd.Flags().String("role", "", "Evaluate against this role id instead of the employee's assigned roles")
}
