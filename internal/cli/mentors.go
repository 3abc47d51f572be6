package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mentorsCmd = &cobra.Command{
	Use:   "mentors <skill-id>",
	Short: "List employees assessed at the top level for a skill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		mentors, err := svc.PotentialMentors(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(mentors) == 0 {
			fmt.Println("No potential mentors for this skill.")
			return nil
		}
		for _, mentor := range mentors {
			fmt.Printf("%s  %s\n", mentor.ID, mentor.Name)
		}
		fmt.Printf("\n%d potential mentors\n", len(mentors))
		return nil
	},
}
