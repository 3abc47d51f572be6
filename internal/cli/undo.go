package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var undoCmd = &cobra.Command{
	Use:   "undo <entry-id>",
	Short: "Revert a recorded change",
	Long:  "Revert a change-history entry. Undoing a delete restores the record together with every dependent captured at delete time.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		if err := svc.Undo(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Reverted change %s\n", args[0])
		return nil
	},
}
