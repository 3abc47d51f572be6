package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"skillcore/pkg/domain"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent changes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		entries := svc.RecentHistory(limit)
		if len(entries) == 0 {
			fmt.Println("No recorded changes.")
			return nil
		}

		fmt.Printf("%-36s  %-20s  %-22s  %-7s  %s\n", "ID", "Timestamp", "Entity", "Action", "Label")
		fmt.Println(strings.Repeat("─", 110))
		for _, entry := range entries {
			label := entry.Label
			if entry.Undone {
				label += " (undone)"
			}
			if entry.Cascade.Defined() {
				if snapshot, err := domain.DecodeChangePayload[domain.CascadeSnapshot](entry.Cascade); err == nil && !snapshot.IsEmpty() {
					label += fmt.Sprintf(" [+%d dependents]", snapshot.Size())
				}
			}
			fmt.Printf("%-36s  %-20s  %-22s  %-7s  %s\n",
				entry.ID,
				entry.Timestamp.UTC().Format(time.RFC3339),
				entry.Entity,
				entry.Action,
				label,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum entries to show (0 shows all)")
}
