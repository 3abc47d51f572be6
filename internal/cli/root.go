// Package cli implements the skillcore command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skillcore/internal/core"
)

var rootCmd = &cobra.Command{
	Use:   "skillcore",
	Short: "Skill assessment engine",
	Long:  "Skillcore tracks employee skill assessments, aggregates them over a skill taxonomy, and keeps an undoable change history.",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("driver", "", "Storage driver: memory|sqlite|postgres (overrides SKILLCORE_STORAGE_DRIVER)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides SKILLCORE_SQLITE_PATH)")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(mentorsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(seedCmd)
}

// openService builds a service on the configured storage backend. Flags win
// over environment variables.
func openService(cmd *cobra.Command) (*core.Service, error) {
	if driver, _ := cmd.Flags().GetString("driver"); driver != "" {
		if err := os.Setenv("SKILLCORE_STORAGE_DRIVER", driver); err != nil {
			return nil, err
		}
	}
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		if err := os.Setenv("SKILLCORE_SQLITE_PATH", path); err != nil {
			return nil, err
		}
	}
	store, err := core.OpenPersistentStore()
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return core.NewService(store), nil
}
