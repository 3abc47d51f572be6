package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"skillcore/internal/archive"
	"skillcore/internal/blob"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export state and history to the configured blob store",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		skipHistory, _ := cmd.Flags().GetBool("no-history")

		svc, err := openService(cmd)
		if err != nil {
			return err
		}
		blobs, err := blob.Open(cmd.Context())
		if err != nil {
			return fmt.Errorf("open blob store: %w", err)
		}
		exporter := archive.NewExporter(svc.Store(), blobs)

		info, err := exporter.ExportSnapshot(cmd.Context())
		if err != nil {
			return fmt.Errorf("export snapshot: %w", err)
		}
		fmt.Printf("Snapshot: %s (%d bytes)\n", info.Key, info.Size)

		if !skipHistory {
			info, err = exporter.ExportHistory(cmd.Context(), archive.Format(format))
			if err != nil {
				return fmt.Errorf("export history: %w", err)
			}
			fmt.Printf("History:  %s (%d bytes)\n", info.Key, info.Size)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", string(archive.FormatCSV), "History format: csv|json")
	exportCmd.Flags().Bool("no-history", false, "Skip the history artifact")
}
