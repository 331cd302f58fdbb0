package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/headline-goat/sigtable/internal/export"
	"github.com/headline-goat/sigtable/internal/store"
	"github.com/headline-goat/sigtable/internal/ttable"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <title>",
	Short: "Export a published table",
	Long: `Export a published table in CSV, JSON or Parquet format.

Examples:
  sigt export Engagement --format csv > engagement.csv
  sigt export Engagement --format parquet -o engagement.parquet`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv, json or parquet)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	title := args[0]

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	return withStore(func(s *store.SQLiteStore) error {
		t, err := s.GetPublished(cmd.Context(), title)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("table '%s' not found", title)
		}
		if err != nil {
			return fmt.Errorf("failed to get table: %w", err)
		}

		payload, err := ttable.DecodePayload(t.Payload)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		if err := export.Write(w, format, payload); err != nil {
			return err
		}

		if exportOutput != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", len(payload.Rows), exportOutput)
		}
		return nil
	})
}
