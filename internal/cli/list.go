package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/headline-goat/sigtable/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List published tables",
	Long:  `List every published significance table with its row count and the run that published it.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		tables, err := s.ListPublished(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}

		if len(tables) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tables published yet.")
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Compute some with:")
			fmt.Fprintln(cmd.OutOrStdout(), "  sigt run --plan plan.yaml")
			return nil
		}

		return renderPublished(cmd.OutOrStdout(), tables)
	})
}
