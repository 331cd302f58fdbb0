package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/headline-goat/sigtable/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [title]",
	Short: "Show publish attempts",
	Long: `Show recent publish attempts, including tables that were not replaced
because the new pass produced fewer rows than the published one.

Without a title, attempts for every table are shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of attempts to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	var title string
	if len(args) == 1 {
		title = args[0]
	}

	return withStore(func(s *store.SQLiteStore) error {
		records, err := s.ListOutcomes(cmd.Context(), title, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}

		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No publish attempts recorded.")
			return nil
		}
		return renderHistory(cmd.OutOrStdout(), records)
	})
}
