package cli

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/headline-goat/sigtable/internal/store"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <title>",
	Short: "Delete a published table",
	Long: `Delete a published table so the next pass publishes it fresh,
whatever its row count.

Example:
  sigt delete Engagement --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	title := args[0]

	if !deleteYes {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete table '%s'", title),
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			if errors.Is(err, promptui.ErrAbort) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			return err
		}
	}

	return withStore(func(s *store.SQLiteStore) error {
		err := s.DeletePublished(cmd.Context(), title)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("table '%s' not found", title)
		}
		if err != nil {
			return fmt.Errorf("failed to delete table: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted table '%s'\n", title)
		return nil
	})
}
