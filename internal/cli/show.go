package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/headline-goat/sigtable/internal/store"
	"github.com/headline-goat/sigtable/internal/ttable"
)

var showCmd = &cobra.Command{
	Use:   "show [title]",
	Short: "Show a published table",
	Long: `Show the rows of a published significance table.

Without a title, pick one of the published tables interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := cmd.Context()

		var title string
		if len(args) == 1 {
			title = args[0]
		} else {
			picked, err := pickTable(ctx, s)
			if err != nil {
				return err
			}
			title = picked
		}

		t, err := s.GetPublished(ctx, title)
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

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "TABLE: %s\n", t.Title)
		fmt.Fprintf(out, "PUBLISHED: %s (run %s)\n", t.PublishedAt.Local().Format("2006-01-02 15:04"), t.RunID)
		if t.Reference != "" {
			fmt.Fprintf(out, "REFERENCE: %s\n", t.Reference)
		}
		fmt.Fprintln(out)

		return renderRows(out, payload.Rows)
	})
}

// pickTable prompts for one of the published titles.
func pickTable(ctx context.Context, s *store.SQLiteStore) (string, error) {
	if !isTerminal(os.Stdin) {
		return "", errors.New("title required when not running in a terminal")
	}

	tables, err := s.ListPublished(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}
	if len(tables) == 0 {
		return "", errors.New("no tables published yet")
	}

	titles := make([]string, len(tables))
	for i, t := range tables {
		titles[i] = t.Title
	}

	prompt := promptui.Select{
		Label: "Table",
		Items: titles,
		Size:  10,
	}

	_, title, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return title, nil
}
