package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show dashboard URL with access token",
	Long: `Show the dashboard URL with your access token.

Use this when you've scrolled past the startup message or need to
share the dashboard link.

Example:
  sigt token`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().String("base-url", "", "public base URL of the server")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(tokenFilePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.New("no server running. Start with: sigt serve")
		}
		return fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return errors.New("token file is empty. Restart the server with: sigt serve")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: %s/dashboard?token=%s\n", strings.TrimRight(cfg.BaseURL, "/"), token)
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Tip: Bookmark this URL or run 'sigt token' anytime.")
	return nil
}
