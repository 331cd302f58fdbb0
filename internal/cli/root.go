package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/headline-goat/sigtable/internal/config"
	"github.com/headline-goat/sigtable/internal/logging"
)

var (
	cfgFile string
	v       = config.New()
	cfg     *config.Config
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "sigt",
	Short: "sigtable - significance tables for A/B experiments",
	Long: `sigtable compares every experiment variant against control with a
Welch t-test, classifies the difference, and publishes one significance
table per experiment table.

Settings come from flags, SIGT_* environment variables, or .sigtable.yaml.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default .sigtable.yaml in . or $HOME)")
	pf.String("db", "./sigtable.db", "database path")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console or json)")
}

// loadConfig binds the running command's flags, so a flag set on the
// command line wins over env and file values.
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlags(v, cmd); err != nil {
		return err
	}

	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = c

	l, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}
