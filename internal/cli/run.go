package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/headline-goat/sigtable/internal/metrics"
	"github.com/headline-goat/sigtable/internal/plan"
	"github.com/headline-goat/sigtable/internal/runner"
	"github.com/headline-goat/sigtable/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute and publish every table in a plan once",
	Long: `Run one pass over an experiment plan: query each metric, compare
every variant against control, and publish one table per plan table.

A table with fewer rows than the one already published is not replaced.

Example:
  sigt run --plan plan.yaml
  sigt run --plan plan.yaml --metrics-file /var/lib/node_exporter/sigtable.prom`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("plan", "", "experiment plan file")
	runCmd.Flags().String("metrics-file", "", "write run metrics in Prometheus text format to this file")
	runCmd.Flags().String("base-url", "", "public base URL used in published table references")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := loadPlan()
	if err != nil {
		return err
	}

	return withStore(func(s *store.SQLiteStore) error {
		reg := prometheus.NewRegistry()
		report, err := runPass(ctx, s, p, metrics.NewRecorder(reg))
		if report != nil {
			if rerr := renderReport(cmd.OutOrStdout(), report); rerr != nil {
				logger.Warn("failed to render report", zap.Error(rerr))
			}
		}

		if cfg.MetricsFile != "" {
			if werr := metrics.WriteFile(cfg.MetricsFile, reg); werr != nil {
				logger.Warn("failed to write metrics file", zap.Error(werr))
			}
		}
		return err
	})
}

// runPass wires a runner for p against the configured sources and sink.
func runPass(ctx context.Context, s *store.SQLiteStore, p *plan.Plan, rec *metrics.Recorder) (*runner.Report, error) {
	fetcher, err := buildFetcher()
	if err != nil {
		return nil, err
	}
	defer fetcher.Close()

	sk, closeSink, err := openSink(ctx, s, p.ExperimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink: %w", err)
	}
	defer closeSink()

	r := runner.New(fetcher, sk, logger.Named("runner"),
		runner.WithHistory(s),
		runner.WithRecorder(rec),
	)
	return r.Run(ctx, p)
}
