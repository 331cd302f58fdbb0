package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/headline-goat/sigtable/internal/metrics"
	"github.com/headline-goat/sigtable/internal/plan"
	"github.com/headline-goat/sigtable/internal/server"
	"github.com/headline-goat/sigtable/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the sigtable HTTP server.

The server provides:
  - Published tables at /api/tables
  - Dashboard for viewing tables
  - Prometheus metrics at /metrics
  - Health check endpoint

With --plan and --interval the server also runs a pass on that schedule.

Example:
  sigt serve --port 8080
  sigt serve --plan plan.yaml --interval 1h`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().String("plan", "", "experiment plan file for scheduled passes")
	serveCmd.Flags().Duration("interval", 0, "time between scheduled passes (0 disables them)")
	serveCmd.Flags().String("base-url", "", "public base URL used in published table references")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var p *plan.Plan
	if cfg.Interval > 0 {
		var err error
		if p, err = loadPlan(); err != nil {
			return err
		}
	}

	return withStore(func(s *store.SQLiteStore) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec := metrics.NewRecorder(reg)

		srv := server.New(s, cfg.Port, tokenFilePath(), reg, logger.Named("server"))
		defer os.Remove(tokenFilePath())

		fmt.Fprintf(cmd.OutOrStdout(), "Server running at %s\n", cfg.BaseURL)
		fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: %s/dashboard?token=%s\n", cfg.BaseURL, srv.Token())

		if p == nil {
			return srv.Run(ctx)
		}

		// The store closes when this func returns, so the scheduler must
		// finish its current pass first.
		stopSchedule := startSchedule(ctx, cfg.Interval, func(ctx context.Context) {
			if _, err := runPass(ctx, s, p, rec); err != nil {
				logger.Error("scheduled pass failed", zap.Error(err))
			}
		})

		err := srv.Run(ctx)
		stopSchedule()
		return err
	})
}

// startSchedule runs schedule in the background. The returned func cancels
// it and blocks until the pass in progress, if any, has returned.
func startSchedule(ctx context.Context, interval time.Duration, fn func(context.Context)) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		schedule(ctx, interval, fn)
	}()

	return func() {
		cancel()
		<-done
	}
}

// schedule calls fn immediately and then every interval until ctx is done.
// A pass that overruns the interval delays the next one.
func schedule(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
