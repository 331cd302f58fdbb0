package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/headline-goat/sigtable/internal/config"
	"github.com/headline-goat/sigtable/internal/plan"
	"github.com/headline-goat/sigtable/internal/sink"
	"github.com/headline-goat/sigtable/internal/source"
	"github.com/headline-goat/sigtable/internal/store"
	"github.com/headline-goat/sigtable/internal/ttable"
)

// withStore opens the database, executes the function, and handles cleanup.
func withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// openSink returns the configured publish target. The close func is always
// safe to call.
func openSink(ctx context.Context, s *store.SQLiteStore, experimentID string) (ttable.Sink, func() error, error) {
	switch cfg.Sink.Kind {
	case config.SinkGCS:
		gcs, err := sink.NewGCSSink(ctx, cfg.Sink.Bucket, cfg.Sink.Prefix, experimentID, cfg.Sink.Credentials)
		if err != nil {
			return nil, nil, err
		}
		return gcs, gcs.Close, nil
	default:
		return sink.NewStoreSink(s, cfg.BaseURL), func() error { return nil }, nil
	}
}

func buildFetcher() (*source.SQLFetcher, error) {
	if len(cfg.DataSources) == 0 {
		return nil, errors.New("no data sources configured; add data-sources to .sigtable.yaml")
	}
	return source.NewSQLFetcher(cfg.Sources())
}

// loadPlan reads the plan named by --plan, falling back to the configured one.
func loadPlan() (*plan.Plan, error) {
	if cfg.Plan == "" {
		return nil, errors.New("no plan given; pass --plan or set plan in .sigtable.yaml")
	}
	return plan.Load(cfg.Plan)
}

// tokenFilePath returns the path to the token file
func tokenFilePath() string {
	// Store token file alongside the database
	return filepath.Join(filepath.Dir(cfg.DBPath), ".sigt-token")
}
