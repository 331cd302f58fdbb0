// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/headline-goat/sigtable/internal/stats"
	"github.com/headline-goat/sigtable/internal/store"
	"github.com/headline-goat/sigtable/internal/ttable"
)

// SetupTestStore creates a test database and closes it when the test ends.
// Uses t.TempDir() for automatic cleanup on test completion.
func SetupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// Rows builds n table rows labelled after metric.
func Rows(metric string, n int) []ttable.Row {
	out := make([]ttable.Row, n)
	for i := range out {
		out[i] = ttable.Row{
			Metric:       ttable.MetricLabel("variant-b", metric),
			Alpha:        stats.Alpha,
			Power:        0.95,
			PValue:       stats.PValue{Value: 0.001, Valid: true},
			ControlMean:  6,
			MeanDiff:     -4,
			PercentDiff:  -66.66,
			Significance: stats.Negative,
		}
	}
	return out
}

// SeedPublished stores a published table with n rows under title.
func SeedPublished(t *testing.T, s *store.SQLiteStore, title string, n int) *store.PublishedTable {
	t.Helper()

	table := &ttable.Table{Title: title, Rows: Rows(title, n)}
	payload, err := table.MarshalPayload()
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}

	pt := &store.PublishedTable{
		Title:     title,
		Reference: "seed://" + title,
		Payload:   payload,
		RowCount:  n,
		RunID:     "seed",
	}
	if err := s.SavePublished(context.Background(), pt); err != nil {
		t.Fatalf("failed to seed published table: %v", err)
	}
	return pt
}
