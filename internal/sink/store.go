// Package sink publishes finalized tables.
package sink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/headline-goat/sigtable/internal/store"
	"github.com/headline-goat/sigtable/internal/ttable"
)

type tableStore interface {
	GetPublished(ctx context.Context, title string) (*store.PublishedTable, error)
	SavePublished(ctx context.Context, t *store.PublishedTable) error
}

// StoreSink publishes tables into the local database, where the server's
// API and dashboard read them.
type StoreSink struct {
	store   tableStore
	baseURL string
	runID   string
}

var _ ttable.Sink = (*StoreSink)(nil)

func NewStoreSink(s tableStore, baseURL string) *StoreSink {
	return &StoreSink{store: s, baseURL: strings.TrimRight(baseURL, "/")}
}

// SetRunID tags subsequently published tables with the pass that built them.
func (s *StoreSink) SetRunID(runID string) {
	s.runID = runID
}

func (s *StoreSink) Incumbent(ctx context.Context, title string) (int, bool, error) {
	pt, err := s.store.GetPublished(ctx, title)
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return pt.RowCount, true, nil
}

func (s *StoreSink) Publish(ctx context.Context, t *ttable.Table) (string, error) {
	payload, err := t.MarshalPayload()
	if err != nil {
		return "", fmt.Errorf("failed to marshal table: %w", err)
	}

	ref := TableURL(s.baseURL, t.Title)
	err = s.store.SavePublished(ctx, &store.PublishedTable{
		Title:     t.Title,
		Reference: ref,
		Payload:   payload,
		RowCount:  len(t.Rows),
		RunID:     s.runID,
	})
	if err != nil {
		return "", err
	}
	return ref, nil
}

// TableURL is the API location of a published table.
func TableURL(baseURL, title string) string {
	return strings.TrimRight(baseURL, "/") + "/api/tables/" + url.PathEscape(title)
}
