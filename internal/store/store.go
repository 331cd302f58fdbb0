package store

import "context"

// Store defines the persistence operations for published tables
type Store interface {
	// Published table operations
	SavePublished(ctx context.Context, t *PublishedTable) error
	GetPublished(ctx context.Context, title string) (*PublishedTable, error)
	ListPublished(ctx context.Context) ([]*PublishedTable, error)
	DeletePublished(ctx context.Context, title string) error

	// Publish log operations
	RecordOutcome(ctx context.Context, r *PublishRecord) error
	ListOutcomes(ctx context.Context, title string, limit int) ([]*PublishRecord, error)

	// Lifecycle
	Close() error
}
