package store

import (
	"encoding/json"
	"time"
)

// PublishedTable is the latest published copy of a significance table.
type PublishedTable struct {
	ID          int64
	Title       string
	Reference   string
	Payload     json.RawMessage // columns + rows, as published
	RowCount    int
	RunID       string
	PublishedAt time.Time
}

// PublishRecord is one entry in the publish log: every attempt, whether it
// was published, rejected by the row-count guard, or failed.
type PublishRecord struct {
	ID            int64
	Title         string
	RunID         string
	Outcome       string
	CandidateRows int
	IncumbentRows int
	Reference     string
	Message       string
	CreatedAt     time.Time
}
