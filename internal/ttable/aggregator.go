package ttable

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrNoTable     = errors.New("table not started")
	ErrTableClosed = errors.New("table no longer accepts rows")
)

// Sink is where finalized tables are published.
type Sink interface {
	// Incumbent returns the row count of the table currently published
	// under title. found is false when nothing has been published yet.
	Incumbent(ctx context.Context, title string) (rows int, found bool, err error)
	// Publish replaces whatever is published under the table's title and
	// returns a reference to the new copy.
	Publish(ctx context.Context, table *Table) (reference string, err error)
}

// OutcomeStatus is the result of a publish attempt.
type OutcomeStatus int

const (
	OutcomeEmpty OutcomeStatus = iota
	OutcomePublished
	OutcomeRejected
	OutcomeFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomePublished:
		return "published"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Outcome describes what Publish did with a candidate table.
type Outcome struct {
	Title         string
	Status        OutcomeStatus
	Reference     string
	CandidateRows int
	IncumbentRows int
	Err           error
}

// Aggregator collects rows per title for a single processing pass and
// applies the non-regressive publish guard. Calls for one title must be
// serialized by the owner.
type Aggregator struct {
	sink   Sink
	logger *zap.Logger
	tables map[string]*Table
	order  []string
}

func NewAggregator(sink Sink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		sink:   sink,
		logger: logger,
		tables: make(map[string]*Table),
	}
}

// BeginTable returns the table for title, creating an empty one if none is
// in progress. A table that already reached a terminal state is replaced.
func (a *Aggregator) BeginTable(title string) *Table {
	if t, ok := a.tables[title]; ok && !t.State.Terminal() {
		return t
	}
	if _, ok := a.tables[title]; !ok {
		a.order = append(a.order, title)
	}
	t := &Table{Title: title, State: StateEmpty}
	a.tables[title] = t
	return t
}

// AddRows appends rows to an open table. Adding nothing is a no-op.
func (a *Aggregator) AddRows(title string, rows ...Row) error {
	t, ok := a.tables[title]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoTable, title)
	}
	if t.State != StateEmpty && t.State != StateAccumulating {
		return fmt.Errorf("%w: %q is %s", ErrTableClosed, title, t.State)
	}
	if len(rows) == 0 {
		return nil
	}

	t.Rows = append(t.Rows, rows...)
	t.State = StateAccumulating
	return nil
}

// Finalize closes the table for title and returns it as the candidate.
func (a *Aggregator) Finalize(title string) (*Table, error) {
	t, ok := a.tables[title]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoTable, title)
	}
	if !t.State.Terminal() {
		t.State = StateFinalized
	}
	return t, nil
}

// Table returns the table for title if one was started.
func (a *Aggregator) Table(title string) (*Table, bool) {
	t, ok := a.tables[title]
	return t, ok
}

// Titles returns started titles in the order they were begun.
func (a *Aggregator) Titles() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Publish finalizes the table for title and hands it to the sink unless
// the incumbent has more rows. A table with no rows is never published.
// The returned error is non-nil only when the sink fails or title was never
// started; a rejection is reported through the Outcome.
func (a *Aggregator) Publish(ctx context.Context, title string) (Outcome, error) {
	t, err := a.Finalize(title)
	if err != nil {
		return Outcome{Title: title}, err
	}

	out := Outcome{Title: title, CandidateRows: len(t.Rows)}
	if t.State.Terminal() {
		return out, fmt.Errorf("%w: %q is %s", ErrTableClosed, title, t.State)
	}

	if len(t.Rows) == 0 {
		a.logger.Info("table has no rows, nothing to publish", zap.String("title", title))
		out.Status = OutcomeEmpty
		return out, nil
	}

	// Look up what is already published
	incumbent, found, err := a.sink.Incumbent(ctx, title)
	if err != nil {
		out.Status = OutcomeFailed
		out.Err = fmt.Errorf("failed to look up published table %q: %w", title, err)
		return out, out.Err
	}
	out.IncumbentRows = incumbent

	if found && len(t.Rows) < incumbent {
		a.logger.Info("incomplete data - not published",
			zap.String("title", title),
			zap.Int("candidate_rows", len(t.Rows)),
			zap.Int("incumbent_rows", incumbent),
		)
		t.State = StateRejected
		out.Status = OutcomeRejected
		return out, nil
	}

	ref, err := a.sink.Publish(ctx, t)
	if err != nil {
		out.Status = OutcomeFailed
		out.Err = fmt.Errorf("failed to publish table %q: %w", title, err)
		return out, out.Err
	}

	a.logger.Info("published table",
		zap.String("title", title),
		zap.Int("rows", len(t.Rows)),
		zap.String("reference", ref),
	)
	t.State = StatePublished
	out.Status = OutcomePublished
	out.Reference = ref
	return out, nil
}
