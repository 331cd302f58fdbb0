// Package runner executes a plan: one processing pass fetches every metric,
// compares each variant to control and publishes one table per title.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/headline-goat/sigtable/internal/metric"
	"github.com/headline-goat/sigtable/internal/metrics"
	"github.com/headline-goat/sigtable/internal/plan"
	"github.com/headline-goat/sigtable/internal/source"
	"github.com/headline-goat/sigtable/internal/stats"
	"github.com/headline-goat/sigtable/internal/store"
	"github.com/headline-goat/sigtable/internal/ttable"
	"github.com/headline-goat/sigtable/internal/variant"
)

// Reasons a metric contributes no rows.
const (
	ReasonNotReady         = "not_ready"
	ReasonFetchFailed      = "fetch_failed"
	ReasonInsufficientData = "insufficient_data"
)

// History records every publish attempt.
type History interface {
	RecordOutcome(ctx context.Context, r *store.PublishRecord) error
}

type runTagger interface {
	SetRunID(runID string)
}

type Runner struct {
	fetcher  source.Fetcher
	sink     ttable.Sink
	history  History
	recorder *metrics.Recorder
	logger   *zap.Logger
}

type Option func(*Runner)

func WithHistory(h History) Option {
	return func(r *Runner) { r.history = h }
}

func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func New(fetcher source.Fetcher, sink ttable.Sink, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{fetcher: fetcher, sink: sink, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Skip is a metric that produced no rows in a pass.
type Skip struct {
	Template string
	Metric   string
	Reason   string
	Err      error
}

// TableReport summarizes one table of a pass.
type TableReport struct {
	Title   string
	Outcome ttable.Outcome
	Skipped []Skip
}

// Report summarizes a whole pass.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Tables     []TableReport
}

// Run executes one pass over p. Tables are processed one at a time; a
// failure on one metric or table never stops the others. The returned
// error joins every publish failure, or is the context error if the pass
// was cancelled.
func (r *Runner) Run(ctx context.Context, p *plan.Plan) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	defer r.recorder.Pass(report.StartedAt)

	if tagger, ok := r.sink.(runTagger); ok {
		tagger.SetRunID(report.RunID)
	}

	logger := r.logger.With(zap.String("run_id", report.RunID), zap.String("experiment", p.ExperimentID))
	logger.Info("starting pass", zap.Int("tables", len(p.Tables)))

	agg := ttable.NewAggregator(r.sink, logger)
	var errs []error

	for _, table := range p.Tables {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now()
			return report, err
		}

		tr := TableReport{Title: table.Title}
		agg.BeginTable(table.Title)

		for _, tmpl := range table.Templates {
			for _, m := range tmpl.MetricList() {
				label := metric.Resolve(tmpl.Name, tmpl.Description, m)
				rows, skip := r.metricRows(ctx, p, tmpl, label)
				if skip != nil {
					skip.Template = tmpl.Name
					skip.Metric = label.Title
					tr.Skipped = append(tr.Skipped, *skip)
					r.recorder.Skipped(skip.Reason)
					logger.Info("metric has no relevant data and will not be included",
						zap.String("table", table.Title),
						zap.String("metric", label.Title),
						zap.String("reason", skip.Reason),
						zap.Error(skip.Err),
					)
					continue
				}
				if err := agg.AddRows(table.Title, rows...); err != nil {
					return report, err
				}
			}
		}

		out, err := agg.Publish(ctx, table.Title)
		if err != nil {
			errs = append(errs, err)
			logger.Error("failed to publish table", zap.String("table", table.Title), zap.Error(err))
		}
		tr.Outcome = out
		r.recorder.Publish(out.Status)
		r.record(ctx, report.RunID, out, logger)

		report.Tables = append(report.Tables, tr)
	}

	report.FinishedAt = time.Now()
	logger.Info("finished pass", zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, errors.Join(errs...)
}

// metricRows fetches one metric and compares every variant against control.
func (r *Runner) metricRows(ctx context.Context, p *plan.Plan, tmpl plan.Template, label metric.Label) ([]ttable.Row, *Skip) {
	res := r.fetcher.Fetch(ctx, source.Query{
		Name:         label.Title,
		Text:         tmpl.Query,
		DataSourceID: tmpl.DataSourceID,
		Params:       p.TemplateParams(tmpl, label),
	})

	switch res.Status {
	case source.NotReady:
		return nil, &Skip{Reason: ReasonNotReady}
	case source.Failed:
		return nil, &Skip{Reason: ReasonFetchFailed, Err: res.Err}
	}

	group := variant.Extract(res.Rows, tmpl.Column)
	rows := r.CompareGroup(label.Title, group)
	if len(rows) == 0 {
		return nil, &Skip{Reason: ReasonInsufficientData}
	}
	return rows, nil
}

// CompareGroup builds one row per variant with enough observations, in the
// order variants first appeared.
func (r *Runner) CompareGroup(metricTitle string, group variant.Group) []ttable.Row {
	var rows []ttable.Row
	for _, label := range group.Labels() {
		c, ok := stats.Compare(group.Control, group.Variants[label])
		if !ok {
			continue
		}
		r.recorder.Comparison(c.Significance)
		rows = append(rows, ttable.NewRow(label, metricTitle, c))
	}
	return rows
}

func (r *Runner) record(ctx context.Context, runID string, out ttable.Outcome, logger *zap.Logger) {
	if r.history == nil {
		return
	}

	rec := &store.PublishRecord{
		Title:         out.Title,
		RunID:         runID,
		Outcome:       out.Status.String(),
		CandidateRows: out.CandidateRows,
		IncumbentRows: out.IncumbentRows,
		Reference:     out.Reference,
		Message:       outcomeMessage(out),
	}
	if err := r.history.RecordOutcome(ctx, rec); err != nil {
		logger.Warn("failed to record publish outcome", zap.String("table", out.Title), zap.Error(err))
	}
}

func outcomeMessage(out ttable.Outcome) string {
	switch out.Status {
	case ttable.OutcomeRejected:
		return fmt.Sprintf("incomplete data - not published (%d rows < %d published)", out.CandidateRows, out.IncumbentRows)
	case ttable.OutcomeEmpty:
		return "no rows"
	case ttable.OutcomeFailed:
		if out.Err != nil {
			return out.Err.Error()
		}
	}
	return ""
}
