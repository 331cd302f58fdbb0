package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"

	"github.com/headline-goat/sigtable/internal/runner"
	"github.com/headline-goat/sigtable/internal/stats"
	"github.com/headline-goat/sigtable/internal/store"
	"github.com/headline-goat/sigtable/internal/ttable"
)

const (
	minMetricWidth = 24
	// columns the seven numeric cells and borders take up
	numericWidth = 110
)

var (
	positiveColor  = color.New(color.FgGreen, color.Bold)
	negativeColor  = color.New(color.FgRed, color.Bold)
	undefinedColor = color.New(color.FgHiBlack)
	rejectedColor  = color.New(color.FgYellow)
)

func init() {
	if !isTerminal(os.Stdout) {
		color.NoColor = true
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// metricWidth is how wide the metric column may be on the current terminal.
func metricWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	if w := width - numericWidth; w > minMetricWidth {
		return w
	}
	return minMetricWidth
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func colorSignificance(sig stats.Significance) string {
	switch sig {
	case stats.Positive:
		return positiveColor.Sprint(sig)
	case stats.Negative:
		return negativeColor.Sprint(sig)
	case stats.Undefined:
		return undefinedColor.Sprint(sig)
	default:
		return sig.String()
	}
}

// renderRows prints significance rows with the published column headers.
func renderRows(w io.Writer, rows []ttable.Row) error {
	table := tablewriter.NewWriter(w)
	table.Header(ttable.ColumnNames())
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft}
	})

	maxMetric := metricWidth()
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := r.Strings()
		cells[0] = truncate(cells[0], maxMetric)
		cells[len(cells)-1] = colorSignificance(r.Significance)
		data = append(data, cells)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func renderPublished(w io.Writer, tables []*store.PublishedTable) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Title", "Rows", "Run", "Published", "Reference"})

	var data [][]string
	for _, t := range tables {
		data = append(data, []string{
			t.Title,
			strconv.Itoa(t.RowCount),
			t.RunID,
			t.PublishedAt.Local().Format("2006-01-02 15:04"),
			t.Reference,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func renderHistory(w io.Writer, records []*store.PublishRecord) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"When", "Run", "Outcome", "Candidate", "Incumbent", "Message"})

	var data [][]string
	for _, r := range records {
		outcome := r.Outcome
		if outcome == ttable.OutcomeRejected.String() || outcome == ttable.OutcomeFailed.String() {
			outcome = rejectedColor.Sprint(outcome)
		}
		data = append(data, []string{
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.RunID,
			outcome,
			strconv.Itoa(r.CandidateRows),
			strconv.Itoa(r.IncumbentRows),
			r.Message,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// renderReport prints one line per table of a pass, plus skipped metrics.
func renderReport(w io.Writer, report *runner.Report) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Table", "Outcome", "Rows", "Published Rows", "Skipped", "Reference"})

	var data [][]string
	for _, tr := range report.Tables {
		outcome := tr.Outcome.Status.String()
		if tr.Outcome.Status == ttable.OutcomeRejected || tr.Outcome.Status == ttable.OutcomeFailed {
			outcome = rejectedColor.Sprint(outcome)
		}
		data = append(data, []string{
			tr.Title,
			outcome,
			strconv.Itoa(tr.Outcome.CandidateRows),
			strconv.Itoa(tr.Outcome.IncumbentRows),
			strconv.Itoa(len(tr.Skipped)),
			tr.Outcome.Reference,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, tr := range report.Tables {
		for _, skip := range tr.Skipped {
			fmt.Fprintf(w, "  skipped %s / %s: %s\n", tr.Title, skip.Metric, skip.Reason)
		}
	}
	fmt.Fprintf(w, "\nrun %s finished in %s\n", report.RunID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	return nil
}
