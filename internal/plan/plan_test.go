package plan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/headline-goat/sigtable/internal/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlan = `
experiment_id: pref-flip-search-1
start_date: 2024-01-01
end_date: 2024-01-31
events_table: assa_events_daily
tables:
  - title: Engagement
    templates:
      - name: "TTests: Event Rate"
        description: Rate of event per client
        query: SELECT type, count FROM {{events_table}} WHERE event IN {{event_string}}
        data_source_id: 1
        metrics:
          - CLICK
          - name: Positive Interactions
            events: [CLICK, BOOKMARK_ADD, SEARCH]
      - name: "TTests: Retention"
        query: SELECT type, retained AS count FROM retention
        data_source_id: 2
        column: retained
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	require.NoError(t, err)

	assert.Equal(t, "pref-flip-search-1", p.ExperimentID)
	assert.Equal(t, "2024-01-31", p.EndDate)
	require.Len(t, p.Tables, 1)
	require.Len(t, p.Tables[0].Templates, 2)

	first := p.Tables[0].Templates[0]
	assert.Equal(t, DefaultColumn, first.Column)
	assert.Equal(t, 1, first.DataSourceID)

	metrics := first.MetricList()
	require.Len(t, metrics, 2)
	assert.Equal(t, metric.SingleEvent{Event: "CLICK"}, metrics[0])
	assert.Equal(t, metric.EventGroup{Name: "Positive Interactions", Members: []string{"CLICK", "BOOKMARK_ADD", "SEARCH"}}, metrics[1])

	second := p.Tables[0].Templates[1]
	assert.Equal(t, "retained", second.Column)
	assert.Len(t, second.MetricList(), len(metric.DefaultEvents()))
}

func TestParseDefaults(t *testing.T) {
	p, err := Parse([]byte(`
experiment_id: exp
start_date: 2024-01-01
tables:
  - title: T
    templates:
      - name: n
        query: q
`))
	require.NoError(t, err)
	assert.Equal(t, time.Now().Format("2006-01-02"), p.EndDate)
	assert.Equal(t, DefaultEventsTable, p.EventsTable)
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]string{
		"not yaml":        "experiment_id: [",
		"no experiment":   "start_date: 2024-01-01\ntables: [{title: T, templates: [{name: n, query: q}]}]",
		"bad start date":  "experiment_id: e\nstart_date: Jan 1\ntables: [{title: T, templates: [{name: n, query: q}]}]",
		"no tables":       "experiment_id: e\nstart_date: 2024-01-01",
		"no templates":    "experiment_id: e\nstart_date: 2024-01-01\ntables: [{title: T}]",
		"duplicate title": "experiment_id: e\nstart_date: 2024-01-01\ntables: [{title: T, templates: [{name: n, query: q}]}, {title: T, templates: [{name: n, query: q}]}]",
		"group no events": "experiment_id: e\nstart_date: 2024-01-01\ntables: [{title: T, templates: [{name: n, query: q, metrics: [{name: g}]}]}]",
		"metric list":     "experiment_id: e\nstart_date: 2024-01-01\ntables: [{title: T, templates: [{name: n, query: q, metrics: [[a, b]]}]}]",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidPlan)
		})
	}
}

func TestTemplateParams(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	require.NoError(t, err)

	tmpl := p.Tables[0].Templates[0]
	label := metric.Resolve(tmpl.Name, tmpl.Description, metric.SingleEvent{Event: "CLICK"})
	params := p.TemplateParams(tmpl, label)

	assert.Equal(t, map[string]string{
		"experiment_id": "pref-flip-search-1",
		"start_date":    "2024-01-01",
		"end_date":      "2024-01-31",
		"events_table":  "assa_events_daily",
		"event":         "CLICK",
		"event_string":  "('CLICK')",
	}, params)

	tmpl.EventsTable = "other"
	assert.Equal(t, "other", p.TemplateParams(tmpl, label)["events_table"])
}

func TestMarshalRoundTrip(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	require.NoError(t, err)

	data, err := Marshal(p)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePlan), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Engagement", p.Tables[0].Title)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
