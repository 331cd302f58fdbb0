// Package plan loads experiment plans: which tables to build, from which
// query templates, over which metrics.
package plan

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/headline-goat/sigtable/internal/metric"
)

var ErrInvalidPlan = errors.New("invalid plan")

const (
	DefaultColumn      = "count"
	DefaultEventsTable = "events"
	dateLayout         = "2006-01-02"
)

// Plan describes one experiment's significance tables.
type Plan struct {
	ExperimentID string  `yaml:"experiment_id"`
	StartDate    string  `yaml:"start_date"`
	EndDate      string  `yaml:"end_date,omitempty"`
	EventsTable  string  `yaml:"events_table,omitempty"`
	Tables       []Table `yaml:"tables"`
}

// Table groups the templates whose rows land in one titled table.
type Table struct {
	Title     string     `yaml:"title"`
	Templates []Template `yaml:"templates"`
}

// Template is a parameterized query evaluated once per metric.
type Template struct {
	Name         string       `yaml:"name"`
	Description  string       `yaml:"description,omitempty"`
	Query        string       `yaml:"query"`
	DataSourceID int          `yaml:"data_source_id"`
	Column       string       `yaml:"column,omitempty"`
	EventsTable  string       `yaml:"events_table,omitempty"`
	Metrics      []MetricSpec `yaml:"metrics,omitempty"`
}

// MetricSpec wraps a metric for YAML. A scalar is a single event; a mapping
// with name and events is an event group.
type MetricSpec struct {
	metric.Metric
}

type groupSpec struct {
	Name   string   `yaml:"name"`
	Events []string `yaml:"events"`
}

func (m *MetricSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Value == "" {
			return fmt.Errorf("%w: line %d: empty event name", ErrInvalidPlan, value.Line)
		}
		m.Metric = metric.SingleEvent{Event: value.Value}
		return nil

	case yaml.MappingNode:
		var g groupSpec
		if err := value.Decode(&g); err != nil {
			return err
		}
		if g.Name == "" || len(g.Events) == 0 {
			return fmt.Errorf("%w: line %d: event group needs a name and events", ErrInvalidPlan, value.Line)
		}
		m.Metric = metric.EventGroup{Name: g.Name, Members: g.Events}
		return nil

	default:
		return fmt.Errorf("%w: line %d: metric must be an event name or a group", ErrInvalidPlan, value.Line)
	}
}

func (m MetricSpec) MarshalYAML() (any, error) {
	switch v := m.Metric.(type) {
	case metric.SingleEvent:
		return v.Event, nil
	case metric.EventGroup:
		return groupSpec{Name: v.Name, Events: v.Members}, nil
	default:
		return nil, fmt.Errorf("unsupported metric %T", m.Metric)
	}
}

// MetricList returns the template's metrics, or the default events when
// none are listed.
func (t Template) MetricList() []metric.Metric {
	if len(t.Metrics) == 0 {
		return metric.DefaultEvents()
	}
	out := make([]metric.Metric, len(t.Metrics))
	for i, m := range t.Metrics {
		out[i] = m.Metric
	}
	return out
}

// Params are the query parameters shared by every template of the plan.
func (p *Plan) Params() map[string]string {
	return map[string]string{
		"experiment_id": p.ExperimentID,
		"start_date":    p.StartDate,
		"end_date":      p.EndDate,
		"events_table":  p.EventsTable,
	}
}

// TemplateParams extends the plan parameters with one metric's label.
func (p *Plan) TemplateParams(t Template, label metric.Label) map[string]string {
	params := p.Params()
	if t.EventsTable != "" {
		params["events_table"] = t.EventsTable
	}
	params["event"] = label.Event
	params["event_string"] = label.EventString
	return params
}

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes a plan, fills defaults and validates it.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		if errors.Is(err, ErrInvalidPlan) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	p.applyDefaults(time.Now())
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Plan) applyDefaults(now time.Time) {
	if p.EndDate == "" {
		p.EndDate = now.Format(dateLayout)
	}
	if p.EventsTable == "" {
		p.EventsTable = DefaultEventsTable
	}
	for i := range p.Tables {
		for j := range p.Tables[i].Templates {
			if p.Tables[i].Templates[j].Column == "" {
				p.Tables[i].Templates[j].Column = DefaultColumn
			}
		}
	}
}

// Validate checks the plan is complete enough to run.
func (p *Plan) Validate() error {
	if p.ExperimentID == "" {
		return fmt.Errorf("%w: experiment_id is required", ErrInvalidPlan)
	}
	if _, err := time.Parse(dateLayout, p.StartDate); err != nil {
		return fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidPlan)
	}
	if _, err := time.Parse(dateLayout, p.EndDate); err != nil {
		return fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidPlan)
	}
	if len(p.Tables) == 0 {
		return fmt.Errorf("%w: at least one table is required", ErrInvalidPlan)
	}

	seen := make(map[string]bool)
	for _, t := range p.Tables {
		if t.Title == "" {
			return fmt.Errorf("%w: table title is required", ErrInvalidPlan)
		}
		if seen[t.Title] {
			return fmt.Errorf("%w: duplicate table %q", ErrInvalidPlan, t.Title)
		}
		seen[t.Title] = true

		if len(t.Templates) == 0 {
			return fmt.Errorf("%w: table %q has no templates", ErrInvalidPlan, t.Title)
		}
		for _, tmpl := range t.Templates {
			if tmpl.Name == "" || tmpl.Query == "" {
				return fmt.Errorf("%w: table %q: template needs a name and a query", ErrInvalidPlan, t.Title)
			}
		}
	}
	return nil
}

// Marshal encodes the plan as YAML.
func Marshal(p *Plan) ([]byte, error) {
	return yaml.Marshal(p)
}
