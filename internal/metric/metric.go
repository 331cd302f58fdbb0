// Package metric describes what a query template measures and derives
// human-readable labels from it.
package metric

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Metric is either a SingleEvent or an EventGroup.
type Metric interface {
	// Display is the name substituted into titles and descriptions.
	Display() string
	// Events lists the raw event names the metric covers.
	Events() []string

	isMetric()
}

// SingleEvent measures one named event.
type SingleEvent struct {
	Event string
}

func (m SingleEvent) Display() string  { return capitalize(m.Event) }
func (m SingleEvent) Events() []string { return []string{m.Event} }
func (SingleEvent) isMetric()          {}

// EventGroup measures several events under a shared name.
type EventGroup struct {
	Name    string
	Members []string
}

func (m EventGroup) Display() string { return m.Name }

func (m EventGroup) Events() []string {
	out := make([]string, len(m.Members))
	copy(out, m.Members)
	return out
}

func (EventGroup) isMetric() {}

// DefaultEvents is used when a template names no metrics.
func DefaultEvents() []Metric {
	return []Metric{
		SingleEvent{Event: "CLICK"},
		SingleEvent{Event: "SEARCH"},
		SingleEvent{Event: "BLOCK"},
		SingleEvent{Event: "DELETE"},
		EventGroup{Name: "Positive Interactions", Members: []string{"CLICK", "BOOKMARK_ADD", "SEARCH"}},
	}
}

// Label is everything derived from a template and a metric.
type Label struct {
	Title       string
	Description string
	// Event is the value bound to the "event" query parameter.
	Event string
	// EventString is a SQL tuple literal of the metric's events.
	EventString string
}

const enginePrefix = "Scalar_parent_browser_engagement_"

// Resolve derives the label for metric m under a template.
//
// The title is the title-cased template name with anything before the first
// ": " removed, "Event" replaced by the metric's display name and the
// engagement scalar prefix stripped. The description is the lower-cased
// template description with "event" substituted, then capitalized; it falls
// back to the title.
func Resolve(templateName, templateDescription string, m Metric) Label {
	display := m.Display()

	title := titleOf(templateName)
	title = strings.ReplaceAll(title, "Event", display)
	title = strings.ReplaceAll(title, enginePrefix, "")

	description := title
	if templateDescription != "" {
		description = capitalize(strings.ReplaceAll(strings.ToLower(templateDescription), "event", display))
	}

	event := display
	if single, ok := m.(SingleEvent); ok {
		event = single.Event
	}

	return Label{
		Title:       title,
		Description: description,
		Event:       event,
		EventString: EventString(m),
	}
}

// EventString renders the metric's events as ('A', 'B').
func EventString(m Metric) string {
	events := m.Events()
	quoted := make([]string, len(events))
	for i, e := range events {
		quoted[i] = "'" + e + "'"
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func titleOf(name string) string {
	title := cases.Title(language.Und).String(name)
	if _, after, ok := strings.Cut(title, ": "); ok {
		return after
	}
	return title
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	r := []rune(lower)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
