// Package variant splits query result rows into control and variant samples.
package variant

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/headline-goat/sigtable/internal/stats"
)

const (
	// TypeKey is the row field naming the variant a row belongs to.
	TypeKey = "type"
	// ControlMarker identifies control rows: any type containing it,
	// ignoring case, belongs to the control group.
	ControlMarker = "control"

	minRows = 5
)

// Row is one record of a query result keyed by column name.
type Row map[string]any

// Group is the control sample plus one sample per variant label.
type Group struct {
	Control  stats.Sample
	Variants map[string]stats.Sample
	labels   []string
}

// Empty reports whether extraction produced nothing.
func (g Group) Empty() bool {
	return len(g.Control) == 0 && len(g.Variants) == 0
}

// Labels returns variant labels in the order they first appeared.
func (g Group) Labels() []string {
	out := make([]string, len(g.labels))
	copy(out, g.labels)
	return out
}

// Extract partitions rows on the "type" field and collects the values of
// column. It returns an empty Group when there are too few rows, when the
// first row lacks column, or when any row is malformed.
func Extract(rows []Row, column string) Group {
	if len(rows) < minRows {
		return Group{}
	}
	if _, ok := rows[0][column]; !ok {
		return Group{}
	}

	g := Group{Variants: make(map[string]stats.Sample)}
	for _, row := range rows {
		label, ok := typeOf(row)
		if !ok {
			return Group{}
		}
		raw, ok := row[column]
		if !ok {
			return Group{}
		}
		value, ok := ToFloat(raw)
		if !ok {
			return Group{}
		}

		if IsControl(label) {
			g.Control = append(g.Control, value)
			continue
		}
		if _, seen := g.Variants[label]; !seen {
			g.labels = append(g.labels, label)
		}
		g.Variants[label] = append(g.Variants[label], value)
	}

	return g
}

// IsControl reports whether a type label names the control group.
func IsControl(label string) bool {
	return strings.Contains(strings.ToLower(label), ControlMarker)
}

func typeOf(row Row) (string, bool) {
	switch v := row[TypeKey].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// ToFloat converts the numeric shapes database drivers and JSON decoders
// produce into a float64.
func ToFloat(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		return parseFloat(n)
	case []byte:
		return parseFloat(string(n))
	default:
		return 0, false
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}
