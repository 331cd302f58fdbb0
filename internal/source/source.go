// Package source executes metric queries against configured data sources.
package source

import (
	"context"
	"sort"
	"strings"

	"github.com/headline-goat/sigtable/internal/variant"
)

// Status is the readiness of a query result.
type Status int

const (
	Ready Status = iota
	// NotReady means the query ran but its result has not materialized yet.
	NotReady
	Failed
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case NotReady:
		return "not_ready"
	default:
		return "failed"
	}
}

// Query is a templated query bound to a data source.
type Query struct {
	Name         string
	Text         string
	DataSourceID int
	Params       map[string]string
}

// Rendered substitutes {{name}} placeholders with their parameter values.
// Unknown placeholders are left in place.
func (q Query) Rendered() string {
	if len(q.Params) == 0 {
		return q.Text
	}

	keys := make([]string, 0, len(q.Params))
	for k := range q.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*4)
	for _, k := range keys {
		v := q.Params[k]
		pairs = append(pairs, "{{"+k+"}}", v, "{{ "+k+" }}", v)
	}
	return strings.NewReplacer(pairs...).Replace(q.Text)
}

// Result is the outcome of one fetch.
type Result struct {
	Status Status
	Rows   []variant.Row
	Err    error
}

// Fetcher runs queries. Implementations never return rows with NotReady or
// Failed; Err is set only when Status is Failed.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) Result
}
