package ttable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/headline-goat/sigtable/internal/stats"
)

// Row is one display-ready line of a significance table.
type Row struct {
	Metric       string
	Alpha        float64
	Power        float64
	PValue       stats.PValue
	ControlMean  float64
	MeanDiff     float64
	PercentDiff  float64
	Significance stats.Significance
}

// MetricLabel formats the row label for one variant of a metric.
func MetricLabel(variant, metric string) string {
	return fmt.Sprintf("[control vs. %s] %s", variant, metric)
}

// NewRow flattens a comparison into a table row.
func NewRow(variant, metric string, c stats.Comparison) Row {
	return Row{
		Metric:       MetricLabel(variant, metric),
		Alpha:        c.Alpha,
		Power:        c.Power,
		PValue:       c.PValue,
		ControlMean:  c.ControlMean,
		MeanDiff:     c.MeanDiff,
		PercentDiff:  c.PercentDiff,
		Significance: c.Significance,
	}
}

// Strings renders the row in column order. An undefined p-value renders
// as an empty string.
func (r Row) Strings() []string {
	return []string{
		r.Metric,
		formatFloat(r.Alpha),
		formatFloat(r.Power),
		r.pValueString(),
		formatFloat(r.ControlMean),
		formatFloat(r.MeanDiff),
		formatFloat(r.PercentDiff),
		r.Significance.String(),
	}
}

func (r Row) pValueString() string {
	if !r.PValue.Valid {
		return ""
	}
	return formatFloat(r.PValue.Value)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// MarshalJSON encodes the row as an object keyed by column name, in schema
// order. An undefined p-value is encoded as "".
func (r Row) MarshalJSON() ([]byte, error) {
	var pvalue any = ""
	if r.PValue.Valid {
		pvalue = r.PValue.Value
	}

	values := []any{
		r.Metric,
		r.Alpha,
		r.Power,
		pvalue,
		r.ControlMean,
		r.MeanDiff,
		r.PercentDiff,
		r.Significance.String(),
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range ColumnNames() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(values[i])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Row) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Row
	var significance string
	targets := map[string]any{
		ColMetric:       &out.Metric,
		ColAlpha:        &out.Alpha,
		ColPower:        &out.Power,
		ColControlMean:  &out.ControlMean,
		ColMeanDiff:     &out.MeanDiff,
		ColPercentDiff:  &out.PercentDiff,
		ColSignificance: &significance,
	}
	for name, target := range targets {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("failed to unmarshal %q: %w", name, err)
		}
	}

	if raw, ok := fields[ColPValue]; ok {
		var p float64
		if err := json.Unmarshal(raw, &p); err == nil {
			out.PValue = stats.PValue{Value: p, Valid: true}
		}
	}
	out.Significance = stats.ParseSignificance(significance)

	*r = out
	return nil
}
