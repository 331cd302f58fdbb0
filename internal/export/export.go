// Package export writes published tables as CSV, JSON or Parquet.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/headline-goat/sigtable/internal/ttable"
)

type Format string

const (
	CSV     Format = "csv"
	JSON    Format = "json"
	Parquet Format = "parquet"
)

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case CSV, JSON, Parquet:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want csv, json or parquet)", s)
	}
}

// Write encodes p in format f.
func Write(w io.Writer, f Format, p ttable.Payload) error {
	switch f {
	case CSV:
		return WriteCSV(w, p)
	case JSON:
		return WriteJSON(w, p)
	case Parquet:
		return WriteParquet(w, p)
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
}

// WriteCSV writes a header of column names followed by one record per row.
func WriteCSV(w io.Writer, p ttable.Payload) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ttable.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range p.Rows {
		if err := cw.Write(r.Strings()); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the payload exactly as it is published.
func WriteJSON(w io.Writer, p ttable.Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// ParquetRow is the columnar layout of a table row. An undefined p-value
// is stored as null.
type ParquetRow struct {
	Metric       string   `parquet:"metric,snappy"`
	AlphaError   float64  `parquet:"alpha_error,snappy"`
	Power        float64  `parquet:"power,snappy"`
	PValue       *float64 `parquet:"p_value,optional,snappy"`
	ControlMean  float64  `parquet:"control_mean,snappy"`
	MeanDiff     float64  `parquet:"mean_diff,snappy"`
	PercentDiff  float64  `parquet:"percent_diff,snappy"`
	Significance string   `parquet:"significance,snappy"`
}

func toParquet(r ttable.Row) ParquetRow {
	out := ParquetRow{
		Metric:       r.Metric,
		AlphaError:   r.Alpha,
		Power:        r.Power,
		ControlMean:  r.ControlMean,
		MeanDiff:     r.MeanDiff,
		PercentDiff:  r.PercentDiff,
		Significance: r.Significance.String(),
	}
	if r.PValue.Valid {
		p := r.PValue.Value
		out.PValue = &p
	}
	return out
}

// WriteParquet writes the rows as a single Parquet file.
func WriteParquet(w io.Writer, p ttable.Payload) error {
	rows := make([]ParquetRow, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = toParquet(r)
	}

	writer := parquet.NewGenericWriter[ParquetRow](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
