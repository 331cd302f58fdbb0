package cli

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/headline-goat/sigtable/internal/plan"
	"github.com/headline-goat/sigtable/internal/runner"
	"github.com/headline-goat/sigtable/internal/variant"
)

var (
	compareColumn string
	compareMetric string
)

var compareCmd = &cobra.Command{
	Use:   "compare <file>",
	Short: "Compare variants in a CSV or JSON file against control",
	Long: `Compare every variant in a file of observations against control and
print the resulting significance rows without publishing anything.

The file is CSV with a header row, or a JSON array of objects. Each row
needs a "type" naming its variant (any type containing "control" is
control) and a numeric value column.

Example:
  sigt compare clicks.csv --column count --metric "Click Rate"`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareColumn, "column", "c", plan.DefaultColumn, "value column to compare")
	compareCmd.Flags().StringVarP(&compareMetric, "metric", "m", "", "metric title for row labels (default: file name)")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var rows []variant.Row
	if strings.EqualFold(filepath.Ext(path), ".json") {
		rows, err = readJSONRows(f)
	} else {
		rows, err = readCSVRows(f)
	}
	if err != nil {
		return err
	}

	title := compareMetric
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	group := variant.Extract(rows, compareColumn)
	if group.Empty() {
		return fmt.Errorf("not enough data in %s: need at least 5 rows with %q and %q", path, variant.TypeKey, compareColumn)
	}

	out := runner.New(nil, nil, logger).CompareGroup(title, group)
	if len(out) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No variant has enough observations to compare.")
		return nil
	}
	return renderRows(cmd.OutOrStdout(), out)
}

func readJSONRows(r io.Reader) ([]variant.Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []variant.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode JSON rows: %w", err)
	}
	return rows, nil
}

func readCSVRows(r io.Reader) ([]variant.Row, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var rows []variant.Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		row := make(variant.Row, len(header))
		for i, name := range header {
			row[strings.TrimSpace(name)] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
