// Package ttable builds significance tables and guards their publication.
package ttable

// Column names are part of the published payload and are consumed verbatim
// by downstream dashboards.
const (
	ColMetric       = "Metric"
	ColAlpha        = "Alpha Error"
	ColPower        = "Power"
	ColPValue       = "Two-Tailed P-value (ttest)"
	ColControlMean  = "Control Mean"
	ColMeanDiff     = "Experiment Mean - Control Mean"
	ColPercentDiff  = "Percent Difference in Means"
	ColSignificance = "Significance"
)

// Column describes one field of the table schema.
type Column struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	FriendlyName string `json:"friendly_name"`
}

var columns = []Column{
	{Name: ColMetric, Type: "string", FriendlyName: ColMetric},
	{Name: ColAlpha, Type: "float", FriendlyName: ColAlpha},
	{Name: ColPower, Type: "float", FriendlyName: ColPower},
	{Name: ColPValue, Type: "float", FriendlyName: ColPValue},
	{Name: ColControlMean, Type: "float", FriendlyName: ColControlMean},
	{Name: ColMeanDiff, Type: "float", FriendlyName: ColMeanDiff},
	{Name: ColPercentDiff, Type: "float", FriendlyName: ColPercentDiff},
	{Name: ColSignificance, Type: "string", FriendlyName: ColSignificance},
}

// Columns returns the fixed table schema in display order.
func Columns() []Column {
	out := make([]Column, len(columns))
	copy(out, columns)
	return out
}

// ColumnNames returns the schema's column names in display order.
func ColumnNames() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}
