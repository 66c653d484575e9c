package pipeline

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/shelfstock/internal/tabular"
)

// DefaultDateLayout is the snapshot date prefix expected in input filenames.
const DefaultDateLayout = "20060102"

// RoundFloat rounds v to the given number of decimals, ties to even. This is the rounding the
// planning spreadsheets use, so 2.5 rounds to 2 and 3.5 to 4.
func RoundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.RoundToEven(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*factor) / factor
}

// SnapshotDateFromFilename parses a leading date prefix (layout) from the file's base name.
// Files without a prefix fall back to the given date.
func SnapshotDateFromFilename(filename, layout string, fallback time.Time) (time.Time, error) {
	if layout == "" {
		layout = DefaultDateLayout
	}
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	if len(base) >= len(layout) {
		if date, err := time.Parse(layout, base[:len(layout)]); err == nil {
			return date, nil
		}
	}
	if fallback.IsZero() {
		return time.Time{}, fmt.Errorf("filename %s does not contain date with layout %s", filename, layout)
	}
	return fallback.Truncate(24 * time.Hour), nil
}

// FormatCell renders a row value for CSV output.
func FormatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return tabular.FormatNumber(val)
	case *float64:
		if val == nil {
			return ""
		}
		return tabular.FormatNumber(*val)
	case int:
		return tabular.FormatInt(int64(val))
	case int64:
		return tabular.FormatInt(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// RowsToTable lays rows out in the given column order.
func RowsToTable(columns []string, rows []TransformedRow) *tabular.Table {
	t := tabular.New(columns...)
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = FormatCell(row.Data[col])
		}
		// header and record lengths always match here
		_ = t.AppendRow(record...)
	}
	return t
}
