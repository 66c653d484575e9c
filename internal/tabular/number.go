package tabular

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/andresuchdata/shelfstock/internal/domain"
)

// ParseNumber parses a numeric cell. Thousands separators (",") are stripped.
// NaN and infinities are rejected.
func ParseNumber(raw string) (float64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidInput, raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not a finite number", domain.ErrInvalidInput, raw)
	}
	return f, nil
}

// Number reads the cell at (column, row). present is false when the column is absent or the
// cell is blank.
func (t *Table) Number(column string, row int) (value float64, present bool, err error) {
	raw := t.Value(column, row)
	if raw == "" {
		return 0, false, nil
	}
	value, err = ParseNumber(raw)
	if err != nil {
		return 0, true, err
	}
	return value, true, nil
}

// FormatNumber renders v the way output tables expect: integral values without a fraction,
// everything else with the shortest exact representation.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatInt renders an integer cell.
func FormatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func sortedRemaining(columns map[string][]string, seen map[string]struct{}) []string {
	rest := make([]string, 0, len(columns)-len(seen))
	for name := range columns {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return rest
}
