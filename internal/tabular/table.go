// Package tabular holds the column-ordered table that input and output data travel in.
package tabular

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/shelfstock/internal/domain"
)

// Table maps column names to ordered cell values, one entry per row.
// The header order is preserved for output.
type Table struct {
	header  []string
	columns map[string][]string
	rows    int
}

// New creates an empty table with the given column order.
func New(header ...string) *Table {
	t := &Table{
		header:  make([]string, 0, len(header)),
		columns: make(map[string][]string, len(header)),
	}
	for _, h := range header {
		if _, ok := t.columns[h]; ok {
			continue
		}
		t.header = append(t.header, h)
		t.columns[h] = nil
	}
	return t
}

// FromColumns builds a table from a column mapping. order fixes the header order; columns not
// listed in order are appended in sorted order so the result is deterministic.
func FromColumns(columns map[string][]string, order []string) (*Table, error) {
	header := make([]string, 0, len(columns))
	seen := make(map[string]struct{}, len(columns))
	for _, name := range order {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: column %q listed in order but missing", domain.ErrInvalidInput, name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		header = append(header, name)
	}
	header = append(header, sortedRemaining(columns, seen)...)

	t := New(header...)
	rows := -1
	for _, name := range header {
		values := columns[name]
		if rows >= 0 && len(values) != rows {
			return nil, fmt.Errorf("%w: column %q has %d values, expected %d", domain.ErrInvalidInput, name, len(values), rows)
		}
		rows = len(values)
		t.columns[name] = append([]string(nil), values...)
	}
	if rows > 0 {
		t.rows = rows
	}
	return t, nil
}

// Header returns a copy of the column order.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// AppendRow appends one row; values follow the header order.
func (t *Table) AppendRow(values ...string) error {
	if len(values) != len(t.header) {
		return fmt.Errorf("%w: row has %d values, table has %d columns", domain.ErrInvalidInput, len(values), len(t.header))
	}
	for i, h := range t.header {
		t.columns[h] = append(t.columns[h], values[i])
	}
	t.rows++
	return nil
}

// Row returns the cells of row i in header order.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.header))
	for j, h := range t.header {
		out[j] = t.columns[h][i]
	}
	return out
}

// Column returns the values of a column by its exact name.
func (t *Table) Column(name string) ([]string, bool) {
	values, ok := t.columns[name]
	return values, ok
}

// Columns returns a copy of the column mapping.
func (t *Table) Columns() map[string][]string {
	out := make(map[string][]string, len(t.columns))
	for k, v := range t.columns {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Lookup returns the header name matching any of the aliases. Matching ignores case, spaces,
// underscores, dots, dashes and slashes.
func (t *Table) Lookup(aliases ...string) (string, bool) {
	targets := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		targets[NormalizeColumnName(a)] = struct{}{}
	}
	for _, h := range t.header {
		if _, ok := targets[NormalizeColumnName(h)]; ok {
			return h, true
		}
	}
	return "", false
}

// Value returns the trimmed cell at (column, row), or "" when the column does not exist.
func (t *Table) Value(column string, row int) string {
	values, ok := t.columns[column]
	if !ok || row < 0 || row >= len(values) {
		return ""
	}
	return strings.TrimSpace(values[row])
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

// NormalizeColumnName lowercases a header and strips separators.
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}
