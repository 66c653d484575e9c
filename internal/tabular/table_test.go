package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFromColumnsOrder(t *testing.T) {
	table, err := FromColumns(map[string][]string{
		"b":       {"1", "2"},
		"Product": {"A", "B"},
		"a":       {"3", "4"},
	}, []string{"Product"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Product", "a", "b"}, table.Header())
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"B", "4", "2"}, table.Row(1))
}

func TestFromColumnsRejectsRaggedColumns(t *testing.T) {
	_, err := FromColumns(map[string][]string{
		"a": {"1", "2"},
		"b": {"1"},
	}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = FromColumns(map[string][]string{"a": {"1"}}, []string{"missing"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAppendRowWidth(t *testing.T) {
	table := New("a", "b", "a")
	assert.Equal(t, []string{"a", "b"}, table.Header())

	require.NoError(t, table.AppendRow("1", "2"))
	assert.ErrorIs(t, table.AppendRow("1"), domain.ErrInvalidInput)
	assert.Equal(t, 1, table.Len())
}

func TestLookupIgnoresSeparators(t *testing.T) {
	table := New("Daily Demand", "Lead_Time", "Z-score")

	col, ok := table.Lookup("daily_demand")
	require.True(t, ok)
	assert.Equal(t, "Daily Demand", col)

	col, ok = table.Lookup("leadtime", "lead time days")
	require.True(t, ok)
	assert.Equal(t, "Lead_Time", col)

	col, ok = table.Lookup("zscore")
	require.True(t, ok)
	assert.Equal(t, "Z-score", col)

	_, ok = table.Lookup("shelf life")
	assert.False(t, ok)
}

func TestNumber(t *testing.T) {
	table := New("qty")
	require.NoError(t, table.AppendRow(" 1,250.5 "))
	require.NoError(t, table.AppendRow(""))
	require.NoError(t, table.AppendRow("abc"))
	require.NoError(t, table.AppendRow("NaN"))

	v, present, err := table.Number("qty", 0)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, 1250.5, v)

	_, present, err = table.Number("qty", 1)
	require.NoError(t, err)
	assert.False(t, present)

	_, present, err = table.Number("qty", 2)
	assert.True(t, present)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = table.Number("qty", 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, present, err = table.Number("other", 0)
	require.NoError(t, err)
	assert.False(t, present)
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{308, "308"},
		{0, "0"},
		{-4, "-4"},
		{3.1, "3.1"},
		{0.125, "0.125"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in))
	}
}

func TestReadCSV(t *testing.T) {
	input := "\ufeffProduct, Daily Demand ,Lead Time\nA,10,5\n,,\nB,20\n"

	table, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Product", "Daily Demand", "Lead Time"}, table.Header())
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "10", table.Value("Daily Demand", 0))
	assert.Equal(t, "", table.Value("Lead Time", 1))
	assert.Equal(t, "", table.Value("Lead Time", 9))
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")

	table := New("Product", "Target")
	require.NoError(t, table.AppendRow("A", "308"))
	require.NoError(t, table.AppendRow("B, large", "462"))
	require.NoError(t, WriteFile(path, table))

	read, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, table.Header(), read.Header())
	assert.Equal(t, table.Columns(), read.Columns())
}

func TestWriteFileIOFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := WriteFile(filepath.Join(blocker, "out.csv"), New("a"))
	assert.ErrorIs(t, err, domain.ErrIOFailure)
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Product", "Daily Demand"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"A", 10}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"B", 20.5}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "B", table.Value("Product", 1))
	assert.Equal(t, "20.5", table.Value("Daily Demand", 1))
}

func TestReadFileUnsupportedExtension(t *testing.T) {
	_, err := ReadFile("input.json")
	assert.Error(t, err)
}
