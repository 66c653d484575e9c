package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresuchdata/shelfstock/internal/config"
	"github.com/andresuchdata/shelfstock/internal/pipeline/shelf_life"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	v := viper.New()
	config.SetDefaults(v)
	return config.FromViper(v)
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	return newApp(testConfig()).RunContext(context.Background(), append([]string{"stockplan"}, args...))
}

func readOutput(t *testing.T, path string) *tabular.Table {
	t.Helper()
	table, err := tabular.ReadFile(path)
	require.NoError(t, err)
	return table
}

func TestTargetsCommandSample(t *testing.T) {
	out := filepath.Join(t.TempDir(), "targets.csv")
	require.NoError(t, run(t, "targets", "--output", out))

	table := readOutput(t, out)
	assert.Equal(t, shelf_life.Columns(shelf_life.FormatFinal), table.Header())
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, "Product A", table.Value(shelf_life.ColProduct, 0))
	assert.Equal(t, "308", table.Value(shelf_life.ColFinalTargetUnits, 0))
	assert.Equal(t, "616", table.Value(shelf_life.ColFinalTargetUnits, 2))
}

func TestTargetsCommandPolicyFlags(t *testing.T) {
	out := filepath.Join(t.TempDir(), "targets.csv")
	require.NoError(t, run(t, "targets", "--cap", "1", "--format", "complete", "--output", out))

	table := readOutput(t, out)
	assert.Equal(t, shelf_life.Columns(shelf_life.FormatComplete), table.Header())
	assert.Equal(t, "440", table.Value(shelf_life.ColFinalTargetUnits, 0))

	assert.Error(t, run(t, "targets", "--cap", "0", "--output", out))
	assert.Error(t, run(t, "targets", "--format", "wide", "--output", out))
}

func TestTargetsCommandInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(input, []byte("Product,Daily Demand,Std Demand Forecast,Lead Time,Review Time,Z-score\nA,20,5,15,7,1.96\n"), 0644))

	out := filepath.Join(dir, "out.csv")
	require.NoError(t, run(t, "targets", "--input", input, "--output", out, "--persist"))
	assert.Equal(t, 1, readOutput(t, out).Len())

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("Product,Daily Demand,Std Demand Forecast,Lead Time,Review Time,Z-score\nA,-1,5,15,7,1.96\n"), 0644))
	assert.Error(t, run(t, "targets", "--input", bad, "--output", out))
}

func TestReplenishCommandOverview(t *testing.T) {
	out := filepath.Join(t.TempDir(), "status.csv")
	require.NoError(t, run(t, "replenish", "--format", "overview", "--output", out))

	table := readOutput(t, out)
	assert.Equal(t, 8, table.Len())
	assert.Equal(t, "Product ID", table.Header()[0])
	assert.Equal(t, "OK", table.Value("Status", 0))
}

func TestBatchCommandInputDir(t *testing.T) {
	dir := t.TempDir()
	inputDir := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(inputDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "20240105_targets.csv"), []byte(
		"Product,Daily Demand,Std Demand Forecast,Lead Time,Review Time,Z-score\nA,20,5,15,7,1.96\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "notes.txt"), []byte("skip"), 0644))

	outputDir := filepath.Join(dir, "out")
	require.NoError(t, run(t, "batch", "--input-dir", inputDir, "--output-dir", outputDir, "--workers", "2"))

	written, err := filepath.Glob(filepath.Join(outputDir, "stock_targets", "*.csv"))
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.True(t, strings.Contains(filepath.Base(written[0]), "20240105"))
	assert.Equal(t, "308", readOutput(t, written[0]).Value(shelf_life.ColFinalTargetUnits, 0))
}

func TestBatchCommandErrors(t *testing.T) {
	assert.Error(t, run(t, "batch", "--output-dir", t.TempDir()))
	assert.Error(t, run(t, "batch", "--kind", "forecast", "--input-dir", t.TempDir()))
	assert.Error(t, run(t, "batch", "--input-dir", t.TempDir(), "--upload"))
	assert.Error(t, run(t, "watch"))
}

func TestListTables(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xlsx", "a.csv", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	files, err := listTables(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.xlsx")}, files)
}
