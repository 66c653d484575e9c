package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	rows map[string][]TransformedRow
	errs map[string]error
}

func (p *fakePipeline) Name() string            { return "fake" }
func (p *fakePipeline) Columns() []string       { return []string{"Product", "Units"} }
func (p *fakePipeline) GetOutputTable() string  { return "fake_results" }
func (p *fakePipeline) Validate(f string) error { return nil }

func (p *fakePipeline) GetSnapshotDate(filename string) (time.Time, error) {
	return SnapshotDateFromFilename(filename, DefaultDateLayout, time.Time{})
}

func (p *fakePipeline) Transform(ctx context.Context, inputFile string) ([]TransformedRow, error) {
	if err := p.errs[filepath.Base(inputFile)]; err != nil {
		return nil, err
	}
	return p.rows[filepath.Base(inputFile)], nil
}

func row(product string, units float64) TransformedRow {
	return TransformedRow{Data: map[string]interface{}{"Product": product, "Units": units}}
}

func testConfig(t *testing.T) PipelineConfig {
	cfg := DefaultPipelineConfig("fake")
	cfg.OutputDir = t.TempDir()
	cfg.WorkerCount = 3
	return cfg
}

func TestWorkerWritesRowsInFileOrder(t *testing.T) {
	p := &fakePipeline{rows: map[string][]TransformedRow{
		"20240102_b.csv": {row("B", 2)},
		"20240102_a.csv": {row("A", 1), row("A2", 1.5)},
		"20240102_c.csv": {row("C", 3)},
	}}
	store := NewMemoryRunStore()

	var flushed []string
	var mu sync.Mutex
	onFlush := func(ctx context.Context, path string) error {
		mu.Lock()
		defer mu.Unlock()
		flushed = append(flushed, path)
		return nil
	}

	w := NewWorker(p, testConfig(t), store, onFlush)
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	run, err := w.ProcessBatch(context.Background(), date, []string{"20240102_c.csv", "20240102_a.csv", "20240102_b.csv"})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, 3, run.ProcessedFiles)
	assert.Equal(t, 4, run.TotalRows)

	require.Len(t, w.Outputs(), 1)
	assert.Equal(t, "fake_20240102_001.csv", filepath.Base(w.Outputs()[0]))
	assert.Equal(t, w.Outputs(), flushed)

	table, err := tabular.ReadFile(w.Outputs()[0])
	require.NoError(t, err)
	products, _ := table.Column("Product")
	assert.Equal(t, []string{"A", "A2", "B", "C"}, products)
	units, _ := table.Column("Units")
	assert.Equal(t, []string{"1", "1.5", "2", "3"}, units)

	for _, job := range store.Jobs(run.ID) {
		assert.Equal(t, FileStatusCompleted, job.Status)
	}
}

func TestWorkerFailedFileFailsRun(t *testing.T) {
	p := &fakePipeline{
		rows: map[string][]TransformedRow{"20240102_a.csv": {row("A", 1)}},
		errs: map[string]error{"20240102_b.csv": errors.New("bad record")},
	}
	store := NewMemoryRunStore()
	cfg := testConfig(t)
	cfg.WorkerCount = 1

	w := NewWorker(p, cfg, store, nil)
	run, err := w.ProcessBatch(context.Background(), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		[]string{"20240102_a.csv", "20240102_b.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad record")

	stored, err := store.GetPipelineRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Empty(t, w.Outputs())

	failed, err := store.GetFailedFileJobs(context.Background(), "fake", cfg.RetryAttempts)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "20240102_b.csv", failed[0].FilePath)
	assert.Equal(t, 1, failed[0].RetryCount)
}

func TestWorkerFlushFailureFailsRun(t *testing.T) {
	p := &fakePipeline{rows: map[string][]TransformedRow{"20240102_a.csv": {row("A", 1)}}}
	onFlush := func(ctx context.Context, path string) error { return errors.New("upload refused") }

	w := NewWorker(p, testConfig(t), nil, onFlush)
	_, err := w.ProcessBatch(context.Background(), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), []string{"20240102_a.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload refused")
}

func TestOrchestratorGroupsByDate(t *testing.T) {
	p := &fakePipeline{rows: map[string][]TransformedRow{
		"20240103_a.csv": {row("A", 1)},
		"20240102_a.csv": {row("A", 2)},
		"20240102_b.csv": {row("B", 3)},
	}}

	o := NewOrchestrator(nil, testConfig(t), nil)
	results, err := o.Run(context.Background(), p, []string{"20240103_a.csv", "20240102_b.csv", "20240102_a.csv"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), results[0].Run.Date)
	assert.Equal(t, 2, results[0].Run.ProcessedFiles)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), results[1].Run.Date)
	require.Len(t, results[1].Outputs, 1)
	assert.Equal(t, "fake_20240103_001.csv", filepath.Base(results[1].Outputs[0]))
}

func TestOrchestratorRejectsUndatedFiles(t *testing.T) {
	o := NewOrchestrator(nil, testConfig(t), nil)
	_, err := o.Run(context.Background(), &fakePipeline{}, []string{"inventory.csv"})
	assert.Error(t, err)

	results, err := o.Run(context.Background(), &fakePipeline{}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRoundFloatTiesToEven(t *testing.T) {
	assert.Equal(t, 2.0, RoundFloat(2.5, 0))
	assert.Equal(t, 4.0, RoundFloat(3.5, 0))
	assert.Equal(t, 3.1, RoundFloat(3.0769, 1))
}

func TestSnapshotDateFromFilename(t *testing.T) {
	date, err := SnapshotDateFromFilename("/data/20240315_stock.xlsx", "", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), date)

	fallback := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	date, err = SnapshotDateFromFilename("stock.csv", "", fallback)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), date)
}

func TestOrchestratorRetryFailed(t *testing.T) {
	p := &fakePipeline{
		rows: map[string][]TransformedRow{
			"20240102_a.csv": {row("A", 1)},
			"20240102_b.csv": {row("B", 2)},
		},
		errs: map[string]error{"20240102_b.csv": errors.New("locked by another process")},
	}
	store := NewMemoryRunStore()
	cfg := testConfig(t)
	cfg.WorkerCount = 1

	o := NewOrchestrator(store, cfg, nil)
	_, err := o.Run(context.Background(), p, []string{"20240102_a.csv", "20240102_b.csv"})
	require.Error(t, err)

	delete(p.errs, "20240102_b.csv")
	require.NoError(t, o.RetryFailed(context.Background(), p))

	failed, err := store.GetFailedFileJobs(context.Background(), "fake", cfg.RetryAttempts)
	require.NoError(t, err)
	assert.Empty(t, failed)

	run, err := store.GetPipelineRunByDate(context.Background(), "fake", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, StatusCompleted, run.Status)

	table, err := tabular.ReadFile(filepath.Join(cfg.OutputDir, "fake_20240102_001.csv"))
	require.NoError(t, err)
	products, _ := table.Column("Product")
	assert.Equal(t, []string{"B"}, products)
}
