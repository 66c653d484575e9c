package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"
)

// Orchestrator coordinates running a Pipeline over a set of local files grouped by snapshot date.
type Orchestrator struct {
	store   RunStore
	cfg     PipelineConfig
	onFlush FlushFunc
	makeW   func(p Pipeline, cfg PipelineConfig, store RunStore, onFlush FlushFunc) *Worker
}

// NewOrchestrator creates a new Orchestrator. store may be nil for in-memory bookkeeping.
func NewOrchestrator(store RunStore, cfg PipelineConfig, onFlush FlushFunc) *Orchestrator {
	if store == nil {
		store = NewMemoryRunStore()
	}
	return &Orchestrator{
		store:   store,
		cfg:     cfg,
		onFlush: onFlush,
		makeW:   NewWorker,
	}
}

// RunResult summarizes one processed snapshot date.
type RunResult struct {
	Run     *PipelineRun
	Outputs []string
}

// Run groups the provided files by snapshot date (using p.GetSnapshotDate) and
// runs a Worker batch for each date, oldest first.
func (o *Orchestrator) Run(ctx context.Context, p Pipeline, files []string) ([]RunResult, error) {
	if len(files) == 0 {
		return nil, nil
	}

	byDate := make(map[time.Time][]string)
	for _, f := range files {
		date, err := p.GetSnapshotDate(filepath.Base(f))
		if err != nil {
			return nil, fmt.Errorf("failed to get snapshot date for %s: %w", f, err)
		}

		date = date.Truncate(24 * time.Hour)
		byDate[date] = append(byDate[date], f)
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	worker := o.makeW(p, o.cfg, o.store, o.onFlush)

	results := make([]RunResult, 0, len(dates))
	for _, date := range dates {
		run, err := worker.ProcessBatch(ctx, date, byDate[date])
		if err != nil {
			return results, fmt.Errorf("failed to process batch for %s: %w", date.Format("2006-01-02"), err)
		}
		results = append(results, RunResult{Run: run, Outputs: worker.Outputs()})
	}

	return results, nil
}

// RetryFailed reprocesses the failed file jobs of p that still have attempts left.
func (o *Orchestrator) RetryFailed(ctx context.Context, p Pipeline) error {
	return o.makeW(p, o.cfg, o.store, o.onFlush).RetryFailed(ctx)
}
