package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Worker processes the files of one snapshot date for a specific pipeline
type Worker struct {
	pipeline   Pipeline
	config     PipelineConfig
	store      RunStore
	onFlush    FlushFunc
	aggregator *StreamingAggregator
}

// NewWorker creates a new pipeline worker. onFlush may be nil.
func NewWorker(pipeline Pipeline, config PipelineConfig, store RunStore, onFlush FlushFunc) *Worker {
	if store == nil {
		store = NewMemoryRunStore()
	}
	return &Worker{
		pipeline: pipeline,
		config:   config,
		store:    store,
		onFlush:  onFlush,
	}
}

// ProcessBatch processes a batch of files for a specific date. A file that fails validation or
// transformation fails its job and the run; rows from a failed file are never written.
func (w *Worker) ProcessBatch(ctx context.Context, date time.Time, files []string) (*PipelineRun, error) {
	logger := log.With().Str("pipeline", w.pipeline.Name()).Str("date", date.Format("2006-01-02")).Logger()
	logger.Info().Int("files", len(files)).Msg("starting batch")

	run, err := w.getOrCreatePipelineRun(ctx, date, len(files))
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}

	w.aggregator = NewStreamingAggregator(w.pipeline, w.config, date, w.onFlush)

	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	fileJobs := make([]*FileJob, len(sorted))
	for i, file := range sorted {
		job := &FileJob{
			PipelineRunID: run.ID,
			FilePath:      file,
			Status:        FileStatusQueued,
		}
		if err := w.store.CreateFileJob(ctx, job); err != nil {
			return run, fmt.Errorf("failed to create file job: %w", err)
		}
		fileJobs[i] = job
	}

	run.Status = StatusProcessing
	if err := w.store.UpdatePipelineRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to update pipeline run: %w", err)
	}

	if err := w.processFilesParallel(ctx, run, fileJobs); err != nil {
		w.finishRun(ctx, run, StatusFailed, err.Error())
		return run, err
	}

	if err := w.aggregator.Finalize(ctx); err != nil {
		w.finishRun(ctx, run, StatusFailed, fmt.Sprintf("aggregation failed: %v", err))
		return run, fmt.Errorf("failed to finalize aggregation: %w", err)
	}

	if err := w.finishRun(ctx, run, StatusCompleted, ""); err != nil {
		return run, fmt.Errorf("failed to complete pipeline run: %w", err)
	}

	if refreshed, err := w.store.GetPipelineRun(ctx, run.ID); err == nil {
		run = refreshed
	}

	logger.Info().
		Int("processed_files", run.ProcessedFiles).
		Int("rows", run.TotalRows).
		Strs("outputs", w.aggregator.Written()).
		Msg("batch completed")

	return run, nil
}

// Outputs returns the CSV files written by the last batch.
func (w *Worker) Outputs() []string {
	if w.aggregator == nil {
		return nil
	}
	return w.aggregator.Written()
}

func (w *Worker) finishRun(ctx context.Context, run *PipelineRun, status PipelineStatus, msg string) error {
	run.Status = status
	run.ErrorMessage = msg
	now := time.Now()
	run.CompletedAt = &now
	err := w.store.UpdatePipelineRun(ctx, run)
	if err != nil {
		log.Error().Err(err).Int64("run_id", run.ID).Msg("failed to update pipeline run")
	}
	return err
}

// processFilesParallel processes files using a bounded worker pool
func (w *Worker) processFilesParallel(ctx context.Context, run *PipelineRun, jobs []*FileJob) error {
	workerCount := w.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := w.processFile(gctx, run, job); err != nil {
				log.Error().Err(err).
					Str("pipeline", w.pipeline.Name()).
					Str("file", job.FilePath).
					Msg("failed to process file")
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// processFile processes a single file
func (w *Worker) processFile(ctx context.Context, run *PipelineRun, job *FileJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	startTime := time.Now()

	job.Status = FileStatusProcessing
	if err := w.store.UpdateFileJob(ctx, job); err != nil {
		return err
	}

	if err := w.pipeline.Validate(job.FilePath); err != nil {
		return w.markJobFailed(ctx, job, fmt.Errorf("validation failed for %s: %w", job.FilePath, err))
	}

	rows, err := w.pipeline.Transform(ctx, job.FilePath)
	if err != nil {
		return w.markJobFailed(ctx, job, fmt.Errorf("transformation failed for %s: %w", job.FilePath, err))
	}

	if err := w.aggregator.AddFileData(ctx, job.FilePath, rows); err != nil {
		return w.markJobFailed(ctx, job, fmt.Errorf("aggregation failed: %w", err))
	}

	job.Status = FileStatusCompleted
	now := time.Now()
	job.ProcessedAt = &now
	job.ErrorMessage = ""
	if err := w.store.UpdateFileJob(ctx, job); err != nil {
		return err
	}

	if err := w.store.IncrementProcessedFiles(ctx, run.ID); err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("failed to increment processed files")
	}
	if err := w.store.AddRowCount(ctx, run.ID, len(rows)); err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("failed to add row count")
	}

	log.Info().
		Str("pipeline", w.pipeline.Name()).
		Str("file", job.FilePath).
		Int("rows", len(rows)).
		Dur("took", time.Since(startTime)).
		Msg("file processed")

	return nil
}

// markJobFailed marks a job as failed and returns err
func (w *Worker) markJobFailed(ctx context.Context, job *FileJob, err error) error {
	job.Status = FileStatusFailed
	job.ErrorMessage = err.Error()
	job.RetryCount++

	if uerr := w.store.UpdateFileJob(ctx, job); uerr != nil {
		log.Error().Err(uerr).Int64("job_id", job.ID).Msg("failed to update job status")
	}

	if job.RetryCount < w.config.RetryAttempts {
		log.Warn().
			Str("file", job.FilePath).
			Int("attempt", job.RetryCount).
			Int("max_attempts", w.config.RetryAttempts).
			Msg("file failed; eligible for retry")
	}

	return err
}

// getOrCreatePipelineRun gets or creates a pipeline run for the date
func (w *Worker) getOrCreatePipelineRun(ctx context.Context, date time.Time, totalFiles int) (*PipelineRun, error) {
	run, err := w.store.GetPipelineRunByDate(ctx, w.pipeline.Name(), date)
	if err != nil {
		return nil, err
	}

	if run != nil {
		if run.TotalFiles != totalFiles {
			run.TotalFiles = totalFiles
			if err := w.store.UpdatePipelineRun(ctx, run); err != nil {
				return nil, err
			}
		}
		return run, nil
	}

	run = &PipelineRun{
		PipelineName: w.pipeline.Name(),
		Date:         date,
		Status:       StatusPending,
		TotalFiles:   totalFiles,
		StartedAt:    time.Now(),
	}

	if err := w.store.CreatePipelineRun(ctx, run); err != nil {
		return nil, err
	}

	return run, nil
}

// RetryFailed reprocesses failed jobs that have attempts left, grouped by run.
func (w *Worker) RetryFailed(ctx context.Context) error {
	jobs, err := w.store.GetFailedFileJobs(ctx, w.pipeline.Name(), w.config.RetryAttempts)
	if err != nil {
		return fmt.Errorf("failed to get failed jobs: %w", err)
	}

	if len(jobs) == 0 {
		log.Info().Str("pipeline", w.pipeline.Name()).Msg("no failed jobs to retry")
		return nil
	}

	jobsByRun := make(map[int64][]*FileJob)
	for _, job := range jobs {
		jobsByRun[job.PipelineRunID] = append(jobsByRun[job.PipelineRunID], job)
	}

	for runID, runJobs := range jobsByRun {
		run, err := w.store.GetPipelineRun(ctx, runID)
		if err != nil {
			log.Error().Err(err).Int64("run_id", runID).Msg("failed to get run")
			continue
		}

		w.aggregator = NewStreamingAggregator(w.pipeline, w.config, run.Date, w.onFlush)

		if err := w.processFilesParallel(ctx, run, runJobs); err != nil {
			log.Error().Err(err).Int64("run_id", runID).Msg("retry failed")
			continue
		}

		if err := w.aggregator.Finalize(ctx); err != nil {
			log.Error().Err(err).Int64("run_id", runID).Msg("failed to finalize retried run")
			continue
		}
		w.finishRun(ctx, run, StatusCompleted, "")
	}

	return nil
}
