package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository handles database operations for pipeline tracking
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new pipeline repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const pipelineRunColumns = `id, pipeline_name, date, status, total_files,
	processed_files, total_rows, started_at, completed_at, error_message`

// CreatePipelineRun creates a new pipeline run record
func (r *Repository) CreatePipelineRun(ctx context.Context, run *PipelineRun) error {
	query := `
		INSERT INTO pipeline_runs (
			pipeline_name, date, status, total_files,
			processed_files, total_rows, started_at
		) VALUES (:pipeline_name, :date, :status, :total_files, :processed_files, :total_rows, :started_at)
		RETURNING id
	`

	rows, err := r.db.NamedQueryContext(ctx, query, run)
	if err != nil {
		return fmt.Errorf("insert pipeline run: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&run.ID); err != nil {
			return fmt.Errorf("scan pipeline run id: %w", err)
		}
	}
	return rows.Err()
}

// UpdatePipelineRun updates status, totals and completion of a run
func (r *Repository) UpdatePipelineRun(ctx context.Context, run *PipelineRun) error {
	query := `
		UPDATE pipeline_runs
		SET status = :status, total_files = :total_files,
		    completed_at = :completed_at, error_message = :error_message
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("update pipeline run %d: %w", run.ID, err)
	}
	return nil
}

// GetPipelineRun retrieves a pipeline run by ID
func (r *Repository) GetPipelineRun(ctx context.Context, id int64) (*PipelineRun, error) {
	run := &PipelineRun{}
	query := `SELECT ` + pipelineRunColumns + ` FROM pipeline_runs WHERE id = $1`
	if err := r.db.GetContext(ctx, run, query, id); err != nil {
		return nil, fmt.Errorf("get pipeline run %d: %w", id, err)
	}
	return run, nil
}

// GetPipelineRunByDate retrieves the run of a pipeline for a snapshot date, nil if none exists
func (r *Repository) GetPipelineRunByDate(ctx context.Context, pipelineName string, date time.Time) (*PipelineRun, error) {
	run := &PipelineRun{}
	query := `SELECT ` + pipelineRunColumns + ` FROM pipeline_runs WHERE pipeline_name = $1 AND date = $2`
	err := r.db.GetContext(ctx, run, query, pipelineName, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pipeline run by date: %w", err)
	}
	return run, nil
}

// CreateFileJob creates a new file job record
func (r *Repository) CreateFileJob(ctx context.Context, job *FileJob) error {
	query := `
		INSERT INTO pipeline_file_jobs (pipeline_run_id, file_path, status, error_message)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, query,
		job.PipelineRunID, job.FilePath, job.Status, job.ErrorMessage,
	).Scan(&job.ID)
	if err != nil {
		return fmt.Errorf("insert file job: %w", err)
	}
	return nil
}

// UpdateFileJob updates an existing file job
func (r *Repository) UpdateFileJob(ctx context.Context, job *FileJob) error {
	query := `
		UPDATE pipeline_file_jobs
		SET status = :status, error_message = :error_message,
		    processed_at = :processed_at, retry_count = :retry_count
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("update file job %d: %w", job.ID, err)
	}
	return nil
}

// GetFailedFileJobs retrieves failed file jobs that still have attempts left
func (r *Repository) GetFailedFileJobs(ctx context.Context, pipelineName string, maxRetries int) ([]*FileJob, error) {
	query := `
		SELECT fj.id, fj.pipeline_run_id, fj.file_path, fj.status,
		       fj.error_message, fj.processed_at, fj.retry_count
		FROM pipeline_file_jobs fj
		JOIN pipeline_runs pr ON fj.pipeline_run_id = pr.id
		WHERE pr.pipeline_name = $1
		  AND fj.status = $2
		  AND fj.retry_count < $3
		ORDER BY fj.id
	`

	var jobs []*FileJob
	if err := r.db.SelectContext(ctx, &jobs, query, pipelineName, FileStatusFailed, maxRetries); err != nil {
		return nil, fmt.Errorf("list failed file jobs: %w", err)
	}
	return jobs, nil
}

// IncrementProcessedFiles atomically increments the processed file count
func (r *Repository) IncrementProcessedFiles(ctx context.Context, runID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET processed_files = processed_files + 1 WHERE id = $1`, runID)
	return err
}

// AddRowCount atomically adds to the total row count
func (r *Repository) AddRowCount(ctx context.Context, runID int64, count int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET total_rows = total_rows + $1 WHERE id = $2`, count, runID)
	return err
}

var _ RunStore = (*Repository)(nil)
