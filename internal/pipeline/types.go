package pipeline

import (
	"context"
	"time"
)

// Pipeline turns one input table file into output rows with a fixed column order.
type Pipeline interface {
	// Name returns the unique identifier for this pipeline
	Name() string

	// Columns returns the output column order; every TransformedRow carries these keys
	Columns() []string

	// Transform processes a single input file and returns the transformed data
	Transform(ctx context.Context, inputFile string) ([]TransformedRow, error)

	// GetOutputTable returns the target database table name
	GetOutputTable() string

	// GetSnapshotDate extracts the date from the filename
	GetSnapshotDate(filename string) (time.Time, error)

	// Validate checks if the input file is valid for this pipeline
	Validate(inputFile string) error
}

// TransformedRow is a single output row keyed by column name.
type TransformedRow struct {
	Data map[string]interface{}
}

// PipelineConfig holds configuration for a pipeline instance
type PipelineConfig struct {
	Name           string
	BatchSize      int           // Number of files to buffer before flushing
	BatchSizeBytes int64         // Size in bytes to buffer before flushing
	FlushInterval  time.Duration // Max time to wait before flushing
	WorkerCount    int           // Number of concurrent workers
	OutputDir      string        // Directory for aggregated CSVs
	RetryAttempts  int           // Number of attempts recorded before a job is given up
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig(name string) PipelineConfig {
	return PipelineConfig{
		Name:           name,
		BatchSize:      20,
		BatchSizeBytes: 10 * 1024 * 1024, // 10MB
		FlushInterval:  5 * time.Minute,
		WorkerCount:    4,
		OutputDir:      "data/output/" + name,
		RetryAttempts:  3,
	}
}

// PipelineStatus represents the current state of a pipeline run
type PipelineStatus string

const (
	StatusPending    PipelineStatus = "pending"
	StatusProcessing PipelineStatus = "processing"
	StatusCompleted  PipelineStatus = "completed"
	StatusFailed     PipelineStatus = "failed"
)

// FileJobStatus represents the state of a single file processing job
type FileJobStatus string

const (
	FileStatusQueued     FileJobStatus = "queued"
	FileStatusProcessing FileJobStatus = "processing"
	FileStatusCompleted  FileJobStatus = "completed"
	FileStatusFailed     FileJobStatus = "failed"
)

// PipelineRun tracks a single execution of a pipeline for a specific date
type PipelineRun struct {
	ID             int64          `db:"id"`
	PipelineName   string         `db:"pipeline_name"`
	Date           time.Time      `db:"date"`
	Status         PipelineStatus `db:"status"`
	TotalFiles     int            `db:"total_files"`
	ProcessedFiles int            `db:"processed_files"`
	TotalRows      int            `db:"total_rows"`
	StartedAt      time.Time      `db:"started_at"`
	CompletedAt    *time.Time     `db:"completed_at"`
	ErrorMessage   string         `db:"error_message"`
}

// FileJob tracks the processing of a single file
type FileJob struct {
	ID            int64         `db:"id"`
	PipelineRunID int64         `db:"pipeline_run_id"`
	FilePath      string        `db:"file_path"`
	Status        FileJobStatus `db:"status"`
	ErrorMessage  string        `db:"error_message"`
	ProcessedAt   *time.Time    `db:"processed_at"`
	RetryCount    int           `db:"retry_count"`
}

// RunStore persists run and file-job bookkeeping.
type RunStore interface {
	CreatePipelineRun(ctx context.Context, run *PipelineRun) error
	UpdatePipelineRun(ctx context.Context, run *PipelineRun) error
	GetPipelineRun(ctx context.Context, id int64) (*PipelineRun, error)
	GetPipelineRunByDate(ctx context.Context, pipelineName string, date time.Time) (*PipelineRun, error)
	CreateFileJob(ctx context.Context, job *FileJob) error
	UpdateFileJob(ctx context.Context, job *FileJob) error
	GetFailedFileJobs(ctx context.Context, pipelineName string, maxRetries int) ([]*FileJob, error)
	IncrementProcessedFiles(ctx context.Context, runID int64) error
	AddRowCount(ctx context.Context, runID int64, count int) error
}

// FlushFunc is invoked with the path of every CSV the aggregator writes.
type FlushFunc func(ctx context.Context, csvPath string) error
