package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRunStore keeps run bookkeeping in process. Used when no database is configured.
type MemoryRunStore struct {
	mu     sync.Mutex
	nextID int64
	runs   map[int64]*PipelineRun
	jobs   map[int64]*FileJob
}

// NewMemoryRunStore creates an empty store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs: make(map[int64]*PipelineRun),
		jobs: make(map[int64]*FileJob),
	}
}

func (s *MemoryRunStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryRunStore) CreatePipelineRun(ctx context.Context, run *PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.ID = s.id()
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *MemoryRunStore) UpdatePipelineRun(ctx context.Context, run *PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.runs[run.ID]
	if !ok {
		return fmt.Errorf("pipeline run %d not found", run.ID)
	}
	stored.Status = run.Status
	stored.TotalFiles = run.TotalFiles
	stored.CompletedAt = run.CompletedAt
	stored.ErrorMessage = run.ErrorMessage
	return nil
}

func (s *MemoryRunStore) GetPipelineRun(ctx context.Context, id int64) (*PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("pipeline run %d not found", id)
	}
	cp := *run
	return &cp, nil
}

func (s *MemoryRunStore) GetPipelineRunByDate(ctx context.Context, pipelineName string, date time.Time) (*PipelineRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range s.runs {
		if run.PipelineName == pipelineName && run.Date.Equal(date) {
			cp := *run
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryRunStore) CreateFileJob(ctx context.Context, job *FileJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.ID = s.id()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *MemoryRunStore) UpdateFileJob(ctx context.Context, job *FileJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("file job %d not found", job.ID)
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *MemoryRunStore) GetFailedFileJobs(ctx context.Context, pipelineName string, maxRetries int) ([]*FileJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*FileJob
	for _, job := range s.jobs {
		run, ok := s.runs[job.PipelineRunID]
		if !ok || run.PipelineName != pipelineName {
			continue
		}
		if job.Status == FileStatusFailed && job.RetryCount < maxRetries {
			cp := *job
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryRunStore) IncrementProcessedFiles(ctx context.Context, runID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("pipeline run %d not found", runID)
	}
	run.ProcessedFiles++
	return nil
}

func (s *MemoryRunStore) AddRowCount(ctx context.Context, runID int64, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("pipeline run %d not found", runID)
	}
	run.TotalRows += count
	return nil
}

// Jobs returns a snapshot of all file jobs for a run, ordered by ID.
func (s *MemoryRunStore) Jobs(runID int64) []FileJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []FileJob
	for _, job := range s.jobs {
		if job.PipelineRunID == runID {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ RunStore = (*MemoryRunStore)(nil)
