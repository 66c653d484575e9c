package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/shelfstock/internal/cache"
	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/replenishment"
	"github.com/andresuchdata/shelfstock/internal/repository"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/rs/zerolog/log"
)

type ReplenishmentInput struct {
	Records []replenishment.InventoryStatusRecord
	Source  string
	Persist bool
}

type ReplenishmentRun struct {
	Run     *domain.CalculationRun       `json:"run,omitempty"`
	Results []replenishment.StatusResult `json:"results"`
	Summary replenishment.Summary        `json:"summary"`
}

type ReplenishmentService struct {
	repo   repository.ReplenishmentRepository
	cache  cache.ReplenishmentCache
	policy replenishment.Policy
	now    func() time.Time
}

func NewReplenishmentService(repo repository.ReplenishmentRepository, cacheImpl cache.ReplenishmentCache, policy replenishment.Policy) *ReplenishmentService {
	if repo == nil {
		repo = repository.NewMemoryReplenishmentRepository()
	}
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReplenishmentCache()
	}
	return &ReplenishmentService{repo: repo, cache: cacheImpl, policy: policy, now: time.Now}
}

func (s *ReplenishmentService) Evaluate(ctx context.Context, in ReplenishmentInput) (*ReplenishmentRun, error) {
	calc, err := replenishment.NewCalculator(s.policy)
	if err != nil {
		return nil, err
	}

	results, err := calc.Evaluate(in.Records)
	if err != nil {
		return nil, err
	}

	out := &ReplenishmentRun{Results: results, Summary: replenishment.Summarize(results)}
	if !in.Persist {
		return out, nil
	}

	run, err := newCalculationRun(domain.KindReplenishment, in.Source, len(results), s.policy, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveRun(ctx, run, results); err != nil {
		return nil, fmt.Errorf("save replenishment run: %w", err)
	}

	// A new snapshot makes every cached summary stale
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("replenishment: cache invalidate failed")
	}

	log.Info().
		Str("run_id", run.ID).
		Int("records", run.RecordCount).
		Int("reorder", out.Summary.ReorderCount).
		Msg("Replenishment run saved")

	out.Run = run
	return out, nil
}

func (s *ReplenishmentService) EvaluateTable(ctx context.Context, t *tabular.Table, in ReplenishmentInput) (*ReplenishmentRun, error) {
	records, err := replenishment.RecordsFromTable(t)
	if err != nil {
		return nil, err
	}
	in.Records = records
	return s.Evaluate(ctx, in)
}

// GetSummary summarizes the latest persisted snapshot, narrowed by filter.
func (s *ReplenishmentService) GetSummary(ctx context.Context, filter domain.ReplenishmentFilter) (*replenishment.Summary, error) {
	if summary, ok, err := s.cache.GetSummary(ctx, filter); err == nil && ok {
		return summary, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("replenishment: cache get summary failed")
	}

	_, results, err := s.repo.LatestResults(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := replenishment.Summarize(results)
	if err := s.cache.SetSummary(ctx, filter, summary); err != nil {
		log.Warn().Err(err).Msg("replenishment: cache set summary failed")
	}

	return &summary, nil
}

// GetLatest returns the latest persisted snapshot rows, narrowed by filter.
func (s *ReplenishmentService) GetLatest(ctx context.Context, filter domain.ReplenishmentFilter) (*ReplenishmentRun, error) {
	run, results, err := s.repo.LatestResults(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ReplenishmentRun{Run: run, Results: results, Summary: replenishment.Summarize(results)}, nil
}
