package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/shelf_life"
	"github.com/andresuchdata/shelfstock/internal/repository"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StockTargetInput is one derivation request. A nil Policy uses the service default.
type StockTargetInput struct {
	Records []shelf_life.ProductStockRecord
	Policy  *shelf_life.Policy
	Source  string
	Persist bool
}

// StockTargetRun is the outcome of a derivation. Run is nil unless the results were persisted.
type StockTargetRun struct {
	Run     *domain.CalculationRun    `json:"run,omitempty"`
	Results []shelf_life.StockTargets `json:"results"`
}

type StockTargetService struct {
	repo   repository.StockTargetRepository
	policy shelf_life.Policy
	now    func() time.Time
}

func NewStockTargetService(repo repository.StockTargetRepository, policy shelf_life.Policy) *StockTargetService {
	if repo == nil {
		repo = repository.NewMemoryStockTargetRepository()
	}
	return &StockTargetService{repo: repo, policy: policy, now: time.Now}
}

// DefaultPolicy returns the policy applied when a request does not carry one.
func (s *StockTargetService) DefaultPolicy() shelf_life.Policy {
	return s.policy
}

// Compute derives stock targets for every record. The whole batch fails on the first bad record.
func (s *StockTargetService) Compute(ctx context.Context, in StockTargetInput) (*StockTargetRun, error) {
	policy := s.policy
	if in.Policy != nil {
		policy = *in.Policy
	}

	calc, err := shelf_life.NewCalculator(policy)
	if err != nil {
		return nil, err
	}

	results, err := calc.Derive(in.Records)
	if err != nil {
		return nil, err
	}

	out := &StockTargetRun{Results: results}
	if !in.Persist {
		return out, nil
	}

	run, err := newCalculationRun(domain.KindStockTargets, in.Source, len(results), policy, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveRun(ctx, run, results); err != nil {
		return nil, fmt.Errorf("save stock target run: %w", err)
	}

	log.Info().
		Str("run_id", run.ID).
		Int("records", run.RecordCount).
		Msg("Stock target run saved")

	out.Run = run
	return out, nil
}

// ComputeTable parses an input table and derives it.
func (s *StockTargetService) ComputeTable(ctx context.Context, t *tabular.Table, in StockTargetInput) (*StockTargetRun, error) {
	records, err := shelf_life.RecordsFromTable(t)
	if err != nil {
		return nil, err
	}
	in.Records = records
	return s.Compute(ctx, in)
}

func (s *StockTargetService) GetRun(ctx context.Context, id string) (*StockTargetRun, error) {
	run, results, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StockTargetRun{Run: run, Results: results}, nil
}

func newCalculationRun(kind, source string, count int, policy interface{}, now time.Time) (*domain.CalculationRun, error) {
	payload, err := json.Marshal(policy)
	if err != nil {
		return nil, fmt.Errorf("encode %s policy: %w", kind, err)
	}
	now = now.UTC()
	return &domain.CalculationRun{
		ID:           uuid.NewString(),
		Kind:         kind,
		Source:       source,
		SnapshotDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		RecordCount:  count,
		Policy:       payload,
		CreatedAt:    now,
	}, nil
}
