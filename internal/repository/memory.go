package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/replenishment"
	"github.com/andresuchdata/shelfstock/internal/pipeline/shelf_life"
)

// MemoryStockTargetRepository keeps runs in process. Used when no database is configured.
type MemoryStockTargetRepository struct {
	mu      sync.RWMutex
	runs    map[string]domain.CalculationRun
	results map[string][]shelf_life.StockTargets
}

func NewMemoryStockTargetRepository() *MemoryStockTargetRepository {
	return &MemoryStockTargetRepository{
		runs:    make(map[string]domain.CalculationRun),
		results: make(map[string][]shelf_life.StockTargets),
	}
}

func (r *MemoryStockTargetRepository) SaveRun(ctx context.Context, run *domain.CalculationRun, results []shelf_life.StockTargets) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	r.results[run.ID] = append([]shelf_life.StockTargets(nil), results...)
	return nil
}

func (r *MemoryStockTargetRepository) GetRun(ctx context.Context, id string) (*domain.CalculationRun, []shelf_life.StockTargets, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, nil, fmt.Errorf("stock target run %s: %w", id, domain.ErrNotFound)
	}
	return &run, append([]shelf_life.StockTargets(nil), r.results[id]...), nil
}

// MemoryReplenishmentRepository keeps runs in process. Used when no database is configured.
type MemoryReplenishmentRepository struct {
	mu      sync.RWMutex
	order   []string
	runs    map[string]domain.CalculationRun
	results map[string][]replenishment.StatusResult
}

func NewMemoryReplenishmentRepository() *MemoryReplenishmentRepository {
	return &MemoryReplenishmentRepository{
		runs:    make(map[string]domain.CalculationRun),
		results: make(map[string][]replenishment.StatusResult),
	}
}

func (r *MemoryReplenishmentRepository) SaveRun(ctx context.Context, run *domain.CalculationRun, results []replenishment.StatusResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[run.ID]; !exists {
		r.order = append(r.order, run.ID)
	}
	r.runs[run.ID] = *run
	r.results[run.ID] = append([]replenishment.StatusResult(nil), results...)
	return nil
}

func (r *MemoryReplenishmentRepository) LatestResults(ctx context.Context, filter domain.ReplenishmentFilter) (*domain.CalculationRun, []replenishment.StatusResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f := filter.Normalize()
	id := f.RunID
	if id == "" {
		if len(r.order) == 0 {
			return nil, nil, fmt.Errorf("replenishment run: %w", domain.ErrNotFound)
		}
		id = r.order[len(r.order)-1]
	}
	run, ok := r.runs[id]
	if !ok {
		return nil, nil, fmt.Errorf("replenishment run %s: %w", id, domain.ErrNotFound)
	}

	var out []replenishment.StatusResult
	for _, res := range r.results[id] {
		if matches(f.ABCSKUs, res.ABCSKU) && matches(f.Statuses, res.Status.String()) {
			out = append(out, res)
		}
	}
	return &run, out, nil
}

func matches(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

var (
	_ StockTargetRepository   = (*MemoryStockTargetRepository)(nil)
	_ ReplenishmentRepository = (*MemoryReplenishmentRepository)(nil)
)
