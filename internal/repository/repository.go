package repository

import (
	"context"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/replenishment"
	"github.com/andresuchdata/shelfstock/internal/pipeline/shelf_life"
)

type StockTargetRepository interface {
	SaveRun(ctx context.Context, run *domain.CalculationRun, results []shelf_life.StockTargets) error
	GetRun(ctx context.Context, id string) (*domain.CalculationRun, []shelf_life.StockTargets, error)
}

type ReplenishmentRepository interface {
	SaveRun(ctx context.Context, run *domain.CalculationRun, results []replenishment.StatusResult) error
	// LatestResults returns the most recent run (or filter.RunID) with its rows narrowed by filter.
	LatestResults(ctx context.Context, filter domain.ReplenishmentFilter) (*domain.CalculationRun, []replenishment.StatusResult, error)
}
