package config

import (
	"fmt"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/replenishment"
	"github.com/andresuchdata/shelfstock/internal/pipeline/shelf_life"
	"github.com/shopspring/decimal"
)

// StockTargetPolicy returns the shelf life policy configured for the process.
func (p PolicyConfig) StockTargetPolicy() shelf_life.Policy {
	return shelf_life.Policy{
		ShelfLifeDays: p.ShelfLifeDays,
		CapFraction:   p.InventoryCapPercentage,
		HighZScore:    p.HighZScore,
	}
}

// ReplenishmentPolicy returns the classifier policy configured for the process.
func (p PolicyConfig) ReplenishmentPolicy() (replenishment.Policy, error) {
	band, err := decimal.NewFromString(p.MonitorBand)
	if err != nil {
		return replenishment.Policy{}, fmt.Errorf("%w: monitor band %q: %v", domain.ErrInvalidInput, p.MonitorBand, err)
	}
	policy := replenishment.Policy{
		MonitorBand:         band,
		SafetyStockFraction: p.SafetyStockLeadFraction,
	}
	return policy, policy.Validate()
}
