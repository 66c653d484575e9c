package replenishment

import (
	"fmt"
	"math"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline"
	"github.com/shopspring/decimal"
)

// Calculator evaluates the replenishment position of products.
type Calculator struct {
	policy Policy
}

// NewCalculator creates a calculator for the given policy
func NewCalculator(policy Policy) (*Calculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{policy: policy}, nil
}

// Evaluate derives gaps, coverage, reorder point, status and suggested order for every record.
// The batch fails on the first invalid record.
func (c *Calculator) Evaluate(records []InventoryStatusRecord) ([]StatusResult, error) {
	if err := ValidateRecords(records); err != nil {
		return nil, err
	}

	out := make([]StatusResult, 0, len(records))
	for i, rec := range records {
		r, err := c.evaluate(i, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Calculator) evaluate(row int, rec InventoryStatusRecord) (StatusResult, error) {
	r := StatusResult{InventoryStatusRecord: rec}

	// 1. Gaps to target
	r.InventoryGap = rec.TargetInventory - rec.SellableInventory
	r.AvailableGap = rec.TargetInventory - rec.AvailableInventory

	// 2. Days of inventory
	if rec.DailyDemand == 0 {
		return StatusResult{}, domain.NewRecordError(row, rec.ProductID, "days of inventory",
			fmt.Errorf("%w: daily demand is zero", domain.ErrDivisionByZero))
	}
	r.DaysOfInventory = pipeline.RoundFloat(rec.SellableInventory/rec.DailyDemand, 1)
	r.AvailableDays = pipeline.RoundFloat(rec.AvailableInventory/rec.DailyDemand, 1)

	// 3. Reorder point and stock split
	leadTimeDemand := rec.DailyDemand * rec.LeadTime
	r.ReorderPoint = pipeline.RoundFloat(leadTimeDemand, 0)
	r.SafetyStock = pipeline.RoundFloat(leadTimeDemand*c.policy.SafetyStockFraction, 0)
	r.CycleStock = rec.TargetInventory - r.SafetyStock

	// 4. Status and order
	r.Status = Classify(rec.SellableInventory, r.ReorderPoint, c.policy.MonitorBand)
	r.SuggestedOrder = SuggestedOrder(rec.TargetInventory, rec.SellableInventory, r.Status)
	r.EstimatedOrderCost = decimal.Zero
	if rec.UnitCost != nil {
		r.EstimatedOrderCost = decimal.NewFromFloat(r.SuggestedOrder).Mul(*rec.UnitCost).Round(2)
	}

	// 5. Utilization against target
	if rec.TargetInventory == 0 {
		return StatusResult{}, domain.NewRecordError(row, rec.ProductID, "target utilization",
			fmt.Errorf("%w: target inventory is zero", domain.ErrDivisionByZero))
	}
	r.TargetUtilizationPct = pipeline.RoundFloat(rec.SellableInventory/rec.TargetInventory*100, 1)
	r.AvailableUtilizationPct = pipeline.RoundFloat(rec.AvailableInventory/rec.TargetInventory*100, 1)

	return r, nil
}

// Summarize computes the key metrics of an evaluated batch.
func Summarize(results []StatusResult) Summary {
	s := Summary{
		TotalProducts:      len(results),
		TotalEstimatedCost: decimal.Zero,
		ABCDistribution:    make(map[string]int),
	}

	var gap, suggested float64
	for _, r := range results {
		switch r.Status {
		case domain.StatusReorderNow:
			s.ReorderCount++
		case domain.StatusMonitor:
			s.MonitorCount++
		case domain.StatusOK:
			s.OKCount++
		}
		gap += r.InventoryGap
		suggested += r.SuggestedOrder
		s.TotalEstimatedCost = s.TotalEstimatedCost.Add(r.EstimatedOrderCost)
		if r.ABCSKU != "" {
			s.ABCDistribution[r.ABCSKU]++
		}
	}
	s.TotalGap = int64(math.Trunc(gap))
	s.TotalSuggested = int64(math.Trunc(suggested))
	return s
}

// ValidateRecords checks identifiers and numeric ranges of a batch.
func ValidateRecords(records []InventoryStatusRecord) error {
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		if rec.ProductID == "" {
			return domain.NewRecordError(i, "", "product_id", fmt.Errorf("%w: empty product identifier", domain.ErrInvalidInput))
		}
		if first, dup := seen[rec.ProductID]; dup {
			return domain.NewRecordError(i, rec.ProductID, "product_id",
				fmt.Errorf("%w: duplicate product identifier, first seen at row %d", domain.ErrInvalidInput, first))
		}
		seen[rec.ProductID] = i

		fields := []struct {
			name  string
			value float64
		}{
			{"target_inventory", rec.TargetInventory},
			{"sellable_inventory", rec.SellableInventory},
			{"available_inventory", rec.AvailableInventory},
			{"daily_demand", rec.DailyDemand},
			{"lead_time", rec.LeadTime},
			{"shelf_life_days", rec.ShelfLifeDays},
		}
		for _, f := range fields {
			if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
				return domain.NewRecordError(i, rec.ProductID, f.name,
					fmt.Errorf("%w: %v is not a finite number", domain.ErrInvalidInput, f.value))
			}
			if f.value < 0 {
				return domain.NewRecordError(i, rec.ProductID, f.name,
					fmt.Errorf("%w: %v is negative", domain.ErrInvalidInput, f.value))
			}
		}
		if rec.UnitCost != nil && rec.UnitCost.IsNegative() {
			return domain.NewRecordError(i, rec.ProductID, "unit_cost",
				fmt.Errorf("%w: %s is negative", domain.ErrInvalidInput, rec.UnitCost))
		}
	}
	return nil
}
