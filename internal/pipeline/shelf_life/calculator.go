package shelf_life

import (
	"fmt"
	"math"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline"
)

// Calculator derives shelf-life capped stock targets from product records.
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

// Policy returns the policy the calculator applies.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// Derive computes stock targets for every record. The batch fails on the first invalid record;
// the returned error is a *domain.RecordError naming the row and the rule that failed.
func (c *Calculator) Derive(records []ProductStockRecord) ([]StockTargets, error) {
	if err := ValidateRecords(records); err != nil {
		return nil, err
	}

	out := make([]StockTargets, 0, len(records))
	for i, rec := range records {
		// 1. Basic metrics with the record's own service factor. Frozen from here on.
		basic := computeBasicMetrics(rec)

		// 2. Report the policy's high Z-score instead of the original one
		reported := rec
		reported.ServiceFactor = c.policy.HighZScore

		// 3-7. Shelf life targets and cap
		targets, err := c.applyShelfLife(i, reported, basic)
		if err != nil {
			return nil, err
		}
		targets.OriginalServiceFactor = rec.ServiceFactor
		out = append(out, targets)
	}
	return out, nil
}

// computeBasicMetrics returns cycle, safety and target stock over the planning horizon.
func computeBasicMetrics(rec ProductStockRecord) basicMetrics {
	horizon := rec.LeadTimeDays + rec.ReviewTimeDays
	cycle := pipeline.RoundFloat(rec.DailyDemand*horizon, 0)
	safety := pipeline.RoundFloat(rec.ServiceFactor*rec.DemandStdDev*math.Sqrt(horizon), 0)

	return basicMetrics{
		CycleStock:          cycle,
		SafetyStock:         safety,
		TargetStock:         cycle + safety,
		PlanningHorizonDays: horizon,
	}
}

// shelfLifeFor resolves the shelf life and cap of a record, falling back to the policy.
func (c *Calculator) shelfLifeFor(rec ProductStockRecord) (days, capFraction float64) {
	days = c.policy.ShelfLifeDays
	if rec.ShelfLifeDays > 0 {
		days = rec.ShelfLifeDays
	}
	capFraction = c.policy.CapFraction
	if rec.ShelfLifeCapFraction > 0 {
		capFraction = rec.ShelfLifeCapFraction
	}
	return days, capFraction
}

func (c *Calculator) applyShelfLife(row int, rec ProductStockRecord, basic basicMetrics) (StockTargets, error) {
	shelfLife, capFraction := c.shelfLifeFor(rec)

	t := StockTargets{
		ProductStockRecord:  rec,
		CycleStock:          basic.CycleStock,
		SafetyStock:         basic.SafetyStock,
		TargetStock:         basic.TargetStock,
		PlanningHorizonDays: basic.PlanningHorizonDays,
		ShelfLife:           shelfLife,
		ShelfLifeCap:        capFraction,
	}

	// 3. Initial target covers 100% of shelf life; safety stock carries over from stage 1
	t.InitialTargetUnits = pipeline.RoundFloat(rec.DailyDemand*shelfLife, 0)
	t.InitialSafetyStock = basic.SafetyStock
	t.InitialCycleStock = t.InitialTargetUnits - basic.SafetyStock

	// 4. Initial target in weeks of demand
	if rec.DailyDemand == 0 {
		return StockTargets{}, domain.NewRecordError(row, rec.Product, "initial target weeks",
			fmt.Errorf("%w: daily demand is zero", domain.ErrDivisionByZero))
	}
	t.InitialTargetWeeks = pipeline.RoundFloat(t.InitialTargetUnits/rec.DailyDemand/daysInWeek, 1)

	// 5. Cap at a fraction of shelf life
	t.MaxShelfLifeDays = shelfLife * capFraction
	t.MaxShelfLifeWeeks = t.MaxShelfLifeDays / daysInWeek
	t.MaxAllowedUnits = pipeline.RoundFloat(rec.DailyDemand*shelfLife*capFraction, 0)

	// 6. Final targets never exceed the cap
	t.FinalTargetUnits = math.Min(t.InitialTargetUnits, t.MaxAllowedUnits)
	t.FinalTargetWeeks = math.Min(t.InitialTargetWeeks, t.MaxShelfLifeWeeks)

	// 7. Capped inventory is all cycle stock
	t.FinalSafetyStock = 0
	t.FinalCycleStock = t.FinalTargetUnits

	return t, nil
}

// ValidateRecords checks identifiers and numeric ranges of a batch.
func ValidateRecords(records []ProductStockRecord) error {
	seen := make(map[string]int, len(records))
	for i, rec := range records {
		if rec.Product == "" {
			return domain.NewRecordError(i, "", "product", fmt.Errorf("%w: empty product identifier", domain.ErrInvalidInput))
		}
		if first, dup := seen[rec.Product]; dup {
			return domain.NewRecordError(i, rec.Product, "product",
				fmt.Errorf("%w: duplicate product identifier, first seen at row %d", domain.ErrInvalidInput, first))
		}
		seen[rec.Product] = i

		fields := []struct {
			name  string
			value float64
		}{
			{"daily demand", rec.DailyDemand},
			{"demand std dev", rec.DemandStdDev},
			{"lead time days", rec.LeadTimeDays},
			{"review time days", rec.ReviewTimeDays},
			{"service factor", rec.ServiceFactor},
			{"shelf life days", rec.ShelfLifeDays},
			{"shelf life cap", rec.ShelfLifeCapFraction},
		}
		for _, f := range fields {
			if err := nonNegative(f.value); err != nil {
				return domain.NewRecordError(i, rec.Product, f.name, err)
			}
		}
		if rec.ShelfLifeCapFraction > 1 {
			return domain.NewRecordError(i, rec.Product, "shelf life cap",
				fmt.Errorf("%w: cap fraction %v exceeds 1", domain.ErrInvalidInput, rec.ShelfLifeCapFraction))
		}
		if rec.DailySales != nil {
			if err := nonNegative(*rec.DailySales); err != nil {
				return domain.NewRecordError(i, rec.Product, "daily sales", err)
			}
		}
	}
	return nil
}

func nonNegative(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v is not a finite number", domain.ErrInvalidInput, v)
	}
	if v < 0 {
		return fmt.Errorf("%w: %v is negative", domain.ErrInvalidInput, v)
	}
	return nil
}
