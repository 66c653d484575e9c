package shelf_life

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/shelfstock/internal/domain"
)

const daysInWeek = 7

// Policy holds the stocking policy applied to every record of a run.
type Policy struct {
	ShelfLifeDays float64 // Default shelf life when a record does not carry its own
	CapFraction   float64 // Fraction of shelf life allowed as stocking horizon, in (0,1]
	HighZScore    float64 // Service factor reported after the basic metrics are computed
}

// DefaultPolicy returns the short-shelf-life policy: 22 days, 70% cap, Z = 2.56.
func DefaultPolicy() Policy {
	return Policy{
		ShelfLifeDays: 22,
		CapFraction:   0.7,
		HighZScore:    2.56,
	}
}

// Validate checks the policy parameters.
func (p Policy) Validate() error {
	switch {
	case !(p.ShelfLifeDays > 0) || math.IsInf(p.ShelfLifeDays, 0):
		return fmt.Errorf("%w: shelf life days must be positive, got %v", domain.ErrInvalidInput, p.ShelfLifeDays)
	case !(p.CapFraction > 0 && p.CapFraction <= 1):
		return fmt.Errorf("%w: inventory cap percentage must be in (0,1], got %v", domain.ErrInvalidInput, p.CapFraction)
	case !(p.HighZScore >= 0) || math.IsInf(p.HighZScore, 0):
		return fmt.Errorf("%w: high z-score must be non-negative, got %v", domain.ErrInvalidInput, p.HighZScore)
	}
	return nil
}

// ProductStockRecord is one input row per SKU.
type ProductStockRecord struct {
	Product              string   `json:"product"`
	DailyDemand          float64  `json:"daily_demand"`   // units/day
	DemandStdDev         float64  `json:"demand_std_dev"` // forecast error std dev
	LeadTimeDays         float64  `json:"lead_time_days"`
	ReviewTimeDays       float64  `json:"review_time_days"`
	ServiceFactor        float64  `json:"service_factor"`                    // Z-score
	ShelfLifeDays        float64  `json:"shelf_life_days,omitempty"`         // 0 = use policy
	ShelfLifeCapFraction float64  `json:"shelf_life_cap_fraction,omitempty"` // 0 = use policy
	DailySales           *float64 `json:"daily_sales,omitempty"`             // reporting passthrough
}

// basicMetrics is the frozen output of the first derivation stage. SafetyStock here always
// uses the record's original service factor.
type basicMetrics struct {
	CycleStock          float64
	SafetyStock         float64
	TargetStock         float64
	PlanningHorizonDays float64
}

// StockTargets is a fully derived record. The embedded ServiceFactor holds the policy's high
// Z-score; the value the safety stock was computed with is kept in OriginalServiceFactor.
type StockTargets struct {
	ProductStockRecord
	OriginalServiceFactor float64 `json:"original_service_factor"`

	// Stage 1-3, uncapped
	CycleStock          float64 `json:"cycle_stock"`
	SafetyStock         float64 `json:"safety_stock"`
	TargetStock         float64 `json:"target_stock"`
	PlanningHorizonDays float64 `json:"final_planning_horizon_days"`

	// Stage 4, 100% of shelf life
	InitialTargetUnits float64 `json:"initial_target_inventory_units"`
	InitialSafetyStock float64 `json:"initial_safety_stock"`
	InitialCycleStock  float64 `json:"initial_cycle_stock"`
	InitialTargetWeeks float64 `json:"initial_target_weeks"`

	// Stage 5-7, capped
	MaxAllowedUnits  float64 `json:"max_allowed_units"`
	FinalTargetUnits float64 `json:"final_target_inventory_units"`
	FinalTargetWeeks float64 `json:"final_target_weeks"`
	FinalSafetyStock float64 `json:"final_safety_stock"`
	FinalCycleStock  float64 `json:"final_cycle_stock"`

	// Shelf life reporting
	ShelfLife         float64 `json:"shelf_life"`
	ShelfLifeCap      float64 `json:"shelf_life_cap"`
	MaxShelfLifeDays  float64 `json:"max_shelf_life_days"`
	MaxShelfLifeWeeks float64 `json:"max_shelf_life_weeks"`
}

// OutputFormat defines the column set of the output CSV
type OutputFormat string

const (
	FormatFinal    OutputFormat = "final"    // The 15 planning columns, in the published order
	FormatComplete OutputFormat = "complete" // Inputs and every derived column
)

// ParseOutputFormat returns the format for a name, defaulting to FormatFinal.
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch OutputFormat(name) {
	case "", FormatFinal:
		return FormatFinal, nil
	case FormatComplete:
		return FormatComplete, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q", domain.ErrInvalidInput, name)
}

// Config holds configuration for the shelf life pipeline
type Config struct {
	Policy          Policy
	Format          OutputFormat
	InputDateFormat string    // Date layout prefix in input filenames
	RunDate         time.Time // Snapshot date for files without a date prefix
}
