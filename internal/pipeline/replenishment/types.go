package replenishment

import (
	"fmt"
	"time"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/shopspring/decimal"
)

// Policy holds the classifier parameters.
type Policy struct {
	MonitorBand         decimal.Decimal // Multiple of the reorder point below which a product is watched
	SafetyStockFraction float64         // Share of lead time demand held as safety stock
}

// DefaultPolicy watches products up to 1.2x their reorder point and holds half of lead time
// demand as safety stock.
func DefaultPolicy() Policy {
	return Policy{
		MonitorBand:         decimal.RequireFromString("1.2"),
		SafetyStockFraction: 0.5,
	}
}

// Validate checks the policy parameters.
func (p Policy) Validate() error {
	if p.MonitorBand.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: monitor band must be at least 1, got %s", domain.ErrInvalidInput, p.MonitorBand)
	}
	if !(p.SafetyStockFraction >= 0 && p.SafetyStockFraction <= 1) {
		return fmt.Errorf("%w: safety stock fraction must be in [0,1], got %v", domain.ErrInvalidInput, p.SafetyStockFraction)
	}
	return nil
}

// InventoryStatusRecord is the current stock position of one product.
type InventoryStatusRecord struct {
	ProductID          string           `json:"product_id"`
	InventoryID        string           `json:"inventory_id,omitempty"`
	ABCSKU             string           `json:"abc_sku,omitempty"`
	TargetInventory    float64          `json:"target_inventory"`
	SellableInventory  float64          `json:"sellable_inventory"`
	AvailableInventory float64          `json:"available_inventory"`
	DailyDemand        float64          `json:"daily_demand"`
	LeadTime           float64          `json:"lead_time"`
	ShelfLifeDays      float64          `json:"shelf_life_days,omitempty"`
	LastOrderDate      *time.Time       `json:"last_order_date,omitempty"`
	UnitCost           *decimal.Decimal `json:"unit_cost,omitempty"`
}

// StatusResult is a record with every derived replenishment field.
type StatusResult struct {
	InventoryStatusRecord

	InventoryGap            float64                    `json:"inventory_gap"`
	AvailableGap            float64                    `json:"available_gap"`
	DaysOfInventory         float64                    `json:"days_of_inventory"`
	AvailableDays           float64                    `json:"available_days"`
	ReorderPoint            float64                    `json:"reorder_point"`
	SafetyStock             float64                    `json:"safety_stock"`
	CycleStock              float64                    `json:"cycle_stock"`
	Status                  domain.ReplenishmentStatus `json:"replenishment_status"`
	SuggestedOrder          float64                    `json:"suggested_order"`
	EstimatedOrderCost      decimal.Decimal            `json:"estimated_order_cost"`
	TargetUtilizationPct    float64                    `json:"target_utilization_pct"`
	AvailableUtilizationPct float64                    `json:"available_utilization_pct"`
}

// Summary holds the key metrics of an evaluated batch.
type Summary struct {
	TotalProducts      int             `json:"total_products"`
	ReorderCount       int             `json:"reorder_count"`
	MonitorCount       int             `json:"monitor_count"`
	OKCount            int             `json:"ok_count"`
	TotalGap           int64           `json:"total_gap"`
	TotalSuggested     int64           `json:"total_suggested"`
	TotalEstimatedCost decimal.Decimal `json:"total_estimated_cost"`
	ABCDistribution    map[string]int  `json:"abc_distribution"`
}

// OutputFormat defines the column set of the output CSV
type OutputFormat string

const (
	FormatOverview OutputFormat = "overview" // The inventory overview columns
	FormatFull     OutputFormat = "full"     // Inputs and every derived field
)

// ParseOutputFormat returns the format for a name, defaulting to FormatFull.
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch OutputFormat(name) {
	case "", FormatFull:
		return FormatFull, nil
	case FormatOverview:
		return FormatOverview, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q", domain.ErrInvalidInput, name)
}

// Config holds configuration for the replenishment pipeline
type Config struct {
	Policy          Policy
	Format          OutputFormat
	InputDateFormat string
	RunDate         time.Time
}
