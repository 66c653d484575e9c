package replenishment

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(DefaultPolicy())
	require.NoError(t, err)
	return calc
}

func TestClassifyBoundaries(t *testing.T) {
	band := DefaultPolicy().MonitorBand

	tests := []struct {
		name     string
		sellable float64
		rop      float64
		want     domain.ReplenishmentStatus
	}{
		{"below reorder point", 80, 100, domain.StatusReorderNow},
		{"equal to reorder point", 100, 100, domain.StatusReorderNow},
		{"just above reorder point", 101, 100, domain.StatusMonitor},
		{"equal to band", 120, 100, domain.StatusMonitor},
		{"above band", 120.5, 100, domain.StatusOK},
		{"band not representable in float", 3.6, 3, domain.StatusMonitor},
		{"zero reorder point with stock", 1, 0, domain.StatusOK},
		{"zero reorder point without stock", 0, 0, domain.StatusReorderNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.sellable, tt.rop, band))
		})
	}
}

func TestSuggestedOrder(t *testing.T) {
	assert.Equal(t, 50.0, SuggestedOrder(150, 100, domain.StatusReorderNow))
	assert.Equal(t, 0.0, SuggestedOrder(150, 110, domain.StatusMonitor))
	assert.Equal(t, 0.0, SuggestedOrder(150, 200, domain.StatusOK))
	assert.Equal(t, 0.0, SuggestedOrder(80, 100, domain.StatusReorderNow))
}

func TestEvaluateReorderNow(t *testing.T) {
	calc := newTestCalculator(t)
	cost := decimal.RequireFromString("2.50")

	results, err := calc.Evaluate([]InventoryStatusRecord{{
		ProductID:          "X1",
		ABCSKU:             "A",
		TargetInventory:    150,
		SellableInventory:  100,
		AvailableInventory: 90,
		DailyDemand:        10,
		LeadTime:           10,
		UnitCost:           &cost,
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 100.0, r.ReorderPoint)
	assert.Equal(t, domain.StatusReorderNow, r.Status)
	assert.Equal(t, 50.0, r.SuggestedOrder)
	assert.Equal(t, "125.00", r.EstimatedOrderCost.StringFixed(2))
	assert.Equal(t, 50.0, r.InventoryGap)
	assert.Equal(t, 60.0, r.AvailableGap)
	assert.Equal(t, 10.0, r.DaysOfInventory)
	assert.Equal(t, 9.0, r.AvailableDays)
	assert.Equal(t, 50.0, r.SafetyStock)
	assert.Equal(t, 100.0, r.CycleStock)
	assert.Equal(t, 66.7, r.TargetUtilizationPct)
	assert.Equal(t, 60.0, r.AvailableUtilizationPct)
}

func TestEvaluateSample(t *testing.T) {
	calc := newTestCalculator(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	results, err := calc.Evaluate(SampleRecords(now))
	require.NoError(t, err)
	require.Len(t, results, 8)

	p1 := results[0]
	assert.Equal(t, "P001", p1.ProductID)
	assert.Equal(t, "INV001", p1.InventoryID)
	assert.Equal(t, 175.0, p1.ReorderPoint)
	assert.Equal(t, 88.0, p1.SafetyStock, "87.5 rounds half to even")
	assert.Equal(t, 412.0, p1.CycleStock)
	assert.Equal(t, 16.8, p1.DaysOfInventory)
	assert.Equal(t, domain.StatusOK, p1.Status)
	require.NotNil(t, p1.LastOrderDate)
	assert.Equal(t, now.AddDate(0, 0, -5), *p1.LastOrderDate)

	summary := Summarize(results)
	assert.Equal(t, 8, summary.TotalProducts)
	assert.Equal(t, 0, summary.ReorderCount)
	assert.Equal(t, 8, summary.OKCount)
	assert.Equal(t, int64(480), summary.TotalGap)
	assert.Equal(t, int64(0), summary.TotalSuggested)
	assert.True(t, summary.TotalEstimatedCost.IsZero())
	assert.Equal(t, map[string]int{"A": 3, "B": 3, "C": 2}, summary.ABCDistribution)
}

func TestSummarizeCounts(t *testing.T) {
	results := []StatusResult{
		{InventoryStatusRecord: InventoryStatusRecord{ABCSKU: "A"}, Status: domain.StatusReorderNow, InventoryGap: 40, SuggestedOrder: 40, EstimatedOrderCost: decimal.NewFromInt(80)},
		{InventoryStatusRecord: InventoryStatusRecord{ABCSKU: "A"}, Status: domain.StatusMonitor, InventoryGap: 10, EstimatedOrderCost: decimal.Zero},
		{Status: domain.StatusOK, InventoryGap: -5, EstimatedOrderCost: decimal.Zero},
	}

	s := Summarize(results)
	assert.Equal(t, 3, s.TotalProducts)
	assert.Equal(t, 1, s.ReorderCount)
	assert.Equal(t, 1, s.MonitorCount)
	assert.Equal(t, 1, s.OKCount)
	assert.Equal(t, int64(45), s.TotalGap)
	assert.Equal(t, int64(40), s.TotalSuggested)
	assert.Equal(t, "80", s.TotalEstimatedCost.String())
	assert.Equal(t, map[string]int{"A": 2}, s.ABCDistribution)
}

func TestEvaluateErrors(t *testing.T) {
	calc := newTestCalculator(t)
	valid := InventoryStatusRecord{ProductID: "P1", TargetInventory: 10, SellableInventory: 5, AvailableInventory: 5, DailyDemand: 1, LeadTime: 1}

	zeroDemand := valid
	zeroDemand.DailyDemand = 0
	_, err := calc.Evaluate([]InventoryStatusRecord{zeroDemand})
	assert.True(t, errors.Is(err, domain.ErrDivisionByZero))

	zeroTarget := valid
	zeroTarget.TargetInventory = 0
	_, err = calc.Evaluate([]InventoryStatusRecord{zeroTarget})
	assert.True(t, errors.Is(err, domain.ErrDivisionByZero))
	var recErr *domain.RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, "target utilization", recErr.Rule)

	negative := valid
	negative.SellableInventory = -1
	_, err = calc.Evaluate([]InventoryStatusRecord{negative})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = calc.Evaluate([]InventoryStatusRecord{valid, valid})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestRecordsFromTable(t *testing.T) {
	table, err := tabular.ReadCSV(strings.NewReader(
		"Product ID,inventory_id,ABC SKU,target_inventory,sellable_inventory,available_inventory,daily_demand,lead_time,last_order_date,unit_cost\n" +
			"P001,INV001,a,500,420,380,25,7,2024-03-05,1.25\n" +
			"P002,INV002,,750,680,620,35,10,,\n"))
	require.NoError(t, err)

	records, err := RecordsFromTable(table)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "A", records[0].ABCSKU)
	require.NotNil(t, records[0].LastOrderDate)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *records[0].LastOrderDate)
	require.NotNil(t, records[0].UnitCost)
	assert.Equal(t, "1.25", records[0].UnitCost.String())

	assert.Nil(t, records[1].LastOrderDate)
	assert.Nil(t, records[1].UnitCost)
}

func TestRecordsFromTableRejectsBadDate(t *testing.T) {
	table, err := tabular.ReadCSV(strings.NewReader(
		"product_id,target_inventory,sellable_inventory,available_inventory,daily_demand,lead_time,last_order_date\n" +
			"P001,500,420,380,25,7,yesterday\n"))
	require.NoError(t, err)

	_, err = RecordsFromTable(table)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestToTableOverview(t *testing.T) {
	calc := newTestCalculator(t)
	results, err := calc.Evaluate(SampleRecords(time.Now()))
	require.NoError(t, err)

	table := ToTable(results, FormatOverview)
	assert.Equal(t, []string{
		"Product ID", "Inventory ID", "ABC SKU", "Target Inventory", "Sellable Inventory",
		"Available Inventory", "Days of Inventory", "Status", "Suggested Order",
	}, table.Header())
	assert.Equal(t, "P001", table.Value("Product ID", 0))
	assert.Equal(t, "OK", table.Value("Status", 0))
	assert.Equal(t, "16.8", table.Value("Days of Inventory", 0))
	assert.Equal(t, "0", table.Value("Suggested Order", 0))
}
