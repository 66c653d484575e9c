package shelf_life

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(DefaultPolicy())
	require.NoError(t, err)
	return calc
}

func TestDeriveScenario(t *testing.T) {
	calc := newTestCalculator(t)

	results, err := calc.Derive([]ProductStockRecord{{
		Product:        "A",
		DailyDemand:    20,
		DemandStdDev:   5,
		LeadTimeDays:   15,
		ReviewTimeDays: 7,
		ServiceFactor:  1.96,
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 440.0, r.CycleStock)
	assert.Equal(t, 46.0, r.SafetyStock)
	assert.Equal(t, 486.0, r.TargetStock)
	assert.Equal(t, 22.0, r.PlanningHorizonDays)
	assert.Equal(t, 440.0, r.InitialTargetUnits)
	assert.Equal(t, 46.0, r.InitialSafetyStock)
	assert.Equal(t, 394.0, r.InitialCycleStock)
	assert.Equal(t, 3.1, r.InitialTargetWeeks)
	assert.Equal(t, 308.0, r.MaxAllowedUnits)
	assert.Equal(t, 308.0, r.FinalTargetUnits)
	assert.Equal(t, 0.0, r.FinalSafetyStock)
	assert.Equal(t, 308.0, r.FinalCycleStock)
	assert.InDelta(t, 2.2, r.FinalTargetWeeks, 1e-9)
	assert.InDelta(t, 15.4, r.MaxShelfLifeDays, 1e-9)
	assert.InDelta(t, 2.2, r.MaxShelfLifeWeeks, 1e-9)
	assert.Equal(t, 22.0, r.ShelfLife)
	assert.Equal(t, 0.7, r.ShelfLifeCap)
}

func TestSafetyStockUsesOriginalServiceFactor(t *testing.T) {
	calc := newTestCalculator(t)

	results, err := calc.Derive([]ProductStockRecord{{
		Product:        "A",
		DailyDemand:    20,
		DemandStdDev:   5,
		LeadTimeDays:   15,
		ReviewTimeDays: 7,
		ServiceFactor:  1.96,
	}})
	require.NoError(t, err)

	r := results[0]
	withOriginal := math.RoundToEven(1.96 * 5 * math.Sqrt(22))
	withOverride := math.RoundToEven(2.56 * 5 * math.Sqrt(22))
	require.NotEqual(t, withOriginal, withOverride)

	assert.Equal(t, withOriginal, r.SafetyStock)
	assert.Equal(t, withOriginal, r.InitialSafetyStock)
	assert.Equal(t, 2.56, r.ServiceFactor)
	assert.Equal(t, 1.96, r.OriginalServiceFactor)
}

func TestDeriveSampleInvariants(t *testing.T) {
	calc := newTestCalculator(t)
	records := SampleRecords()

	results, err := calc.Derive(records)
	require.NoError(t, err)
	require.Len(t, results, len(records))

	expected := map[string]struct{ cycle, safety, initial, final float64 }{
		"Product A": {440, 46, 440, 308},
		"Product B": {960, 33, 660, 462},
		"Product C": {960, 58, 880, 616},
	}

	for _, r := range results {
		t.Run(r.Product, func(t *testing.T) {
			maxUnits := math.RoundToEven(r.DailyDemand * r.ShelfLife * r.ShelfLifeCap)
			assert.LessOrEqual(t, r.FinalTargetUnits, maxUnits)
			assert.LessOrEqual(t, r.FinalTargetUnits, r.MaxAllowedUnits)
			assert.Zero(t, r.FinalSafetyStock)
			assert.Equal(t, r.FinalTargetUnits, r.FinalCycleStock)
			assert.LessOrEqual(t, r.FinalTargetWeeks, r.MaxShelfLifeWeeks)

			want := expected[r.Product]
			assert.Equal(t, want.cycle, r.CycleStock)
			assert.Equal(t, want.safety, r.SafetyStock)
			assert.Equal(t, want.initial, r.InitialTargetUnits)
			assert.Equal(t, want.final, r.FinalTargetUnits)

			require.NotNil(t, r.DailySales)
			assert.Equal(t, r.DailyDemand-2, *r.DailySales)
		})
	}
}

func TestDeriveIsIdempotent(t *testing.T) {
	calc := newTestCalculator(t)
	records := SampleRecords()

	first, err := calc.Derive(records)
	require.NoError(t, err)
	second, err := calc.Derive(records)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1.96, records[0].ServiceFactor, "input records must not be mutated")
}

func TestDeriveZeroDemand(t *testing.T) {
	calc := newTestCalculator(t)

	_, err := calc.Derive([]ProductStockRecord{
		{Product: "A", DailyDemand: 20, DemandStdDev: 5, LeadTimeDays: 15, ReviewTimeDays: 7, ServiceFactor: 1.96},
		{Product: "Z", DailyDemand: 0, DemandStdDev: 1, LeadTimeDays: 3, ReviewTimeDays: 7, ServiceFactor: 1.96},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDivisionByZero))

	var recErr *domain.RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, 1, recErr.Row)
	assert.Equal(t, "Z", recErr.Record)
	assert.Equal(t, "initial target weeks", recErr.Rule)
}

func TestValidateRecords(t *testing.T) {
	valid := ProductStockRecord{Product: "A", DailyDemand: 1, DemandStdDev: 1, LeadTimeDays: 1, ReviewTimeDays: 1, ServiceFactor: 1}

	tests := []struct {
		name    string
		records func() []ProductStockRecord
		rule    string
	}{
		{
			name: "negative demand",
			records: func() []ProductStockRecord {
				r := valid
				r.DailyDemand = -1
				return []ProductStockRecord{r}
			},
			rule: "daily demand",
		},
		{
			name: "negative lead time",
			records: func() []ProductStockRecord {
				r := valid
				r.LeadTimeDays = -3
				return []ProductStockRecord{r}
			},
			rule: "lead time days",
		},
		{
			name: "NaN std dev",
			records: func() []ProductStockRecord {
				r := valid
				r.DemandStdDev = math.NaN()
				return []ProductStockRecord{r}
			},
			rule: "demand std dev",
		},
		{
			name: "cap above one",
			records: func() []ProductStockRecord {
				r := valid
				r.ShelfLifeCapFraction = 1.5
				return []ProductStockRecord{r}
			},
			rule: "shelf life cap",
		},
		{
			name: "empty product",
			records: func() []ProductStockRecord {
				r := valid
				r.Product = ""
				return []ProductStockRecord{r}
			},
			rule: "product",
		},
		{
			name: "duplicate product",
			records: func() []ProductStockRecord {
				return []ProductStockRecord{valid, valid}
			},
			rule: "product",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecords(tt.records())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))

			var recErr *domain.RecordError
			require.True(t, errors.As(err, &recErr))
			assert.Equal(t, tt.rule, recErr.Rule)
		})
	}

	assert.NoError(t, ValidateRecords([]ProductStockRecord{valid}))
}

func TestPerRecordShelfLifeOverridesPolicy(t *testing.T) {
	calc := newTestCalculator(t)

	results, err := calc.Derive([]ProductStockRecord{{
		Product:              "M",
		DailyDemand:          10,
		DemandStdDev:         2,
		LeadTimeDays:         5,
		ReviewTimeDays:       7,
		ServiceFactor:        1.65,
		ShelfLifeDays:        10,
		ShelfLifeCapFraction: 0.5,
	}})
	require.NoError(t, err)

	r := results[0]
	assert.Equal(t, 10.0, r.ShelfLife)
	assert.Equal(t, 0.5, r.ShelfLifeCap)
	assert.Equal(t, 100.0, r.InitialTargetUnits)
	assert.Equal(t, 50.0, r.MaxAllowedUnits)
	assert.Equal(t, 50.0, r.FinalTargetUnits)
}

func TestNewCalculatorRejectsBadPolicy(t *testing.T) {
	_, err := NewCalculator(Policy{ShelfLifeDays: 22, CapFraction: 0, HighZScore: 2.56})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = NewCalculator(Policy{ShelfLifeDays: -1, CapFraction: 0.7, HighZScore: 2.56})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestToTableFinalColumnOrder(t *testing.T) {
	calc := newTestCalculator(t)
	results, err := calc.Derive(SampleRecords())
	require.NoError(t, err)

	data, err := tabular.Bytes(ToTable(results, FormatFinal))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t,
		"Product,Initial Cycle Stock,Initial Safety Stock,Initial Target Inventory Units,"+
			"Final Target Inventory Units,Final Cycle Stock,Final Safety Stock,Initial Target Weeks,"+
			"Final Target Weeks,Shelf Life Days,Shelf Life Cap,Max Shelf Life Days,Max Shelf Life Weeks,"+
			"Daily Sales,Daily Demand",
		lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Product A,394,46,440,308,308,0,3.1,"), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], ",18,20"), lines[1])
}

func TestToTableCompleteBlankDailySales(t *testing.T) {
	calc := newTestCalculator(t)
	results, err := calc.Derive([]ProductStockRecord{{
		Product: "A", DailyDemand: 20, DemandStdDev: 5, LeadTimeDays: 15, ReviewTimeDays: 7, ServiceFactor: 1.96,
	}})
	require.NoError(t, err)

	table := ToTable(results, FormatComplete)
	assert.Equal(t, completeColumns, table.Header())
	assert.Equal(t, "", table.Value(ColDailySales, 0))
	assert.Equal(t, "2.56", table.Value(ColZScore, 0))
	assert.Equal(t, "1.96", table.Value(ColOriginalZScore, 0))
	assert.Equal(t, "46", table.Value(ColSafetyStock, 0))
}
