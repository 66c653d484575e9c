package shelf_life

import (
	"fmt"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/tabular"
)

// Column names of the input and output tables.
const (
	ColProduct           = "Product"
	ColDailyDemand       = "Daily Demand"
	ColStdDemandForecast = "Std Demand Forecast"
	ColLeadTime          = "Lead Time"
	ColReviewTime        = "Review Time"
	ColZScore            = "Z-score"
	ColDailySales        = "Daily Sales"
	ColShelfLifeDays     = "Shelf Life Days"
	ColShelfLifeCap      = "Shelf Life Cap"
)

var (
	productAliases      = []string{ColProduct, "product_id", "sku", "identifier"}
	dailyDemandAliases  = []string{ColDailyDemand, "daily_demand"}
	stdDevAliases       = []string{ColStdDemandForecast, "demand_std_dev"}
	leadTimeAliases     = []string{ColLeadTime, "lead_time_days"}
	reviewTimeAliases   = []string{ColReviewTime, "review_time_days"}
	zScoreAliases       = []string{ColZScore, "service_factor"}
	shelfLifeAliases    = []string{ColShelfLifeDays, "shelf_life_days"}
	shelfLifeCapAliases = []string{ColShelfLifeCap, "shelf_life_cap_fraction"}
	dailySalesAliases   = []string{ColDailySales, "daily_sales"}
)

// RecordsFromTable builds validated product records from an input table. Required columns must
// exist and every required cell must hold a finite non-negative number.
func RecordsFromTable(t *tabular.Table) ([]ProductStockRecord, error) {
	productCol, ok := t.Lookup(productAliases...)
	if !ok {
		return nil, fmt.Errorf("%w: missing required column %q", domain.ErrInvalidInput, ColProduct)
	}

	required := []struct {
		aliases []string
		name    string
	}{
		{dailyDemandAliases, ColDailyDemand},
		{stdDevAliases, ColStdDemandForecast},
		{leadTimeAliases, ColLeadTime},
		{reviewTimeAliases, ColReviewTime},
		{zScoreAliases, ColZScore},
	}
	cols := make([]string, len(required))
	for i, r := range required {
		col, ok := t.Lookup(r.aliases...)
		if !ok {
			return nil, fmt.Errorf("%w: missing required column %q", domain.ErrInvalidInput, r.name)
		}
		cols[i] = col
	}
	shelfLifeCol, hasShelfLife := t.Lookup(shelfLifeAliases...)
	capCol, hasCap := t.Lookup(shelfLifeCapAliases...)
	salesCol, hasSales := t.Lookup(dailySalesAliases...)

	records := make([]ProductStockRecord, 0, t.Len())
	for row := 0; row < t.Len(); row++ {
		rec := ProductStockRecord{Product: t.Value(productCol, row)}

		values := make([]float64, len(cols))
		for i, col := range cols {
			v, present, err := t.Number(col, row)
			if err != nil {
				return nil, domain.NewRecordError(row, rec.Product, required[i].name, err)
			}
			if !present {
				return nil, domain.NewRecordError(row, rec.Product, required[i].name,
					fmt.Errorf("%w: value is missing", domain.ErrInvalidInput))
			}
			values[i] = v
		}
		rec.DailyDemand = values[0]
		rec.DemandStdDev = values[1]
		rec.LeadTimeDays = values[2]
		rec.ReviewTimeDays = values[3]
		rec.ServiceFactor = values[4]

		if hasShelfLife {
			v, present, err := positiveOptional(t, shelfLifeCol, row)
			if err != nil {
				return nil, domain.NewRecordError(row, rec.Product, ColShelfLifeDays, err)
			}
			if present {
				rec.ShelfLifeDays = v
			}
		}
		if hasCap {
			v, present, err := positiveOptional(t, capCol, row)
			if err != nil {
				return nil, domain.NewRecordError(row, rec.Product, ColShelfLifeCap, err)
			}
			if present {
				rec.ShelfLifeCapFraction = v
			}
		}
		if hasSales {
			v, present, err := t.Number(salesCol, row)
			if err != nil {
				return nil, domain.NewRecordError(row, rec.Product, ColDailySales, err)
			}
			if present {
				sales := v
				rec.DailySales = &sales
			}
		}

		records = append(records, rec)
	}

	if err := ValidateRecords(records); err != nil {
		return nil, err
	}
	return records, nil
}

// positiveOptional reads an optional cell that must be strictly positive when present.
func positiveOptional(t *tabular.Table, col string, row int) (float64, bool, error) {
	v, present, err := t.Number(col, row)
	if err != nil || !present {
		return 0, present, err
	}
	if v <= 0 {
		return 0, true, fmt.Errorf("%w: %v must be positive", domain.ErrInvalidInput, v)
	}
	return v, true, nil
}
