package replenishment

import (
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/shopspring/decimal"
)

// Input column names.
const (
	ColProductID          = "product_id"
	ColInventoryID        = "inventory_id"
	ColABCSKU             = "abc_sku"
	ColTargetInventory    = "target_inventory"
	ColSellableInventory  = "sellable_inventory"
	ColAvailableInventory = "available_inventory"
	ColDailyDemand        = "daily_demand"
	ColLeadTime           = "lead_time"
	ColShelfLifeDays      = "shelf_life_days"
	ColLastOrderDate      = "last_order_date"
	ColUnitCost           = "unit_cost"
)

var lastOrderDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
}

// RecordsFromTable builds validated inventory records from an input table.
func RecordsFromTable(t *tabular.Table) ([]InventoryStatusRecord, error) {
	productCol, ok := t.Lookup(ColProductID, "Product ID", "Product", "sku")
	if !ok {
		return nil, fmt.Errorf("%w: missing required column %q", domain.ErrInvalidInput, ColProductID)
	}

	required := []string{
		ColTargetInventory,
		ColSellableInventory,
		ColAvailableInventory,
		ColDailyDemand,
		ColLeadTime,
	}
	cols := make([]string, len(required))
	for i, name := range required {
		col, ok := t.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: missing required column %q", domain.ErrInvalidInput, name)
		}
		cols[i] = col
	}

	inventoryCol, _ := t.Lookup(ColInventoryID)
	abcCol, _ := t.Lookup(ColABCSKU, "ABC SKU", "abc")
	shelfLifeCol, hasShelfLife := t.Lookup(ColShelfLifeDays)
	lastOrderCol, hasLastOrder := t.Lookup(ColLastOrderDate)
	unitCostCol, hasUnitCost := t.Lookup(ColUnitCost)

	records := make([]InventoryStatusRecord, 0, t.Len())
	for row := 0; row < t.Len(); row++ {
		rec := InventoryStatusRecord{
			ProductID:   t.Value(productCol, row),
			InventoryID: t.Value(inventoryCol, row),
			ABCSKU:      strings.ToUpper(t.Value(abcCol, row)),
		}

		values := make([]float64, len(cols))
		for i, col := range cols {
			v, present, err := t.Number(col, row)
			if err != nil {
				return nil, domain.NewRecordError(row, rec.ProductID, required[i], err)
			}
			if !present {
				return nil, domain.NewRecordError(row, rec.ProductID, required[i],
					fmt.Errorf("%w: value is missing", domain.ErrInvalidInput))
			}
			values[i] = v
		}
		rec.TargetInventory = values[0]
		rec.SellableInventory = values[1]
		rec.AvailableInventory = values[2]
		rec.DailyDemand = values[3]
		rec.LeadTime = values[4]

		if hasShelfLife {
			v, present, err := t.Number(shelfLifeCol, row)
			if err == nil && present && v <= 0 {
				err = fmt.Errorf("%w: %v must be positive", domain.ErrInvalidInput, v)
			}
			if err != nil {
				return nil, domain.NewRecordError(row, rec.ProductID, ColShelfLifeDays, err)
			}
			rec.ShelfLifeDays = v
		}

		if hasLastOrder {
			if raw := t.Value(lastOrderCol, row); raw != "" {
				date, err := parseLastOrderDate(raw)
				if err != nil {
					return nil, domain.NewRecordError(row, rec.ProductID, ColLastOrderDate, err)
				}
				rec.LastOrderDate = &date
			}
		}

		if hasUnitCost {
			if raw := t.Value(unitCostCol, row); raw != "" {
				cost, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
				if err != nil {
					return nil, domain.NewRecordError(row, rec.ProductID, ColUnitCost,
						fmt.Errorf("%w: %q is not a number", domain.ErrInvalidInput, raw))
				}
				rec.UnitCost = &cost
			}
		}

		records = append(records, rec)
	}

	if err := ValidateRecords(records); err != nil {
		return nil, err
	}
	return records, nil
}

func parseLastOrderDate(raw string) (time.Time, error) {
	for _, layout := range lastOrderDateLayouts {
		if date, err := time.Parse(layout, raw); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date", domain.ErrInvalidInput, raw)
}
