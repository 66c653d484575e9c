package replenishment

import (
	"time"

	"github.com/andresuchdata/shelfstock/internal/pipeline"
	"github.com/andresuchdata/shelfstock/internal/tabular"
)

// Derived column names.
const (
	ColInventoryGap            = "inventory_gap"
	ColAvailableGap            = "available_gap"
	ColDaysOfInventory         = "days_of_inventory"
	ColAvailableDays           = "available_days"
	ColReorderPoint            = "reorder_point"
	ColSafetyStock             = "safety_stock"
	ColCycleStock              = "cycle_stock"
	ColStatus                  = "replenishment_status"
	ColSuggestedOrder          = "suggested_order"
	ColEstimatedOrderCost      = "estimated_order_cost"
	ColTargetUtilizationPct    = "target_utilization_pct"
	ColAvailableUtilizationPct = "available_utilization_pct"
)

var fullColumns = []string{
	ColProductID,
	ColInventoryID,
	ColABCSKU,
	ColTargetInventory,
	ColSellableInventory,
	ColAvailableInventory,
	ColDailyDemand,
	ColLeadTime,
	ColShelfLifeDays,
	ColLastOrderDate,
	ColUnitCost,
	ColInventoryGap,
	ColAvailableGap,
	ColDaysOfInventory,
	ColAvailableDays,
	ColReorderPoint,
	ColSafetyStock,
	ColCycleStock,
	ColStatus,
	ColSuggestedOrder,
	ColEstimatedOrderCost,
	ColTargetUtilizationPct,
	ColAvailableUtilizationPct,
}

// overviewColumns maps the inventory overview headers to their source fields.
var overviewColumns = []struct{ header, field string }{
	{"Product ID", ColProductID},
	{"Inventory ID", ColInventoryID},
	{"ABC SKU", ColABCSKU},
	{"Target Inventory", ColTargetInventory},
	{"Sellable Inventory", ColSellableInventory},
	{"Available Inventory", ColAvailableInventory},
	{"Days of Inventory", ColDaysOfInventory},
	{"Status", ColStatus},
	{"Suggested Order", ColSuggestedOrder},
}

// Columns returns the output column order of a format.
func Columns(format OutputFormat) []string {
	if format == FormatOverview {
		out := make([]string, len(overviewColumns))
		for i, c := range overviewColumns {
			out[i] = c.header
		}
		return out
	}
	return append([]string(nil), fullColumns...)
}

// ToRow maps a result to its cells keyed by the columns of format.
func ToRow(r StatusResult, format OutputFormat) map[string]interface{} {
	var lastOrder interface{}
	if r.LastOrderDate != nil {
		lastOrder = r.LastOrderDate.Format(time.DateOnly)
	}
	var unitCost interface{}
	if r.UnitCost != nil {
		unitCost = r.UnitCost.String()
	}

	full := map[string]interface{}{
		ColProductID:               r.ProductID,
		ColInventoryID:             r.InventoryID,
		ColABCSKU:                  r.ABCSKU,
		ColTargetInventory:         r.TargetInventory,
		ColSellableInventory:       r.SellableInventory,
		ColAvailableInventory:      r.AvailableInventory,
		ColDailyDemand:             r.DailyDemand,
		ColLeadTime:                r.LeadTime,
		ColShelfLifeDays:           r.ShelfLifeDays,
		ColLastOrderDate:           lastOrder,
		ColUnitCost:                unitCost,
		ColInventoryGap:            r.InventoryGap,
		ColAvailableGap:            r.AvailableGap,
		ColDaysOfInventory:         r.DaysOfInventory,
		ColAvailableDays:           r.AvailableDays,
		ColReorderPoint:            r.ReorderPoint,
		ColSafetyStock:             r.SafetyStock,
		ColCycleStock:              r.CycleStock,
		ColStatus:                  r.Status,
		ColSuggestedOrder:          r.SuggestedOrder,
		ColEstimatedOrderCost:      r.EstimatedOrderCost.StringFixed(2),
		ColTargetUtilizationPct:    r.TargetUtilizationPct,
		ColAvailableUtilizationPct: r.AvailableUtilizationPct,
	}
	if format != FormatOverview {
		return full
	}

	overview := make(map[string]interface{}, len(overviewColumns))
	for _, c := range overviewColumns {
		overview[c.header] = full[c.field]
	}
	return overview
}

// ToRows converts results into pipeline rows.
func ToRows(results []StatusResult, format OutputFormat) []pipeline.TransformedRow {
	rows := make([]pipeline.TransformedRow, len(results))
	for i, r := range results {
		rows[i] = pipeline.TransformedRow{Data: ToRow(r, format)}
	}
	return rows
}

// ToTable lays results out in the column order of format.
func ToTable(results []StatusResult, format OutputFormat) *tabular.Table {
	return pipeline.RowsToTable(Columns(format), ToRows(results, format))
}
