package shelf_life

import (
	"github.com/andresuchdata/shelfstock/internal/pipeline"
	"github.com/andresuchdata/shelfstock/internal/tabular"
)

// Derived column names.
const (
	ColCycleStock         = "Cycle Stock"
	ColSafetyStock        = "Safety Stock"
	ColTargetStock        = "Target Stock"
	ColPlanningHorizon    = "Final Planning Horizon (Days)"
	ColInitialTargetUnits = "Initial Target Inventory Units"
	ColInitialSafetyStock = "Initial Safety Stock"
	ColInitialCycleStock  = "Initial Cycle Stock"
	ColInitialTargetWeeks = "Initial Target Weeks"
	ColFinalTargetUnits   = "Final Target Inventory Units"
	ColFinalTargetWeeks   = "Final Target Weeks"
	ColFinalSafetyStock   = "Final Safety Stock"
	ColFinalCycleStock    = "Final Cycle Stock"
	ColMaxShelfLifeDays   = "Max Shelf Life Days"
	ColMaxShelfLifeWeeks  = "Max Shelf Life Weeks"
	ColMaxAllowedUnits    = "Max Allowed Units"
	ColOriginalZScore     = "Original Z-score"
)

// finalColumns is the published planning layout; downstream sheets depend on this order.
var finalColumns = []string{
	ColProduct,
	ColInitialCycleStock,
	ColInitialSafetyStock,
	ColInitialTargetUnits,
	ColFinalTargetUnits,
	ColFinalCycleStock,
	ColFinalSafetyStock,
	ColInitialTargetWeeks,
	ColFinalTargetWeeks,
	ColShelfLifeDays,
	ColShelfLifeCap,
	ColMaxShelfLifeDays,
	ColMaxShelfLifeWeeks,
	ColDailySales,
	ColDailyDemand,
}

// completeColumns lists inputs first, then derived columns in the order they are computed.
var completeColumns = []string{
	ColProduct,
	ColDailyDemand,
	ColStdDemandForecast,
	ColLeadTime,
	ColReviewTime,
	ColZScore,
	ColCycleStock,
	ColSafetyStock,
	ColTargetStock,
	ColDailySales,
	ColPlanningHorizon,
	ColInitialTargetUnits,
	ColInitialSafetyStock,
	ColInitialCycleStock,
	ColInitialTargetWeeks,
	ColFinalTargetUnits,
	ColFinalTargetWeeks,
	ColFinalSafetyStock,
	ColFinalCycleStock,
	ColShelfLifeDays,
	ColShelfLifeCap,
	ColMaxShelfLifeDays,
	ColMaxShelfLifeWeeks,
	ColMaxAllowedUnits,
	ColOriginalZScore,
}

// Columns returns the output column order of a format.
func Columns(format OutputFormat) []string {
	if format == FormatComplete {
		return append([]string(nil), completeColumns...)
	}
	return append([]string(nil), finalColumns...)
}

// ToRow maps a derived record to its cells keyed by column name. Keys outside the format's
// columns are ignored when the row is laid out.
func ToRow(t StockTargets) map[string]interface{} {
	return map[string]interface{}{
		ColProduct:            t.Product,
		ColDailyDemand:        t.DailyDemand,
		ColStdDemandForecast:  t.DemandStdDev,
		ColLeadTime:           t.LeadTimeDays,
		ColReviewTime:         t.ReviewTimeDays,
		ColZScore:             t.ServiceFactor,
		ColCycleStock:         t.CycleStock,
		ColSafetyStock:        t.SafetyStock,
		ColTargetStock:        t.TargetStock,
		ColDailySales:         t.DailySales,
		ColPlanningHorizon:    t.PlanningHorizonDays,
		ColInitialTargetUnits: t.InitialTargetUnits,
		ColInitialSafetyStock: t.InitialSafetyStock,
		ColInitialCycleStock:  t.InitialCycleStock,
		ColInitialTargetWeeks: t.InitialTargetWeeks,
		ColFinalTargetUnits:   t.FinalTargetUnits,
		ColFinalTargetWeeks:   t.FinalTargetWeeks,
		ColFinalSafetyStock:   t.FinalSafetyStock,
		ColFinalCycleStock:    t.FinalCycleStock,
		ColShelfLifeDays:      t.ShelfLife,
		ColShelfLifeCap:       t.ShelfLifeCap,
		ColMaxShelfLifeDays:   t.MaxShelfLifeDays,
		ColMaxShelfLifeWeeks:  t.MaxShelfLifeWeeks,
		ColMaxAllowedUnits:    t.MaxAllowedUnits,
		ColOriginalZScore:     t.OriginalServiceFactor,
	}
}

// ToRows converts derived records into pipeline rows.
func ToRows(results []StockTargets) []pipeline.TransformedRow {
	rows := make([]pipeline.TransformedRow, len(results))
	for i, r := range results {
		rows[i] = pipeline.TransformedRow{Data: ToRow(r)}
	}
	return rows
}

// ToTable lays derived records out in the column order of format.
func ToTable(results []StockTargets, format OutputFormat) *tabular.Table {
	return pipeline.RowsToTable(Columns(format), ToRows(results))
}
