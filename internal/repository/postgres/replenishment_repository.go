package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/replenishment"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type replenishmentRow struct {
	RunID                   string              `db:"run_id"`
	RowIndex                int                 `db:"row_index"`
	ProductID               string              `db:"product_id"`
	InventoryID             string              `db:"inventory_id"`
	ABCSKU                  string              `db:"abc_sku"`
	TargetInventory         float64             `db:"target_inventory"`
	SellableInventory       float64             `db:"sellable_inventory"`
	AvailableInventory      float64             `db:"available_inventory"`
	DailyDemand             float64             `db:"daily_demand"`
	LeadTime                float64             `db:"lead_time"`
	ShelfLifeDays           float64             `db:"shelf_life_days"`
	LastOrderDate           sql.NullTime        `db:"last_order_date"`
	UnitCost                decimal.NullDecimal `db:"unit_cost"`
	InventoryGap            float64             `db:"inventory_gap"`
	AvailableGap            float64             `db:"available_gap"`
	DaysOfInventory         float64             `db:"days_of_inventory"`
	AvailableDays           float64             `db:"available_days"`
	ReorderPoint            float64             `db:"reorder_point"`
	SafetyStock             float64             `db:"safety_stock"`
	CycleStock              float64             `db:"cycle_stock"`
	Status                  string              `db:"replenishment_status"`
	SuggestedOrder          float64             `db:"suggested_order"`
	EstimatedOrderCost      decimal.Decimal     `db:"estimated_order_cost"`
	TargetUtilizationPct    float64             `db:"target_utilization_pct"`
	AvailableUtilizationPct float64             `db:"available_utilization_pct"`
}

const replenishmentColumns = `run_id, row_index, product_id, inventory_id, abc_sku, target_inventory,
	sellable_inventory, available_inventory, daily_demand, lead_time, shelf_life_days,
	last_order_date, unit_cost, inventory_gap, available_gap, days_of_inventory, available_days,
	reorder_point, safety_stock, cycle_stock, replenishment_status, suggested_order,
	estimated_order_cost, target_utilization_pct, available_utilization_pct`

func newReplenishmentRow(runID string, i int, r replenishment.StatusResult) replenishmentRow {
	row := replenishmentRow{
		RunID:                   runID,
		RowIndex:                i,
		ProductID:               r.ProductID,
		InventoryID:             r.InventoryID,
		ABCSKU:                  r.ABCSKU,
		TargetInventory:         r.TargetInventory,
		SellableInventory:       r.SellableInventory,
		AvailableInventory:      r.AvailableInventory,
		DailyDemand:             r.DailyDemand,
		LeadTime:                r.LeadTime,
		ShelfLifeDays:           r.ShelfLifeDays,
		InventoryGap:            r.InventoryGap,
		AvailableGap:            r.AvailableGap,
		DaysOfInventory:         r.DaysOfInventory,
		AvailableDays:           r.AvailableDays,
		ReorderPoint:            r.ReorderPoint,
		SafetyStock:             r.SafetyStock,
		CycleStock:              r.CycleStock,
		Status:                  r.Status.String(),
		SuggestedOrder:          r.SuggestedOrder,
		EstimatedOrderCost:      r.EstimatedOrderCost,
		TargetUtilizationPct:    r.TargetUtilizationPct,
		AvailableUtilizationPct: r.AvailableUtilizationPct,
	}
	if r.LastOrderDate != nil {
		row.LastOrderDate = sql.NullTime{Time: *r.LastOrderDate, Valid: true}
	}
	if r.UnitCost != nil {
		row.UnitCost = decimal.NullDecimal{Decimal: *r.UnitCost, Valid: true}
	}
	return row
}

func (r replenishmentRow) toStatusResult() replenishment.StatusResult {
	status, _ := domain.ParseReplenishmentStatus(r.Status)
	res := replenishment.StatusResult{
		InventoryStatusRecord: replenishment.InventoryStatusRecord{
			ProductID:          r.ProductID,
			InventoryID:        r.InventoryID,
			ABCSKU:             r.ABCSKU,
			TargetInventory:    r.TargetInventory,
			SellableInventory:  r.SellableInventory,
			AvailableInventory: r.AvailableInventory,
			DailyDemand:        r.DailyDemand,
			LeadTime:           r.LeadTime,
			ShelfLifeDays:      r.ShelfLifeDays,
		},
		InventoryGap:            r.InventoryGap,
		AvailableGap:            r.AvailableGap,
		DaysOfInventory:         r.DaysOfInventory,
		AvailableDays:           r.AvailableDays,
		ReorderPoint:            r.ReorderPoint,
		SafetyStock:             r.SafetyStock,
		CycleStock:              r.CycleStock,
		Status:                  status,
		SuggestedOrder:          r.SuggestedOrder,
		EstimatedOrderCost:      r.EstimatedOrderCost,
		TargetUtilizationPct:    r.TargetUtilizationPct,
		AvailableUtilizationPct: r.AvailableUtilizationPct,
	}
	if r.LastOrderDate.Valid {
		t := r.LastOrderDate.Time
		res.LastOrderDate = &t
	}
	if r.UnitCost.Valid {
		c := r.UnitCost.Decimal
		res.UnitCost = &c
	}
	return res
}

type replenishmentRepository struct {
	db *DB
}

func NewReplenishmentRepository(db *DB) *replenishmentRepository {
	return &replenishmentRepository{db: db}
}

func (r *replenishmentRepository) SaveRun(ctx context.Context, run *domain.CalculationRun, results []replenishment.StatusResult) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertRun(ctx, tx, run); err != nil {
			return err
		}

		query := `INSERT INTO replenishment_results (` + replenishmentColumns + `) VALUES (
			:run_id, :row_index, :product_id, :inventory_id, :abc_sku, :target_inventory,
			:sellable_inventory, :available_inventory, :daily_demand, :lead_time, :shelf_life_days,
			:last_order_date, :unit_cost, :inventory_gap, :available_gap, :days_of_inventory, :available_days,
			:reorder_point, :safety_stock, :cycle_stock, :replenishment_status, :suggested_order,
			:estimated_order_cost, :target_utilization_pct, :available_utilization_pct
		)`

		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, res := range results {
			if _, err := stmt.ExecContext(ctx, newReplenishmentRow(run.ID, i, res)); err != nil {
				return fmt.Errorf("failed to insert replenishment result for %s: %w", res.ProductID, err)
			}
		}
		return nil
	})
}

func (r *replenishmentRepository) latestRunID(ctx context.Context) (string, error) {
	var id string
	query := `SELECT id FROM calculation_runs WHERE kind = $1 ORDER BY created_at DESC LIMIT 1`
	err := r.db.GetContext(ctx, &id, query, domain.KindReplenishment)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("replenishment run: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest replenishment run: %w", err)
	}
	return id, nil
}

func (r *replenishmentRepository) LatestResults(ctx context.Context, filter domain.ReplenishmentFilter) (*domain.CalculationRun, []replenishment.StatusResult, error) {
	f := filter.Normalize()

	id := f.RunID
	if id == "" {
		var err error
		if id, err = r.latestRunID(ctx); err != nil {
			return nil, nil, err
		}
	}

	run, err := getRun(ctx, r.db, id, domain.KindReplenishment)
	if err != nil {
		return nil, nil, err
	}

	query := `
		SELECT ` + replenishmentColumns + `
		FROM replenishment_results
		WHERE run_id = $1
			AND ($2::text[] IS NULL OR abc_sku = ANY($2))
			AND ($3::text[] IS NULL OR replenishment_status = ANY($3))
		ORDER BY row_index
	`

	var rows []replenishmentRow
	if err := r.db.SelectContext(ctx, &rows, query, id, pq.Array(f.ABCSKUs), pq.Array(f.Statuses)); err != nil {
		return nil, nil, fmt.Errorf("failed to get replenishment results for run %s: %w", id, err)
	}

	results := make([]replenishment.StatusResult, len(rows))
	for i, row := range rows {
		results[i] = row.toStatusResult()
	}
	return run, results, nil
}
