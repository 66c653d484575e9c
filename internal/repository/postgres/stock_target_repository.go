package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/shelf_life"
	"github.com/jmoiron/sqlx"
)

type stockTargetRow struct {
	RunID                 string          `db:"run_id"`
	RowIndex              int             `db:"row_index"`
	Product               string          `db:"product"`
	DailyDemand           float64         `db:"daily_demand"`
	DemandStdDev          float64         `db:"demand_std_dev"`
	LeadTimeDays          float64         `db:"lead_time_days"`
	ReviewTimeDays        float64         `db:"review_time_days"`
	ServiceFactor         float64         `db:"service_factor"`
	OriginalServiceFactor float64         `db:"original_service_factor"`
	InputShelfLifeDays    float64         `db:"input_shelf_life_days"`
	InputShelfLifeCap     float64         `db:"input_shelf_life_cap"`
	DailySales            sql.NullFloat64 `db:"daily_sales"`
	CycleStock            float64         `db:"cycle_stock"`
	SafetyStock           float64         `db:"safety_stock"`
	TargetStock           float64         `db:"target_stock"`
	PlanningHorizonDays   float64         `db:"planning_horizon_days"`
	InitialTargetUnits    float64         `db:"initial_target_units"`
	InitialSafetyStock    float64         `db:"initial_safety_stock"`
	InitialCycleStock     float64         `db:"initial_cycle_stock"`
	InitialTargetWeeks    float64         `db:"initial_target_weeks"`
	MaxAllowedUnits       float64         `db:"max_allowed_units"`
	FinalTargetUnits      float64         `db:"final_target_units"`
	FinalTargetWeeks      float64         `db:"final_target_weeks"`
	FinalSafetyStock      float64         `db:"final_safety_stock"`
	FinalCycleStock       float64         `db:"final_cycle_stock"`
	ShelfLifeDays         float64         `db:"shelf_life_days"`
	ShelfLifeCap          float64         `db:"shelf_life_cap"`
	MaxShelfLifeDays      float64         `db:"max_shelf_life_days"`
	MaxShelfLifeWeeks     float64         `db:"max_shelf_life_weeks"`
}

const stockTargetColumns = `run_id, row_index, product, daily_demand, demand_std_dev, lead_time_days,
	review_time_days, service_factor, original_service_factor, input_shelf_life_days,
	input_shelf_life_cap, daily_sales, cycle_stock, safety_stock, target_stock,
	planning_horizon_days, initial_target_units, initial_safety_stock, initial_cycle_stock,
	initial_target_weeks, max_allowed_units, final_target_units, final_target_weeks,
	final_safety_stock, final_cycle_stock, shelf_life_days, shelf_life_cap,
	max_shelf_life_days, max_shelf_life_weeks`

func newStockTargetRow(runID string, i int, t shelf_life.StockTargets) stockTargetRow {
	row := stockTargetRow{
		RunID:                 runID,
		RowIndex:              i,
		Product:               t.Product,
		DailyDemand:           t.DailyDemand,
		DemandStdDev:          t.DemandStdDev,
		LeadTimeDays:          t.LeadTimeDays,
		ReviewTimeDays:        t.ReviewTimeDays,
		ServiceFactor:         t.ServiceFactor,
		OriginalServiceFactor: t.OriginalServiceFactor,
		InputShelfLifeDays:    t.ProductStockRecord.ShelfLifeDays,
		InputShelfLifeCap:     t.ShelfLifeCapFraction,
		CycleStock:            t.CycleStock,
		SafetyStock:           t.SafetyStock,
		TargetStock:           t.TargetStock,
		PlanningHorizonDays:   t.PlanningHorizonDays,
		InitialTargetUnits:    t.InitialTargetUnits,
		InitialSafetyStock:    t.InitialSafetyStock,
		InitialCycleStock:     t.InitialCycleStock,
		InitialTargetWeeks:    t.InitialTargetWeeks,
		MaxAllowedUnits:       t.MaxAllowedUnits,
		FinalTargetUnits:      t.FinalTargetUnits,
		FinalTargetWeeks:      t.FinalTargetWeeks,
		FinalSafetyStock:      t.FinalSafetyStock,
		FinalCycleStock:       t.FinalCycleStock,
		ShelfLifeDays:         t.ShelfLife,
		ShelfLifeCap:          t.ShelfLifeCap,
		MaxShelfLifeDays:      t.MaxShelfLifeDays,
		MaxShelfLifeWeeks:     t.MaxShelfLifeWeeks,
	}
	if t.DailySales != nil {
		row.DailySales = sql.NullFloat64{Float64: *t.DailySales, Valid: true}
	}
	return row
}

func (r stockTargetRow) toStockTargets() shelf_life.StockTargets {
	t := shelf_life.StockTargets{
		ProductStockRecord: shelf_life.ProductStockRecord{
			Product:              r.Product,
			DailyDemand:          r.DailyDemand,
			DemandStdDev:         r.DemandStdDev,
			LeadTimeDays:         r.LeadTimeDays,
			ReviewTimeDays:       r.ReviewTimeDays,
			ServiceFactor:        r.ServiceFactor,
			ShelfLifeDays:        r.InputShelfLifeDays,
			ShelfLifeCapFraction: r.InputShelfLifeCap,
		},
		OriginalServiceFactor: r.OriginalServiceFactor,
		CycleStock:            r.CycleStock,
		SafetyStock:           r.SafetyStock,
		TargetStock:           r.TargetStock,
		PlanningHorizonDays:   r.PlanningHorizonDays,
		InitialTargetUnits:    r.InitialTargetUnits,
		InitialSafetyStock:    r.InitialSafetyStock,
		InitialCycleStock:     r.InitialCycleStock,
		InitialTargetWeeks:    r.InitialTargetWeeks,
		MaxAllowedUnits:       r.MaxAllowedUnits,
		FinalTargetUnits:      r.FinalTargetUnits,
		FinalTargetWeeks:      r.FinalTargetWeeks,
		FinalSafetyStock:      r.FinalSafetyStock,
		FinalCycleStock:       r.FinalCycleStock,
		ShelfLife:             r.ShelfLifeDays,
		ShelfLifeCap:          r.ShelfLifeCap,
		MaxShelfLifeDays:      r.MaxShelfLifeDays,
		MaxShelfLifeWeeks:     r.MaxShelfLifeWeeks,
	}
	if r.DailySales.Valid {
		sales := r.DailySales.Float64
		t.DailySales = &sales
	}
	return t
}

type stockTargetRepository struct {
	db *DB
}

func NewStockTargetRepository(db *DB) *stockTargetRepository {
	return &stockTargetRepository{db: db}
}

func insertRun(ctx context.Context, tx *sqlx.Tx, run *domain.CalculationRun) error {
	query := `
		INSERT INTO calculation_runs (id, kind, source, snapshot_date, record_count, policy, created_at)
		VALUES (:id, :kind, :source, :snapshot_date, :record_count, :policy, :created_at)
	`
	if _, err := tx.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to insert calculation run: %w", err)
	}
	return nil
}

func getRun(ctx context.Context, db *DB, id, kind string) (*domain.CalculationRun, error) {
	run := &domain.CalculationRun{}
	query := `
		SELECT id, kind, source, snapshot_date, record_count, policy, created_at
		FROM calculation_runs
		WHERE id = $1 AND kind = $2
	`
	err := db.GetContext(ctx, run, query, id, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s run %s: %w", kind, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s run %s: %w", kind, id, err)
	}
	return run, nil
}

func (r *stockTargetRepository) SaveRun(ctx context.Context, run *domain.CalculationRun, results []shelf_life.StockTargets) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Save the run header
		if err := insertRun(ctx, tx, run); err != nil {
			return err
		}

		// 2. Save derived rows
		query := `INSERT INTO stock_target_results (` + stockTargetColumns + `) VALUES (
			:run_id, :row_index, :product, :daily_demand, :demand_std_dev, :lead_time_days,
			:review_time_days, :service_factor, :original_service_factor, :input_shelf_life_days,
			:input_shelf_life_cap, :daily_sales, :cycle_stock, :safety_stock, :target_stock,
			:planning_horizon_days, :initial_target_units, :initial_safety_stock, :initial_cycle_stock,
			:initial_target_weeks, :max_allowed_units, :final_target_units, :final_target_weeks,
			:final_safety_stock, :final_cycle_stock, :shelf_life_days, :shelf_life_cap,
			:max_shelf_life_days, :max_shelf_life_weeks
		)`

		stmt, err := tx.PrepareNamedContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, t := range results {
			if _, err := stmt.ExecContext(ctx, newStockTargetRow(run.ID, i, t)); err != nil {
				return fmt.Errorf("failed to insert stock target for %s: %w", t.Product, err)
			}
		}
		return nil
	})
}

func (r *stockTargetRepository) GetRun(ctx context.Context, id string) (*domain.CalculationRun, []shelf_life.StockTargets, error) {
	run, err := getRun(ctx, r.db, id, domain.KindStockTargets)
	if err != nil {
		return nil, nil, err
	}

	var rows []stockTargetRow
	query := `SELECT ` + stockTargetColumns + ` FROM stock_target_results WHERE run_id = $1 ORDER BY row_index`
	if err := r.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, nil, fmt.Errorf("failed to get stock targets for run %s: %w", id, err)
	}

	results := make([]shelf_life.StockTargets, len(rows))
	for i, row := range rows {
		results[i] = row.toStockTargets()
	}
	return run, results, nil
}
