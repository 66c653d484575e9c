package handlers

import (
	"fmt"
	"time"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/replenishment"
	"github.com/andresuchdata/shelfstock/internal/pipeline/shelf_life"
	"github.com/shopspring/decimal"
)

// JSON record bodies keep required numbers as pointers so an omitted field is told apart from 0.

type stockRecordRequest struct {
	Product              string   `json:"product"`
	DailyDemand          *float64 `json:"daily_demand"`
	DemandStdDev         *float64 `json:"demand_std_dev"`
	LeadTimeDays         *float64 `json:"lead_time_days"`
	ReviewTimeDays       *float64 `json:"review_time_days"`
	ServiceFactor        *float64 `json:"service_factor"`
	ShelfLifeDays        float64  `json:"shelf_life_days"`
	ShelfLifeCapFraction float64  `json:"shelf_life_cap_fraction"`
	DailySales           *float64 `json:"daily_sales"`
}

type inventoryRecordRequest struct {
	ProductID          string           `json:"product_id"`
	InventoryID        string           `json:"inventory_id"`
	ABCSKU             string           `json:"abc_sku"`
	TargetInventory    *float64         `json:"target_inventory"`
	SellableInventory  *float64         `json:"sellable_inventory"`
	AvailableInventory *float64         `json:"available_inventory"`
	DailyDemand        *float64         `json:"daily_demand"`
	LeadTime           *float64         `json:"lead_time"`
	ShelfLifeDays      float64          `json:"shelf_life_days"`
	LastOrderDate      *time.Time       `json:"last_order_date"`
	UnitCost           *decimal.Decimal `json:"unit_cost"`
}

type requiredField struct {
	name  string
	value *float64
}

func requireFields(row int, record string, fields []requiredField) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		if f.value == nil {
			return nil, domain.NewRecordError(row, record, f.name,
				fmt.Errorf("%w: value is missing", domain.ErrInvalidInput))
		}
		out[i] = *f.value
	}
	return out, nil
}

func toStockRecords(reqs []stockRecordRequest) ([]shelf_life.ProductStockRecord, error) {
	records := make([]shelf_life.ProductStockRecord, len(reqs))
	for i, r := range reqs {
		v, err := requireFields(i, r.Product, []requiredField{
			{"daily demand", r.DailyDemand},
			{"demand std dev", r.DemandStdDev},
			{"lead time days", r.LeadTimeDays},
			{"review time days", r.ReviewTimeDays},
			{"service factor", r.ServiceFactor},
		})
		if err != nil {
			return nil, err
		}
		records[i] = shelf_life.ProductStockRecord{
			Product:              r.Product,
			DailyDemand:          v[0],
			DemandStdDev:         v[1],
			LeadTimeDays:         v[2],
			ReviewTimeDays:       v[3],
			ServiceFactor:        v[4],
			ShelfLifeDays:        r.ShelfLifeDays,
			ShelfLifeCapFraction: r.ShelfLifeCapFraction,
			DailySales:           r.DailySales,
		}
	}
	return records, nil
}

func toInventoryRecords(reqs []inventoryRecordRequest) ([]replenishment.InventoryStatusRecord, error) {
	records := make([]replenishment.InventoryStatusRecord, len(reqs))
	for i, r := range reqs {
		v, err := requireFields(i, r.ProductID, []requiredField{
			{replenishment.ColTargetInventory, r.TargetInventory},
			{replenishment.ColSellableInventory, r.SellableInventory},
			{replenishment.ColAvailableInventory, r.AvailableInventory},
			{replenishment.ColDailyDemand, r.DailyDemand},
			{replenishment.ColLeadTime, r.LeadTime},
		})
		if err != nil {
			return nil, err
		}
		records[i] = replenishment.InventoryStatusRecord{
			ProductID:          r.ProductID,
			InventoryID:        r.InventoryID,
			ABCSKU:             r.ABCSKU,
			TargetInventory:    v[0],
			SellableInventory:  v[1],
			AvailableInventory: v[2],
			DailyDemand:        v[3],
			LeadTime:           v[4],
			ShelfLifeDays:      r.ShelfLifeDays,
			LastOrderDate:      r.LastOrderDate,
			UnitCost:           r.UnitCost,
		}
	}
	return records, nil
}
