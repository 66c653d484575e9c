package replenishment

import "time"

// SampleRecords returns the eight-product stock position used for demos. Last order dates are
// relative to now.
func SampleRecords(now time.Time) []InventoryStatusRecord {
	base := []struct {
		product, abc                        string
		target, sellable, available, demand float64
		lead                                float64
		daysSinceOrder                      int
	}{
		{"P001", "A", 500, 420, 380, 25, 7, 5},
		{"P002", "A", 750, 680, 620, 35, 10, 3},
		{"P003", "B", 300, 250, 220, 15, 5, 7},
		{"P004", "B", 450, 380, 340, 20, 8, 2},
		{"P005", "C", 150, 120, 100, 8, 3, 10},
		{"P006", "C", 200, 160, 140, 12, 4, 6},
		{"P007", "A", 600, 520, 480, 30, 9, 4},
		{"P008", "B", 350, 290, 260, 18, 6, 8},
	}

	records := make([]InventoryStatusRecord, len(base))
	for i, b := range base {
		lastOrder := now.AddDate(0, 0, -b.daysSinceOrder)
		records[i] = InventoryStatusRecord{
			ProductID:          b.product,
			InventoryID:        "INV" + b.product[1:],
			ABCSKU:             b.abc,
			TargetInventory:    b.target,
			SellableInventory:  b.sellable,
			AvailableInventory: b.available,
			DailyDemand:        b.demand,
			LeadTime:           b.lead,
			ShelfLifeDays:      22,
			LastOrderDate:      &lastOrder,
		}
	}
	return records
}
