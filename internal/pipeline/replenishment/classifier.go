package replenishment

import (
	"math"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/shopspring/decimal"
)

// Classify assigns the replenishment status of a product. Both bounds are inclusive: stock equal
// to the reorder point is Reorder Now, stock equal to band x reorder point is Monitor. The
// comparison runs in decimal so that 1.2 x 100 is exactly 120.
func Classify(sellable, reorderPoint float64, band decimal.Decimal) domain.ReplenishmentStatus {
	s := decimal.NewFromFloat(sellable)
	rop := decimal.NewFromFloat(reorderPoint)

	switch {
	case s.LessThanOrEqual(rop):
		return domain.StatusReorderNow
	case s.LessThanOrEqual(rop.Mul(band)):
		return domain.StatusMonitor
	default:
		return domain.StatusOK
	}
}

// SuggestedOrder returns the quantity needed to bring sellable stock back to target. Only
// Reorder Now places an order.
func SuggestedOrder(target, sellable float64, status domain.ReplenishmentStatus) float64 {
	if !status.TriggersOrder() {
		return 0
	}
	return math.Max(0, target-sellable)
}
