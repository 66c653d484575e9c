package domain

import "strings"

// ReplenishmentStatus is the urgency tier assigned to a product by the classifier.
type ReplenishmentStatus string

const (
	StatusReorderNow ReplenishmentStatus = "Reorder Now"
	StatusMonitor    ReplenishmentStatus = "Monitor"
	StatusOK         ReplenishmentStatus = "OK"
)

var replenishmentStatusCodes = map[string]ReplenishmentStatus{
	"reorder now": StatusReorderNow,
	"reorder_now": StatusReorderNow,
	"monitor":     StatusMonitor,
	"ok":          StatusOK,
}

// ParseReplenishmentStatus returns the status for a given label (case-insensitive).
func ParseReplenishmentStatus(label string) (ReplenishmentStatus, bool) {
	status, ok := replenishmentStatusCodes[strings.ToLower(strings.TrimSpace(label))]

	return status, ok
}

// TriggersOrder reports whether an order is placed for this status.
// Monitor is a watch band only.
func (s ReplenishmentStatus) TriggersOrder() bool {
	return s == StatusReorderNow
}

func (s ReplenishmentStatus) String() string {
	return string(s)
}
