package domain

import (
	"sort"
	"strings"
	"time"
)

// Calculation kinds.
const (
	KindStockTargets  = "stock_targets"
	KindReplenishment = "replenishment"
)

// CalculationRun is one persisted evaluation of an input table.
type CalculationRun struct {
	ID           string    `json:"id" db:"id"`
	Kind         string    `json:"kind" db:"kind"`
	Source       string    `json:"source" db:"source"`
	SnapshotDate time.Time `json:"snapshot_date" db:"snapshot_date"`
	RecordCount  int       `json:"record_count" db:"record_count"`
	Policy       []byte    `json:"-" db:"policy"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UploadedFile represents an uploaded file for processing
type UploadedFile struct {
	Filename string
	Path     string
	Size     int64
}

// ReplenishmentFilter narrows the latest replenishment snapshot.
type ReplenishmentFilter struct {
	RunID    string   `json:"run_id,omitempty"`
	ABCSKUs  []string `json:"abc_sku,omitempty"`
	Statuses []string `json:"status,omitempty"`
}

// Normalize uppercases tiers, canonicalizes statuses, drops blanks and sorts both lists.
func (f ReplenishmentFilter) Normalize() ReplenishmentFilter {
	out := ReplenishmentFilter{RunID: strings.TrimSpace(f.RunID)}
	for _, v := range f.ABCSKUs {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out.ABCSKUs = append(out.ABCSKUs, v)
		}
	}
	for _, v := range f.Statuses {
		if status, ok := ParseReplenishmentStatus(v); ok {
			out.Statuses = append(out.Statuses, status.String())
		}
	}
	sort.Strings(out.ABCSKUs)
	sort.Strings(out.Statuses)
	return out
}

// SplitList splits a comma separated query value.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
