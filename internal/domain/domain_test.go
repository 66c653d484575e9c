package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordError(t *testing.T) {
	err := fmt.Errorf("compute targets: %w", NewRecordError(2, "SKU-9", "target utilization", ErrDivisionByZero))

	var recErr *RecordError
	assert.True(t, errors.As(err, &recErr))
	assert.Equal(t, 2, recErr.Row)
	assert.Equal(t, "SKU-9", recErr.Record)
	assert.ErrorIs(t, err, ErrDivisionByZero)
	assert.True(t, IsComputationError(err))
	assert.Equal(t, "row 2 (SKU-9): target utilization: division by zero", recErr.Error())

	anon := NewRecordError(0, "", "daily_demand", ErrInvalidInput)
	assert.Equal(t, "row 0: daily_demand: invalid input", anon.Error())
}

func TestIOError(t *testing.T) {
	assert.NoError(t, IOError("write", nil))

	err := IOError("write csv", errors.New("disk full"))
	assert.ErrorIs(t, err, ErrIOFailure)
	assert.False(t, IsComputationError(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestParseReplenishmentStatus(t *testing.T) {
	tests := []struct {
		label string
		want  ReplenishmentStatus
		ok    bool
	}{
		{"Reorder Now", StatusReorderNow, true},
		{"reorder_now", StatusReorderNow, true},
		{" MONITOR ", StatusMonitor, true},
		{"ok", StatusOK, true},
		{"later", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseReplenishmentStatus(tt.label)
		assert.Equal(t, tt.ok, ok, tt.label)
		assert.Equal(t, tt.want, got, tt.label)
	}

	assert.True(t, StatusReorderNow.TriggersOrder())
	assert.False(t, StatusMonitor.TriggersOrder())
	assert.False(t, StatusOK.TriggersOrder())
}

func TestFilterNormalize(t *testing.T) {
	f := ReplenishmentFilter{
		RunID:    " run-1 ",
		ABCSKUs:  []string{"c", " a ", ""},
		Statuses: []string{"monitor", "reorder_now", "unknown"},
	}.Normalize()

	assert.Equal(t, "run-1", f.RunID)
	assert.Equal(t, []string{"A", "C"}, f.ABCSKUs)
	assert.Equal(t, []string{"Monitor", "Reorder Now"}, f.Statuses)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList("  "))
	assert.Equal(t, []string{"A", "B"}, SplitList("A, ,B,"))
}
