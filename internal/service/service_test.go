package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/replenishment"
	"github.com/andresuchdata/shelfstock/internal/pipeline/shelf_life"
	"github.com/andresuchdata/shelfstock/internal/repository"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)

type countingCache struct {
	summaries   map[string]replenishment.Summary
	gets        int
	sets        int
	invalidates int
}

func newCountingCache() *countingCache {
	return &countingCache{summaries: make(map[string]replenishment.Summary)}
}

func cacheKey(f domain.ReplenishmentFilter) string {
	f = f.Normalize()
	return f.RunID + "|" + strings.Join(f.ABCSKUs, ",") + "|" + strings.Join(f.Statuses, ",")
}

func (c *countingCache) GetSummary(ctx context.Context, filter domain.ReplenishmentFilter) (*replenishment.Summary, bool, error) {
	c.gets++
	s, ok := c.summaries[cacheKey(filter)]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *countingCache) SetSummary(ctx context.Context, filter domain.ReplenishmentFilter, summary replenishment.Summary) error {
	c.sets++
	c.summaries[cacheKey(filter)] = summary
	return nil
}

func (c *countingCache) InvalidateAll(ctx context.Context) error {
	c.invalidates++
	c.summaries = make(map[string]replenishment.Summary)
	return nil
}

func TestStockTargetServiceComputeWithoutPersist(t *testing.T) {
	svc := NewStockTargetService(nil, shelf_life.DefaultPolicy())

	out, err := svc.Compute(context.Background(), StockTargetInput{Records: shelf_life.SampleRecords()})
	require.NoError(t, err)
	assert.Nil(t, out.Run)
	require.Len(t, out.Results, 3)
	assert.Equal(t, 308.0, out.Results[0].FinalTargetUnits)
	assert.Equal(t, 462.0, out.Results[1].FinalTargetUnits)
	assert.Equal(t, 616.0, out.Results[2].FinalTargetUnits)
}

func TestStockTargetServicePersistAndGet(t *testing.T) {
	repo := repository.NewMemoryStockTargetRepository()
	svc := NewStockTargetService(repo, shelf_life.DefaultPolicy())
	svc.now = func() time.Time { return fixedNow }

	ctx := context.Background()
	out, err := svc.Compute(ctx, StockTargetInput{Records: shelf_life.SampleRecords(), Source: "sample", Persist: true})
	require.NoError(t, err)
	require.NotNil(t, out.Run)
	assert.Equal(t, domain.KindStockTargets, out.Run.Kind)
	assert.Equal(t, 3, out.Run.RecordCount)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), out.Run.SnapshotDate)

	var policy shelf_life.Policy
	require.NoError(t, json.Unmarshal(out.Run.Policy, &policy))
	assert.Equal(t, shelf_life.DefaultPolicy(), policy)

	got, err := svc.GetRun(ctx, out.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Results, got.Results)

	_, err = svc.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStockTargetServicePolicyOverride(t *testing.T) {
	svc := NewStockTargetService(nil, shelf_life.DefaultPolicy())

	policy := shelf_life.Policy{ShelfLifeDays: 30, CapFraction: 1, HighZScore: 2.56}
	out, err := svc.Compute(context.Background(), StockTargetInput{Records: shelf_life.SampleRecords(), Policy: &policy})
	require.NoError(t, err)
	// Full cap: final equals initial
	assert.Equal(t, 600.0, out.Results[0].FinalTargetUnits)

	bad := shelf_life.Policy{ShelfLifeDays: 0, CapFraction: 0.7}
	_, err = svc.Compute(context.Background(), StockTargetInput{Records: shelf_life.SampleRecords(), Policy: &bad})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestStockTargetServiceComputeTable(t *testing.T) {
	svc := NewStockTargetService(nil, shelf_life.DefaultPolicy())

	table, err := tabular.ReadCSV(strings.NewReader("Product,Daily Demand,Std Demand Forecast,Lead Time,Review Time,Z-score\nA,20,10,7,14,1.65\n"))
	require.NoError(t, err)

	out, err := svc.ComputeTable(context.Background(), table, StockTargetInput{})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, 308.0, out.Results[0].FinalTargetUnits)

	table, err = tabular.ReadCSV(strings.NewReader("Product,Daily Demand\nA,20\n"))
	require.NoError(t, err)
	_, err = svc.ComputeTable(context.Background(), table, StockTargetInput{})
	assert.True(t, domain.IsComputationError(err))
}

func TestReplenishmentServiceSummaryIsCachedAndInvalidated(t *testing.T) {
	c := newCountingCache()
	svc := NewReplenishmentService(nil, c, replenishment.DefaultPolicy())
	svc.now = func() time.Time { return fixedNow }
	ctx := context.Background()

	_, err := svc.GetSummary(ctx, domain.ReplenishmentFilter{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	out, err := svc.Evaluate(ctx, ReplenishmentInput{Records: replenishment.SampleRecords(fixedNow), Persist: true})
	require.NoError(t, err)
	require.NotNil(t, out.Run)
	assert.Equal(t, 8, out.Summary.TotalProducts)
	assert.Equal(t, 1, c.invalidates)

	summary, err := svc.GetSummary(ctx, domain.ReplenishmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 8, summary.OKCount)
	assert.Equal(t, int64(480), summary.TotalGap)
	assert.Equal(t, 1, c.sets)

	_, err = svc.GetSummary(ctx, domain.ReplenishmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, c.sets, "second read served from cache")

	filtered, err := svc.GetSummary(ctx, domain.ReplenishmentFilter{ABCSKUs: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, 3, filtered.TotalProducts)
	assert.Equal(t, map[string]int{"A": 3}, filtered.ABCDistribution)

	_, err = svc.Evaluate(ctx, ReplenishmentInput{Records: replenishment.SampleRecords(fixedNow), Persist: true})
	require.NoError(t, err)
	assert.Equal(t, 2, c.invalidates)
	assert.Empty(t, c.summaries)
}

func TestReplenishmentServiceEvaluateWithoutPersist(t *testing.T) {
	c := newCountingCache()
	svc := NewReplenishmentService(nil, c, replenishment.DefaultPolicy())

	out, err := svc.Evaluate(context.Background(), ReplenishmentInput{Records: replenishment.SampleRecords(fixedNow)})
	require.NoError(t, err)
	assert.Nil(t, out.Run)
	assert.Len(t, out.Results, 8)
	assert.Equal(t, 0, c.invalidates)

	_, err = svc.GetLatest(context.Background(), domain.ReplenishmentFilter{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
