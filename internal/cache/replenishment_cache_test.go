package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/shelfstock/internal/config"
	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/replenishment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplenishmentFilterHash(t *testing.T) {
	assert.Equal(t, "default", replenishmentFilterHash(domain.ReplenishmentFilter{}))
	assert.Equal(t, "default", replenishmentFilterHash(domain.ReplenishmentFilter{ABCSKUs: []string{" "}}))

	a := replenishmentFilterHash(domain.ReplenishmentFilter{ABCSKUs: []string{"b", "A"}, Statuses: []string{"monitor", "Reorder Now"}})
	b := replenishmentFilterHash(domain.ReplenishmentFilter{ABCSKUs: []string{"A", "B"}, Statuses: []string{"reorder_now", "Monitor"}})
	c := replenishmentFilterHash(domain.ReplenishmentFilter{ABCSKUs: []string{"A"}})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 40)
}

func TestBuildReplenishmentSummaryKey(t *testing.T) {
	key := buildReplenishmentSummaryKey(domain.ReplenishmentFilter{})
	assert.Equal(t, "replenishment:summary:default", key)

	key = buildReplenishmentSummaryKey(domain.ReplenishmentFilter{RunID: "abc"})
	assert.True(t, strings.HasPrefix(key, replenishmentSummaryKeyPrefix+":"))
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := NewReplenishmentCache(context.Background(), config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.SetSummary(ctx, domain.ReplenishmentFilter{}, replenishment.Summary{TotalProducts: 3}))

	summary, ok, err := c.GetSummary(ctx, domain.ReplenishmentFilter{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, summary)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = redisOptions(config.CacheConfig{RedisURL: "redis://:secret@example.com:6379/1", RedisHost: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "example.com:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)

	_, err = redisOptions(config.CacheConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}

func TestSummaryTTLDefault(t *testing.T) {
	assert.Equal(t, time.Minute, summaryTTL(config.CacheConfig{}))
	assert.Equal(t, 90*time.Second, summaryTTL(config.CacheConfig{SummaryTTLSeconds: 90}))
}

func TestSummaryKeyPatternCoversKeys(t *testing.T) {
	pattern := replenishmentSummaryKeyPattern()
	assert.Equal(t, "replenishment:summary:*", pattern)

	key := buildReplenishmentSummaryKey(domain.ReplenishmentFilter{ABCSKUs: []string{"A"}})
	assert.True(t, strings.HasPrefix(key, strings.TrimSuffix(pattern, "*")))
}
