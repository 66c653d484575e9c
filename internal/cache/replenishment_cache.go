package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/shelfstock/internal/config"
	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline/replenishment"
	"github.com/redis/go-redis/v9"
)

const (
	replenishmentSummaryKeyPrefix = "replenishment:summary"
	replenishmentScanBatchSize    = 100
	replenishmentUnlinkBatchSize  = 500
	defaultSummaryTTL             = time.Minute
	redisDialTimeout              = 5 * time.Second
)

type ReplenishmentCache interface {
	GetSummary(ctx context.Context, filter domain.ReplenishmentFilter) (*replenishment.Summary, bool, error)
	SetSummary(ctx context.Context, filter domain.ReplenishmentFilter, summary replenishment.Summary) error
	InvalidateAll(ctx context.Context) error
}

type redisReplenishmentCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReplenishmentCache struct{}

// NewReplenishmentCache returns a redis backed cache, or a no-op cache when caching is disabled.
// The server must answer a PING before ctx expires.
func NewReplenishmentCache(ctx context.Context, cfg config.CacheConfig) (ReplenishmentCache, error) {
	if !cfg.Enabled {
		return &noopReplenishmentCache{}, nil
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return &redisReplenishmentCache{
		client: client,
		ttl:    summaryTTL(cfg),
	}, nil
}

func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL == "" {
		return &redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return opts, nil
}

func summaryTTL(cfg config.CacheConfig) time.Duration {
	if ttl := cfg.SummaryTTL(); ttl > 0 {
		return ttl
	}
	return defaultSummaryTTL
}

func NewNoopReplenishmentCache() ReplenishmentCache {
	return &noopReplenishmentCache{}
}

func (c *redisReplenishmentCache) GetSummary(ctx context.Context, filter domain.ReplenishmentFilter) (*replenishment.Summary, bool, error) {
	key := buildReplenishmentSummaryKey(filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summary replenishment.Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, fmt.Errorf("decode replenishment summary cache: %w", err)
	}

	return &summary, true, nil
}

func (c *redisReplenishmentCache) SetSummary(ctx context.Context, filter domain.ReplenishmentFilter, summary replenishment.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode replenishment summary cache: %w", err)
	}

	if err := c.client.Set(ctx, buildReplenishmentSummaryKey(filter), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached summary. Keys are unlinked in batches while the scan runs.
func (c *redisReplenishmentCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, replenishmentSummaryKeyPattern(), replenishmentScanBatchSize).Iterator()

	batch := make([]string, 0, replenishmentUnlinkBatchSize)
	unlink := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == replenishmentUnlinkBatchSize {
			if err := unlink(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return unlink()
}

func (n *noopReplenishmentCache) GetSummary(ctx context.Context, filter domain.ReplenishmentFilter) (*replenishment.Summary, bool, error) {
	return nil, false, nil
}

func (n *noopReplenishmentCache) SetSummary(ctx context.Context, filter domain.ReplenishmentFilter, summary replenishment.Summary) error {
	return nil
}

func (n *noopReplenishmentCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func replenishmentSummaryKeyPattern() string {
	return replenishmentSummaryKeyPrefix + ":*"
}

func buildReplenishmentSummaryKey(filter domain.ReplenishmentFilter) string {
	return fmt.Sprintf("%s:%s", replenishmentSummaryKeyPrefix, replenishmentFilterHash(filter))
}

// replenishmentFilterHash is stable under reordering and case changes of the filter values.
func replenishmentFilterHash(filter domain.ReplenishmentFilter) string {
	f := filter.Normalize()

	parts := []string{}
	if f.RunID != "" {
		parts = append(parts, "run_id="+f.RunID)
	}
	if len(f.ABCSKUs) > 0 {
		parts = append(parts, "abc_sku="+strings.Join(f.ABCSKUs, ","))
	}
	if len(f.Statuses) > 0 {
		parts = append(parts, "status="+strings.Join(f.Statuses, ","))
	}

	if len(parts) == 0 {
		return "default"
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
