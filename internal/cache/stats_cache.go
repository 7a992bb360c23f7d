package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/woreda-portal/compliance-service/internal/domain"
)

const statsKey = "compliance:reports:stats"

// StatsCache stores the dashboard counters between report mutations.
type StatsCache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context) (*domain.ReportStats, error)
	Set(ctx context.Context, stats *domain.ReportStats) error
	Invalidate(ctx context.Context) error
}

type redisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStatsCache returns a Redis-backed cache. A nil client yields a
// cache that always misses.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration) StatsCache {
	if client == nil {
		return NopStatsCache{}
	}
	return &redisStatsCache{client: client, ttl: ttl}
}

func (c *redisStatsCache) Get(ctx context.Context) (*domain.ReportStats, error) {
	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stats domain.ReportStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *redisStatsCache) Set(ctx context.Context, stats *domain.ReportStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey, raw, c.ttl).Err()
}

func (c *redisStatsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, statsKey).Err()
}

// NopStatsCache never stores anything.
type NopStatsCache struct{}

func (NopStatsCache) Get(context.Context) (*domain.ReportStats, error) { return nil, nil }
func (NopStatsCache) Set(context.Context, *domain.ReportStats) error { return nil }
func (NopStatsCache) Invalidate(context.Context) error { return nil }
