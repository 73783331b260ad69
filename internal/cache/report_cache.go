package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/fba-replenish/internal/config"
	"github.com/andresuchdata/fba-replenish/internal/domain"
)

const (
	reportKeyPrefix     = "replenish:report"
	reportScanBatchSize = 100
)

// ReportCache stores generated result sets by input fingerprint. Equal
// fingerprints always yield equal records, so entries never go stale; the
// TTL only bounds memory.
type ReportCache interface {
	Get(ctx context.Context, fingerprint string) (*domain.ResultSet, bool, error)
	Set(ctx context.Context, fingerprint string, rs domain.ResultSet) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) Get(ctx context.Context, fingerprint string) (*domain.ResultSet, bool, error) {
	payload, err := c.client.Get(ctx, buildReportKey(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var rs domain.ResultSet
	if err := json.Unmarshal(payload, &rs); err != nil {
		return nil, false, fmt.Errorf("decode report cache: %w", err)
	}
	return &rs, true, nil
}

func (c *redisReportCache) Set(ctx context.Context, fingerprint string, rs domain.ResultSet) error {
	payload, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("encode report cache: %w", err)
	}

	if err := c.client.Set(ctx, buildReportKey(fingerprint), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, reportKeyPrefix, reportScanBatchSize)
}

func (n *noopReportCache) Get(ctx context.Context, fingerprint string) (*domain.ResultSet, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) Set(ctx context.Context, fingerprint string, rs domain.ResultSet) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildReportKey(fingerprint string) string {
	return fmt.Sprintf("%s:%s", reportKeyPrefix, fingerprint)
}
