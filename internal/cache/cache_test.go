package cache

import (
	"context"
	"testing"

	"github.com/andresuchdata/fba-replenish/internal/config"
	"github.com/andresuchdata/fba-replenish/internal/domain"
)

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	if err != nil {
		t.Fatalf("buildRedisOptions: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 {
		t.Errorf("opts = %+v", opts)
	}

	opts, err = buildRedisOptions(config.CacheConfig{})
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if opts.Addr != "127.0.0.1:6379" {
		t.Errorf("default addr = %s", opts.Addr)
	}

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@example.com:6390/3"})
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if opts.Addr != "example.com:6390" || opts.Password != "secret" || opts.DB != 3 {
		t.Errorf("url opts = %+v", opts)
	}

	if _, err := buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"}); err == nil {
		t.Error("expected error for non-redis url")
	}
}

func TestNewReportCache_Disabled(t *testing.T) {
	c, err := NewReportCache(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewReportCache: %v", err)
	}
	ctx := context.Background()
	if err := c.Set(ctx, "abc", domain.ResultSet{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, err := c.Get(ctx, "abc"); ok || err != nil {
		t.Errorf("noop cache should always miss, ok=%v err=%v", ok, err)
	}
	if err := c.InvalidateAll(ctx); err != nil {
		t.Errorf("InvalidateAll: %v", err)
	}
}

func TestBuildReportKey(t *testing.T) {
	if got := buildReportKey("deadbeef"); got != "replenish:report:deadbeef" {
		t.Errorf("key = %s", got)
	}
}
