package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"slidecast/logger"
)

const (
	exportsKey = "exports:recent"
	maxExports = 50
)

// ExportCache keeps a short, TTL-bounded list of recently rendered output
// URLs. It is an observability convenience: render jobs themselves stay
// ephemeral, and the cache expires on its own. All methods are no-ops on a
// nil cache.
type ExportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewExportCache wraps a Redis client. Returns nil when rdb is nil.
func NewExportCache(rdb *redis.Client, ttl time.Duration) *ExportCache {
	if rdb == nil {
		return nil
	}
	return &ExportCache{rdb: rdb, ttl: ttl}
}

// Record prepends a rendered output URL to the recent-exports list.
// Failures are logged, never surfaced: the render already succeeded.
func (c *ExportCache) Record(ctx context.Context, url string) {
	if c == nil {
		return
	}
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, exportsKey, url)
	pipe.LTrim(ctx, exportsKey, 0, maxExports-1)
	pipe.Expire(ctx, exportsKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("failed to record export", logger.String("url", url), logger.ErrorField(err))
	}
}

// Recent returns up to n recently rendered output URLs, newest first.
func (c *ExportCache) Recent(ctx context.Context, n int) []string {
	if c == nil {
		return nil
	}
	urls, err := c.rdb.LRange(ctx, exportsKey, 0, int64(n-1)).Result()
	if err != nil {
		logger.Warn("failed to read export history", logger.ErrorField(err))
		return nil
	}
	return urls
}
