package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pixelforge/internal/domain"
)

const (
	recentKey    = "pixelforge:history:recent"
	defaultLimit = 50
)

// HistoryCache keeps the most recent generations in a Redis list so the
// gallery view does not hit Postgres on every refresh. The cache is strictly
// optional: every method on a nil cache is a safe no-op.
type HistoryCache struct {
	client *redis.Client
	size   int64
	ttl    time.Duration
}

// NewHistoryCache wraps a Redis client. A nil client yields a nil cache.
func NewHistoryCache(client *redis.Client) *HistoryCache {
	if client == nil {
		return nil
	}
	return &HistoryCache{client: client, size: defaultLimit, ttl: 24 * time.Hour}
}

// Push prepends a generation to the recent list and trims it to size.
func (c *HistoryCache) Push(ctx context.Context, gen domain.Generation) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(gen)
	if err != nil {
		return fmt.Errorf("store: encode generation: %w", err)
	}
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, recentKey, raw)
	pipe.LTrim(ctx, recentKey, 0, c.size-1)
	pipe.Expire(ctx, recentKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: push generation: %w", err)
	}
	return nil
}

// Recent returns up to limit cached generations, newest first. A cache miss
// returns (nil, nil); callers fall back to the repository.
func (c *HistoryCache) Recent(ctx context.Context, limit int) ([]domain.Generation, error) {
	if c == nil {
		return nil, nil
	}
	if limit <= 0 || int64(limit) > c.size {
		limit = int(c.size)
	}
	raws, err := c.client.LRange(ctx, recentKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: read recent: %w", err)
	}
	if len(raws) == 0 {
		return nil, nil
	}
	items := make([]domain.Generation, 0, len(raws))
	for _, raw := range raws {
		var gen domain.Generation
		if err := json.Unmarshal([]byte(raw), &gen); err != nil {
			// A corrupt entry poisons the whole list; drop the cache.
			_ = c.Invalidate(ctx)
			return nil, nil
		}
		items = append(items, gen)
	}
	return items, nil
}

// Invalidate drops the cached list, forcing the next read to the repository.
func (c *HistoryCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, recentKey).Err()
}
