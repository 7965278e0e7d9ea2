// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_tracker/internal/feature/instruments/domain/entity"
	instrumentsusecase "stock_tracker/internal/feature/instruments/usecase"
	monitorusecase "stock_tracker/internal/feature/monitor/usecase"
)

// AlertStore is the full alert history: the write side used by the polling engine
// and the read side used by the API.
type AlertStore interface {
	instrumentsusecase.AlertRepository
	monitorusecase.AlertRepository
}

// CachingAlertRepository decorates an AlertStore with Redis caching.
// ListRecent is read-through per limit; Append invalidates every cached page.
type CachingAlertRepository struct {
	inner     AlertStore
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ AlertStore = (*CachingAlertRepository)(nil)

// NewCachingAlertRepository decorates an AlertStore with Redis caching.
// If ttl is 0, it defaults to 1 minute. If namespace is empty, it uses "alerts".
func NewCachingAlertRepository(rdb *redis.Client, ttl time.Duration, inner AlertStore, namespace string) *CachingAlertRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if namespace == "" {
		namespace = "alerts"
	}
	return &CachingAlertRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Append stores the alert and invalidates the cached recent lists.
func (c *CachingAlertRepository) Append(ctx context.Context, instrumentID uint, message string, triggerPrice float64) (*entity.AlertRecord, error) {
	rec, err := c.inner.Append(ctx, instrumentID, message, triggerPrice)
	if err != nil {
		return nil, err
	}
	c.Invalidate(ctx)
	return rec, nil
}

// ListRecent returns recent alerts, checking the cache first then falling back to the database.
func (c *CachingAlertRepository) ListRecent(ctx context.Context, limit int) ([]entity.AlertRecord, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.ListRecent(ctx, limit)
	}

	key := c.cacheKey(limit)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.AlertRecord
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// Invalidate drops every cached recent list. Failures are ignored.
func (c *CachingAlertRepository) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	_ = c.deleteByPattern(ctx, c.cacheKeyPrefix()+"*") // Best effort: don't fail if cache deletion fails
}

// cacheKey generates a cache key for a specific page size.
func (c *CachingAlertRepository) cacheKey(limit int) string {
	return fmt.Sprintf("%s%d", c.cacheKeyPrefix(), limit)
}

// cacheKeyPrefix generates the prefix shared by every recent-list key.
func (c *CachingAlertRepository) cacheKeyPrefix() string {
	return c.namespace + ":recent:"
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingAlertRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}
