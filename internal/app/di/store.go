package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stock_tracker/internal/feature/instruments/adapters"
	"stock_tracker/internal/feature/instruments/usecase"
	"stock_tracker/internal/platform/cache"
)

// NewAlertStore creates the alert history store.
// If Redis is available, reads are cached in Redis. Otherwise, it uses the database directly.
func NewAlertStore(rdb *redis.Client, db *gorm.DB, ttl time.Duration) cache.AlertStore {
	repo := adapters.NewAlertRepository(db)
	if rdb != nil {
		return cache.NewCachingAlertRepository(rdb, ttl, repo, "alerts")
	}
	return repo
}

// NewInstrumentStore creates the instrument repository used by the CRUD usecase.
// When alerts is cached, deleting an instrument also drops the cached alert pages.
func NewInstrumentStore(db *gorm.DB, alerts cache.AlertStore) usecase.InstrumentRepository {
	repo := adapters.NewInstrumentRepository(db)
	if inv, ok := alerts.(cache.Invalidator); ok {
		return cache.NewInvalidatingInstrumentRepository(repo, inv)
	}
	return repo
}
