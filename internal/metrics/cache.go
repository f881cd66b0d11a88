package metrics

import (
	"context"
	"time"

	"github.com/schoolpulse/identity/internal/cache"
	"github.com/schoolpulse/identity/internal/core"
)

// CacheWrapper provides a read-through cache for metrics data.
// It queries the database on cache miss and updates the cache for
// subsequent requests, so gauge refreshes stay cheap under load.
type CacheWrapper struct {
	store core.MetricsStore
	cache cache.Cache[int64]
}

// NewCacheWrapper creates a new cache wrapper for metrics.
func NewCacheWrapper(store core.MetricsStore, cache cache.Cache[int64]) *CacheWrapper {
	return &CacheWrapper{
		store: store,
		cache: cache,
	}
}

// GetActiveAccessTokensCount retrieves the count of active access tokens.
func (m *CacheWrapper) GetActiveAccessTokensCount(
	ctx context.Context,
	ttl time.Duration,
) (int64, error) {
	return m.cache.GetWithFetch(
		ctx,
		"tokens:access",
		ttl,
		func(ctx context.Context, key string) (int64, error) {
			return m.store.CountActiveAccessTokens()
		},
	)
}

// GetActiveRefreshTokensCount retrieves the count of active refresh tokens.
func (m *CacheWrapper) GetActiveRefreshTokensCount(
	ctx context.Context,
	ttl time.Duration,
) (int64, error) {
	return m.cache.GetWithFetch(
		ctx,
		"tokens:refresh",
		ttl,
		func(ctx context.Context, key string) (int64, error) {
			return m.store.CountActiveRefreshTokens()
		},
	)
}
