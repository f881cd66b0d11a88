package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/schoolpulse/identity/internal/cache"
	"github.com/schoolpulse/identity/internal/config"
	"github.com/schoolpulse/identity/internal/core"
	"github.com/schoolpulse/identity/internal/metrics"
)

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) core.Recorder {
	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}
	return recorder
}

// initializeMetricsCache initializes the cache backing the active-token
// gauges. Redis is used when rate limiting already runs on Redis, so
// multi-instance deployments share one count; otherwise a per-instance
// memory cache is enough.
func initializeMetricsCache(cfg *config.Config) (cache.Cache[int64], func() error, error) {
	if !cfg.MetricsEnabled || cfg.MetricsGaugeUpdateInterval <= 0 {
		return nil, nil, nil
	}

	if cfg.RateLimitEnabled && cfg.RateLimitStore == config.RateLimitStoreRedis {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		c, err := cache.NewRedisCache[int64](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			"identity:metrics:",
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis metrics cache: %w", err)
		}
		log.Printf("Metrics cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
		return c, c.Close, nil
	}

	c := cache.NewMemoryCache[int64]()
	log.Println("Metrics cache: memory (single instance only)")
	return c, c.Close, nil
}
