package bootstrap

import (
	"log"

	"github.com/schoolpulse/identity/internal/config"
	"github.com/schoolpulse/identity/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// initializeRedisClient initializes the go-redis client shared by rate
// limiting. Returns nil when rate limiting is disabled or uses the memory
// store. Rate limiting must use go-redis because ulule/limiter depends on
// go-redis types.
func initializeRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil //nolint:nilnil // redis client not needed in this configuration
	}

	if cfg.RateLimitStore != config.RateLimitStoreRedis {
		return nil, nil //nolint:nilnil // redis client not needed in this configuration
	}

	client, err := middleware.CreateRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}

	log.Printf(
		"Rate limiting Redis client initialized (address: %s, db: %d)",
		cfg.RedisAddr,
		cfg.RedisDB,
	)
	return client, nil
}
