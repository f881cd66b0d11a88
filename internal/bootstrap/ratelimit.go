package bootstrap

import (
	"log"

	"github.com/schoolpulse/identity/internal/config"
	"github.com/schoolpulse/identity/internal/middleware"
	"github.com/schoolpulse/identity/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// setupRateLimiting configures the token endpoint rate limiter.
// Accepts an optional go-redis client shared with the rest of the app.
func setupRateLimiting(
	cfg *config.Config,
	auditService *services.AuditService,
	redisClient *redis.Client,
) gin.HandlerFunc {
	if !cfg.RateLimitEnabled {
		return func(c *gin.Context) { c.Next() }
	}

	log.Printf("Rate limiting enabled (store: %s, %d req/min)",
		cfg.RateLimitStore, cfg.RateLimitRequestsPerMinute)

	limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimitRequestsPerMinute,
		StoreType:         middleware.RateLimitStoreType(cfg.RateLimitStore),
		RedisClient:       redisClient, // nil for memory store
		CleanupInterval:   cfg.CleanupInterval,
		AuditService:      auditService,
	})
	if err != nil {
		log.Fatalf("Failed to create rate limiter: %v", err)
	}
	return limiter
}
