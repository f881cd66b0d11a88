package bootstrap

import (
	"log"
	"net/http"

	"github.com/schoolpulse/identity/internal/config"
	"github.com/schoolpulse/identity/internal/core"
	"github.com/schoolpulse/identity/internal/metrics"
	"github.com/schoolpulse/identity/internal/services"
	"github.com/schoolpulse/identity/internal/store"
	"github.com/schoolpulse/identity/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	h *TokenHandlerSet,
	recorder core.Recorder,
	auditService *services.AuditService,
	redisClient *redis.Client,
) *gin.Engine {
	setupGinMode(cfg)
	r := gin.New()

	// Setup middleware
	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Logger(), gin.Recovery())

	// Health check endpoint
	r.GET("/health", createHealthCheckHandler(db))

	// Version endpoint
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"app":     version.App,
			"version": version.GetVersion(),
		})
	})

	// Setup metrics endpoint
	setupMetricsEndpoint(r, cfg)

	// Rate limiting applies to the token endpoint only
	tokenRateLimiter := setupRateLimiting(cfg, auditService, redisClient)

	// OAuth API routes
	oauth := r.Group("/oauth")
	{
		oauth.POST("/token", tokenRateLimiter, h.token.Token)
		oauth.POST("/revoke", h.token.Revoke)
		oauth.POST("/tokeninfo", h.token.TokenInfo)
	}

	logServerStartup(cfg)

	return r
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	if !cfg.MetricsEnabled {
		log.Printf("Prometheus metrics disabled")
		return
	}
	log.Printf("Prometheus metrics enabled at /metrics")
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// createHealthCheckHandler creates health check endpoint handler
// healthCheck godoc
//
//	@Summary		Health check
//	@Description	Check server and database health status
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	object{status=string,database=string}	"Service is healthy"
//	@Failure		503	{object}	object{status=string,database=string}	"Service is unhealthy"
//	@Router			/health [get]
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	mode := ginModeMap[cfg.IsProduction]
	gin.SetMode(mode)
	log.Printf("Gin mode: %s", ginModeLogMessage[cfg.IsProduction])
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}

var ginModeLogMessage = map[bool]string{
	true:  "Release (production)",
	false: "Debug (development)",
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("Token service starting on %s", cfg.ServerAddr)
	log.Printf("Token endpoint: %s/oauth/token", cfg.BaseURL)
	log.Printf("Default client: SchoolPulse Web (check logs for client_id on first run)")
}
