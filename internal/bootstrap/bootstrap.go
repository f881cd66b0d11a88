package bootstrap

import (
	"net/http"

	"github.com/schoolpulse/identity/internal/cache"
	"github.com/schoolpulse/identity/internal/config"
	"github.com/schoolpulse/identity/internal/core"
	"github.com/schoolpulse/identity/internal/services"
	"github.com/schoolpulse/identity/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                 *store.Store
	MetricsRecorder    core.Recorder
	MetricsCache       cache.Cache[int64]
	MetricsCacheCloser func() error
	RedisClient        *redis.Client

	// Services
	AuditService *services.AuditService
	TokenService *services.TokenService

	// HTTP
	TokenHandler *TokenHandlerSet
	Router       *gin.Engine
	Server       *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	validateConfiguration(cfg)

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	app.initializeBusinessLayer()

	// Phase 4: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, cache, and Redis
func (app *Application) initializeInfrastructure() error {
	var err error

	// Database
	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	// Metrics
	app.MetricsRecorder = initializeMetrics(app.Config)

	// Redis (shared by rate limiting and the metrics cache)
	app.RedisClient, err = initializeRedisClient(app.Config)
	if err != nil {
		return err
	}

	// Metrics gauge cache
	app.MetricsCache, app.MetricsCacheCloser, err = initializeMetricsCache(app.Config)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer sets up services
func (app *Application) initializeBusinessLayer() {
	// Audit service (required by the token service)
	app.AuditService = services.NewAuditService(
		app.DB,
		app.Config.EnableAuditLogging,
		app.Config.AuditLogBufferSize,
	)

	app.TokenService = services.NewTokenService(
		app.DB,
		app.Config,
		app.AuditService,
		app.MetricsRecorder,
	)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	app.TokenHandler = initializeHandlers(app.Config, app.TokenService)

	app.Router = setupRouter(
		app.Config,
		app.DB,
		app.TokenHandler,
		app.MetricsRecorder,
		app.AuditService,
		app.RedisClient,
	)

	app.Server = createHTTPServer(app.Config, app.Router)
}

// startWithGracefulShutdown starts the server and handles graceful shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addRedisClientShutdownJob(m, app.RedisClient)
	addAuditServiceShutdownJob(m, app.AuditService)
	addAuditLogCleanupJob(m, app.Config, app.AuditService)
	addExpiredRecordCleanupJob(m, app.Config, app.DB)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder, app.MetricsCache)
	addCacheCleanupJob(m, app.MetricsCacheCloser)

	<-m.Done()
}
