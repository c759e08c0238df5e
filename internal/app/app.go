package app

import (
	"net/http"

	"cart-enricher/internal/batch"
	"cart-enricher/internal/catalog"
	"cart-enricher/internal/circuitbreaker"
	"cart-enricher/internal/common/cache"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/common/ratelimit"
	"cart-enricher/internal/config"
	"cart-enricher/internal/enrich"
	"cart-enricher/internal/geocoder"
	"cart-enricher/internal/locks"
	"cart-enricher/internal/metrics"
	"cart-enricher/internal/redis"
	"cart-enricher/internal/storage"
)

// App holds all the application dependencies
type App struct {
	Config       *config.Config
	HTTPClient   *http.Client
	Breakers     *circuitbreaker.Set
	RateLimiter  ratelimit.Limiter
	RedisClient  *redis.Client
	Locks        *locks.RedsyncManager
	Metrics      *metrics.Registry
	Catalog      *catalog.Client
	Geocoder     *geocoder.Client
	Memo         *cache.LocalCache
	Orchestrator *enrich.Orchestrator
	Sink         *storage.MultiSink
	Runner       *batch.Runner
	Logger       logging.Logger

	runs *runTracker
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app, err := NewPipeline(cfg)
	if err != nil {
		return nil, err
	}

	if err := app.initializeSinks(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.initializeRunner()

	return app, nil
}

// NewPipeline wires the upstream clients and the orchestrator without any
// sink or runner. Used by tools that only enrich.
func NewPipeline(cfg *config.Config) (*App, error) {
	app := &App{
		Config:  cfg,
		Metrics: metrics.NewRegistry(),
		Logger:  logging.ForComponent(nil, "app"),
		runs:    &runTracker{},
	}

	// Initialize components in order of dependency
	if err := app.initializeRedis(); err != nil {
		return nil, err
	}

	if err := app.initializeRateLimiter(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.initializePipeline()

	return app, nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Sink != nil {
		if err := app.Sink.Close(); err != nil {
			app.Logger.Warn("Error closing sinks", logging.Err(err))
		}
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
	if app.HTTPClient != nil {
		app.HTTPClient.CloseIdleConnections()
	}
}
