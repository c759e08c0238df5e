package app

import (
	"time"

	"cart-enricher/internal/batch"
	"cart-enricher/internal/catalog"
	"cart-enricher/internal/circuitbreaker"
	"cart-enricher/internal/common/cache"
	commonhttp "cart-enricher/internal/common/http"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/common/utils"
	"cart-enricher/internal/enrich"
	"cart-enricher/internal/geocoder"
)

// Upstream names double as rate limit keys, breaker names and metric labels.
const (
	upstreamUsers    = "users"
	upstreamCarts    = "carts"
	upstreamProducts = "products"
	upstreamGeocoder = "geocoder"
)

// initializePipeline wires the upstream clients and the per-user orchestrator
func (app *App) initializePipeline() {
	cfg := app.Config

	app.HTTPClient = commonhttp.NewHTTPClient(commonhttp.WithTimeout(cfg.HTTPTimeout))

	breakerConfig := circuitbreaker.DefaultConfig()
	breakerConfig.MaxFailures = cfg.BreakerMaxFailures
	breakerConfig.Cooldown = cfg.BreakerTimeout
	app.Breakers = circuitbreaker.NewSet(breakerConfig, app.Logger)

	users := app.upstream(upstreamUsers)
	carts := app.upstream(upstreamCarts)
	products := app.upstream(upstreamProducts)
	geo := app.upstream(upstreamGeocoder).WithHeader("User-Agent", cfg.GeocoderUserAgent)

	app.Catalog = catalog.NewClient(catalog.Config{
		UsersURL:    cfg.UsersURL,
		CartsURL:    cfg.CartsURL,
		ProductsURL: cfg.ProductsURL,
	}, users, carts, products, app.Logger)

	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = cfg.GeocoderMaxAttempts
	retry.InitialDelay = cfg.GeocoderBaseDelay
	retry.BackoffFactor = 2
	app.Geocoder = geocoder.NewClient(geocoder.Config{
		URL:   cfg.GeocoderURL,
		Retry: retry,
	}, geo, app.Logger)

	// Category memo lives for one run; the runner clears it at both ends.
	app.Memo = cache.NewLocalCache(0, 10*time.Minute)
	flattener := enrich.NewFlattener(app.Catalog, cfg.CategoryConcurrency, app.Logger).WithMemo(app.Memo)

	app.Orchestrator = enrich.NewOrchestrator(app.Catalog, flattener, app.Geocoder, app.Logger,
		enrich.WithUserTimeout(cfg.UserTimeout),
		enrich.WithObserver(app.Metrics),
	)

	app.Logger.Info("Pipeline: Ready",
		logging.String("users_url", cfg.UsersURL),
		logging.String("geocoder_url", cfg.GeocoderURL),
		logging.Int("category_concurrency", cfg.CategoryConcurrency),
		logging.Duration("user_timeout", cfg.UserTimeout),
	)
}

// upstream builds the JSON client for one named service
func (app *App) upstream(name string) *commonhttp.HTTPClientWrapper {
	return commonhttp.NewHTTPClientWrapper(name, app.HTTPClient, app.Logger).
		WithCircuitBreaker(app.Breakers.For(name)).
		WithRateLimiter(app.RateLimiter).
		WithObserver(app.Metrics)
}

func (app *App) initializeRunner() {
	cfg := app.Config
	app.Runner = batch.NewRunner(app.Catalog, app.Orchestrator, app.Sink, batch.Config{
		PageSize:  cfg.PageSize,
		StartSkip: cfg.StartSkip,
		MaxUsers:  cfg.MaxUsers,
		Workers:   cfg.Workers,
		Fields:    cfg.UserFields,
	}, app.Logger,
		batch.WithMemo(app.Memo),
		batch.WithObserver(app.Metrics),
	)
}
