package app

import (
	"fmt"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/common/ratelimit"
)

// initializeRateLimiter builds the limiter shared by every upstream. Each
// upstream draws from its own key, so the budget applies per service.
func (app *App) initializeRateLimiter() error {
	cfg := ratelimit.Config{
		PerSecond: app.Config.UpstreamRPS,
		Burst:     app.Config.UpstreamBurst,
		Backend:   ratelimit.Backend(app.Config.RateLimitBackend),
		KeyPrefix: "cart-enricher:upstream:",
	}

	var store ratelimit.WindowStore
	if app.RedisClient != nil {
		store = app.RedisClient
	}

	limiter, err := ratelimit.New(cfg, store)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	app.RateLimiter = limiter
	snap := limiter.Snapshot()
	app.Logger.Info("Rate limiting enabled",
		logging.String("backend", string(snap.Backend)),
		logging.Int("per_second", snap.PerSecond),
		logging.Int("burst", app.Config.UpstreamBurst),
	)
	return nil
}
