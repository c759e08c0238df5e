package ratelimit

import (
	"context"
	"time"
)

// windowLimiter asks Redis whether upstream still has budget in the current
// second. Store errors let the request through; a limiter outage must not
// halt enrichment.
type windowLimiter struct {
	cfg   Config
	store WindowStore
}

// NewWindowLimiter creates a Redis-backed limiter
func NewWindowLimiter(cfg Config, store WindowStore) (Limiter, error) {
	if store == nil {
		return nil, errNoStore()
	}
	cfg.Backend = BackendRedis
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &windowLimiter{cfg: cfg, store: store}, nil
}

func (w *windowLimiter) Allow(upstream string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	allowed, _, err := w.store.CheckRateLimit(ctx, w.cfg.KeyPrefix+upstream, w.cfg.PerSecond, time.Second)
	return err != nil || allowed
}

func (w *windowLimiter) Wait(ctx context.Context, upstream string) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for !w.Allow(upstream) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (w *windowLimiter) Snapshot() Snapshot {
	return Snapshot{Backend: BackendRedis, PerSecond: w.cfg.PerSecond}
}

// Health checks the Redis connection
func (w *windowLimiter) Health() error {
	return w.store.Health()
}

var _ Limiter = (*windowLimiter)(nil)
