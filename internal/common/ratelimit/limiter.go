// Package ratelimit meters outbound calls per upstream service. Each upstream
// name gets its own budget so a slow geocoder never starves the catalog.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter hands out per-upstream request permits.
type Limiter interface {
	// Wait blocks until upstream has budget or ctx ends.
	Wait(ctx context.Context, upstream string) error
	// Allow takes a permit for upstream without blocking.
	Allow(upstream string) bool
	Snapshot() Snapshot
	Health() error
}

// WindowStore counts requests in a shared sliding window. The Redis client
// satisfies it.
type WindowStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
	Health() error
}

// Snapshot describes a limiter for the health endpoint and logs.
type Snapshot struct {
	Backend   Backend  `json:"backend"`
	PerSecond int      `json:"per_second"`
	Burst     int      `json:"burst,omitempty"`
	Upstreams []string `json:"upstreams,omitempty"`
}

// New builds the limiter for cfg.Backend. The redis backend needs a store.
func New(cfg Config, store WindowStore) (Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendRedis:
		return NewWindowLimiter(cfg, store)
	default:
		return NewBucketLimiter(cfg)
	}
}

func errNoStore() error {
	return fmt.Errorf("redis rate limiting needs a redis connection")
}
