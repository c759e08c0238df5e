package ratelimit

import (
	"fmt"
	"time"
)

// Backend selects where request budgets are tracked.
type Backend string

const (
	// BackendLocal keeps token buckets in process memory.
	BackendLocal Backend = "local"
	// BackendRedis shares a one-second window between every enricher
	// pointed at the same Redis.
	BackendRedis Backend = "redis"
)

// Config sizes the per-upstream budget.
type Config struct {
	PerSecond int     `json:"per_second"`
	Burst     int     `json:"burst"`
	Backend   Backend `json:"backend"`

	// Redis backend only.
	KeyPrefix    string        `json:"key_prefix,omitempty"`
	PollInterval time.Duration `json:"poll_interval,omitempty"`
}

// Validate fills defaults and rejects unknown backends
func (c *Config) Validate() error {
	if c.PerSecond <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d per second", c.PerSecond)
	}
	if c.Burst <= 0 {
		c.Burst = c.PerSecond
	}
	if c.Backend == "" {
		c.Backend = BackendLocal
	}

	switch c.Backend {
	case BackendLocal:
	case BackendRedis:
		if c.KeyPrefix == "" {
			c.KeyPrefix = "ratelimit:"
		}
		if c.PollInterval <= 0 {
			c.PollInterval = max(time.Second/time.Duration(c.PerSecond), 10*time.Millisecond)
		}
	default:
		return fmt.Errorf("unknown rate limit backend %q", c.Backend)
	}
	return nil
}
