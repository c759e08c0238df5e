// Package circuitbreaker stops calling an upstream that keeps failing at the
// transport level, so a dead geocoder costs one timeout per cooldown rather
// than one per user.
package circuitbreaker

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"

	"github.com/sony/gobreaker"
)

// Config sizes every breaker in a Set.
type Config struct {
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int
	// Cooldown is how long an open breaker waits before letting a probe through.
	Cooldown time.Duration
	// Probes is how many calls a half-open breaker admits.
	Probes int
	// Interval clears closed-state counts; zero keeps them for the breaker's life.
	Interval time.Duration
}

// DefaultConfig returns five failures, a 30s cooldown and a single probe.
func DefaultConfig() Config {
	return Config{MaxFailures: 5, Cooldown: 30 * time.Second, Probes: 1, Interval: time.Minute}
}

func (c Config) valid() bool {
	return c.MaxFailures > 0 && c.Cooldown > 0 && c.Probes > 0
}

// Stats is what the health endpoint reports per upstream.
type Stats struct {
	Name                string `json:"name"`
	State               string `json:"state"`
	Requests            int    `json:"requests"`
	Failures            int    `json:"failures"`
	Successes           int    `json:"successes"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// Breaker guards one upstream. gobreaker resets its counts on every state
// change, so the totals reported by Stats are kept here.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker

	mu          sync.Mutex
	requests    int
	failures    int
	successes   int
	consecutive int
}

// New creates a breaker for upstream. An invalid config is replaced by DefaultConfig.
func New(upstream string, cfg Config, logger logging.Logger) *Breaker {
	logger = logging.ForComponent(logger, "circuitbreaker")
	if !cfg.valid() {
		logger.Warn("Invalid circuit breaker config, using defaults", logging.String("upstream", upstream))
		cfg = DefaultConfig()
	}

	b := &Breaker{name: upstream}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        upstream,
		MaxRequests: uint32(cfg.Probes),
		Interval:    cfg.Interval,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				logging.String("upstream", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
		IsSuccessful: b.record,
	})
	return b
}

// record tallies the outcome of every call the breaker let through.
func (b *Breaker) record(err error) bool {
	ok := answered(err)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests++
	if ok {
		b.successes++
		b.consecutive = 0
	} else {
		b.failures++
		b.consecutive++
	}
	return ok
}

// answered counts a call against the upstream only when it failed at the
// transport level or came back 5xx. A 404 is a healthy answer.
func answered(err error) bool {
	if err == nil {
		return true
	}
	appErr, ok := errors.As(err)
	if !ok {
		return false
	}
	switch appErr.Type {
	case errors.ErrTypeValidation:
		return true
	case errors.ErrTypeUpstreamRejected:
		return appErr.StatusCode < 500
	}
	return false
}

// Execute runs fn unless the breaker is open. A refused call is an
// UpstreamUnavailable error.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.UpstreamUnavailable(fmt.Sprintf("%s: circuit breaker is open", b.name), err)
	}
	return err
}

// State is "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Stats reports totals over the breaker's life. Calls refused while open
// are not counted.
func (b *Breaker) Stats() Stats {
	state := b.State()

	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:                b.name,
		State:               state,
		Requests:            b.requests,
		Failures:            b.failures,
		Successes:           b.successes,
		ConsecutiveFailures: b.consecutive,
	}
}
