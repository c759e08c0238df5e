package circuitbreaker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(maxFailures int, cooldown time.Duration) Config {
	return Config{MaxFailures: maxFailures, Cooldown: cooldown, Probes: 1, Interval: time.Minute}
}

func TestBreaker(t *testing.T) {
	logger := logging.NewNopLogger()

	t.Run("passes calls through while closed", func(t *testing.T) {
		b := New("users", testConfig(2, 100*time.Millisecond), logger)
		assert.NoError(t, b.Execute(context.Background(), func() error { return nil }))
		assert.Equal(t, "closed", b.State())
	})

	t.Run("opens after consecutive transport failures", func(t *testing.T) {
		b := New("carts", testConfig(3, time.Second), logger)

		for i := 0; i < 3; i++ {
			err := b.Execute(context.Background(), func() error {
				return errors.UpstreamUnavailable("carts request failed", fmt.Errorf("connection refused"))
			})
			assert.Error(t, err)
		}
		assert.Equal(t, "open", b.State())

		err := b.Execute(context.Background(), func() error {
			t.Fatal("should not be called while open")
			return nil
		})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamUnavailable))
		assert.False(t, errors.IsTimeout(err))
		assert.Contains(t, err.Error(), "carts: circuit breaker is open")
	})

	t.Run("client errors do not trip", func(t *testing.T) {
		b := New("products", testConfig(2, time.Second), logger)

		for i := 0; i < 5; i++ {
			err := b.Execute(context.Background(), func() error {
				return errors.UpstreamRejected(404, "product not found")
			})
			assert.True(t, errors.IsType(err, errors.ErrTypeUpstreamRejected))
		}
		assert.Equal(t, "closed", b.State())
		assert.Equal(t, 5, b.Stats().Successes)
	})

	t.Run("server errors trip", func(t *testing.T) {
		b := New("geocoder", testConfig(2, time.Second), logger)

		for i := 0; i < 2; i++ {
			_ = b.Execute(context.Background(), func() error {
				return errors.UpstreamRejected(503, "service unavailable")
			})
		}
		stats := b.Stats()
		assert.Equal(t, "open", stats.State)
		assert.Equal(t, 2, stats.Requests)
		assert.Equal(t, 2, stats.Failures)
		assert.Equal(t, 2, stats.ConsecutiveFailures)
	})

	t.Run("stats survive the trip and skip refused calls", func(t *testing.T) {
		b := New("carts", testConfig(2, time.Minute), logger)

		assert.NoError(t, b.Execute(context.Background(), func() error { return nil }))
		for i := 0; i < 2; i++ {
			_ = b.Execute(context.Background(), func() error {
				return errors.UpstreamUnavailable("carts request failed", fmt.Errorf("connection reset"))
			})
		}
		err := b.Execute(context.Background(), func() error { return nil })
		require.True(t, errors.IsType(err, errors.ErrTypeUpstreamUnavailable))

		assert.Equal(t, Stats{
			Name:                "carts",
			State:               "open",
			Requests:            3,
			Failures:            2,
			Successes:           1,
			ConsecutiveFailures: 2,
		}, b.Stats())
	})

	t.Run("half-open probe closes the breaker", func(t *testing.T) {
		b := New("geocoder", testConfig(2, 50*time.Millisecond), logger)

		for i := 0; i < 2; i++ {
			_ = b.Execute(context.Background(), func() error { return fmt.Errorf("failure") })
		}
		require.Equal(t, "open", b.State())

		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, "half-open", b.State())

		assert.NoError(t, b.Execute(context.Background(), func() error { return nil }))
		assert.Equal(t, "closed", b.State())
		assert.Equal(t, 0, b.Stats().ConsecutiveFailures)
		assert.Equal(t, 2, b.Stats().Failures)
	})

	t.Run("cancelled context short-circuits", func(t *testing.T) {
		b := New("ctx", testConfig(1, time.Minute), logger)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := b.Execute(ctx, func() error {
			t.Fatal("should not be called")
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, "closed", b.State())
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		b := New("invalid", Config{}, logger)
		for i := 0; i < 4; i++ {
			_ = b.Execute(context.Background(), func() error { return fmt.Errorf("failure") })
		}
		assert.Equal(t, "closed", b.State())
	})
}

func TestSet(t *testing.T) {
	set := NewSet(testConfig(1, time.Minute), logging.NewNopLogger())

	users := set.For("users")
	assert.Same(t, users, set.For("users"))

	err := set.For("geocoder").Execute(context.Background(), func() error {
		return errors.UpstreamUnavailable("geocode request failed", nil)
	})
	require.Error(t, err)

	stats := set.Snapshot()
	require.Len(t, stats, 2)
	assert.Equal(t, "geocoder", stats[0].Name)
	assert.Equal(t, "open", stats[0].State)
	assert.Equal(t, "users", stats[1].Name)
	assert.Equal(t, "closed", stats[1].State)
}
