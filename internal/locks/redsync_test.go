package locks

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/redis"
)

func newManager(t *testing.T) (*RedsyncManager, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)

	client, err := redis.NewClient(&redis.Config{Address: s.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	manager, err := NewRedsyncManager(client, "cart-enricher:", logging.NewNopLogger())
	require.NoError(t, err)
	return manager, s
}

func TestRedsyncManager_TryAcquire(t *testing.T) {
	manager, s := newManager(t)
	ctx := context.Background()

	lock, err := manager.TryAcquire(ctx, "run", 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "run", lock.Key())
	assert.True(t, lock.IsHeld())
	assert.True(t, s.Exists("cart-enricher:lock:run"))

	require.NoError(t, lock.Release(ctx))
	assert.False(t, lock.IsHeld())
	assert.False(t, s.Exists("cart-enricher:lock:run"))
	assert.NoError(t, lock.Release(ctx))
}

func TestRedsyncManager_Contention(t *testing.T) {
	manager, _ := newManager(t)
	ctx := context.Background()

	first, err := manager.TryAcquire(ctx, "run", 30*time.Second)
	require.NoError(t, err)

	second, err := manager.TryAcquire(ctx, "run", 30*time.Second)
	assert.ErrorIs(t, err, ErrHeld)
	assert.Nil(t, second)

	require.NoError(t, first.Release(ctx))

	third, err := manager.TryAcquire(ctx, "run", 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, third.Release(ctx))
}

func TestNewRedsyncManager_RequiresClient(t *testing.T) {
	_, err := NewRedsyncManager(nil, "", logging.NewNopLogger())
	assert.Error(t, err)
}
