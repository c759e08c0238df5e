package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache defines the interface for cache operations
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Len() int
}

// LoadFunc produces the value for a cache miss
type LoadFunc func(ctx context.Context) (interface{}, error)

// LocalCache wraps patrickmn/go-cache for in-memory caching
type LocalCache struct {
	cache  *gocache.Cache
	flight singleflight.Group
}

// NewLocalCache creates a new local cache instance. A zero defaultTTL keeps
// entries until Clear.
func NewLocalCache(defaultTTL, cleanupInterval time.Duration) *LocalCache {
	if defaultTTL == 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &LocalCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the local cache
func (l *LocalCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return l.cache.Get(key)
}

// Set stores a value in the local cache
func (l *LocalCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	l.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a value from the local cache
func (l *LocalCache) Delete(ctx context.Context, key string) error {
	l.cache.Delete(key)
	return nil
}

// Clear removes all items from the local cache
func (l *LocalCache) Clear(ctx context.Context) error {
	l.cache.Flush()
	return nil
}

// Len returns the number of cached items, including expired ones not yet evicted
func (l *LocalCache) Len() int {
	return l.cache.ItemCount()
}

// GetOrLoad returns the cached value for key, calling load on a miss.
// Concurrent misses for the same key share one load. Errors are not cached.
// load runs detached from ctx cancellation: a caller that gives up stops
// waiting without failing the other waiters.
func (l *LocalCache) GetOrLoad(ctx context.Context, key string, load LoadFunc) (interface{}, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := l.flight.DoChan(key, func() (interface{}, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(detached)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, v, gocache.DefaultExpiration)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

var _ Cache = (*LocalCache)(nil)
