package ratelimit

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/time/rate"
)

// bucketLimiter keeps one token bucket per upstream. The set of upstreams
// is small and fixed, so buckets are never evicted.
type bucketLimiter struct {
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewBucketLimiter creates an in-process limiter
func NewBucketLimiter(cfg Config) (Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &bucketLimiter{cfg: cfg, buckets: make(map[string]*rate.Limiter)}, nil
}

func (b *bucketLimiter) bucket(upstream string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ok := b.buckets[upstream]
	if !ok {
		l = rate.NewLimiter(rate.Limit(b.cfg.PerSecond), b.cfg.Burst)
		b.buckets[upstream] = l
	}
	return l
}

func (b *bucketLimiter) Wait(ctx context.Context, upstream string) error {
	return b.bucket(upstream).Wait(ctx)
}

func (b *bucketLimiter) Allow(upstream string) bool {
	return b.bucket(upstream).Allow()
}

func (b *bucketLimiter) Snapshot() Snapshot {
	b.mu.Lock()
	names := make([]string, 0, len(b.buckets))
	for name := range b.buckets {
		names = append(names, name)
	}
	b.mu.Unlock()
	sort.Strings(names)

	return Snapshot{Backend: BackendLocal, PerSecond: b.cfg.PerSecond, Burst: b.cfg.Burst, Upstreams: names}
}

// Health always succeeds for the in-process limiter
func (b *bucketLimiter) Health() error { return nil }

var _ Limiter = (*bucketLimiter)(nil)
