package circuitbreaker

import (
	"sort"
	"sync"

	"cart-enricher/internal/common/logging"
)

// Set hands out one breaker per upstream, all sharing a Config.
type Set struct {
	mu       sync.Mutex
	cfg      Config
	logger   logging.Logger
	breakers map[string]*Breaker
}

func NewSet(cfg Config, logger logging.Logger) *Set {
	return &Set{cfg: cfg, logger: logger, breakers: make(map[string]*Breaker)}
}

// For returns the breaker for upstream, creating it on first use.
func (s *Set) For(upstream string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.breakers[upstream]
	if !ok {
		b = New(upstream, s.cfg, s.logger)
		s.breakers[upstream] = b
	}
	return b
}

// Snapshot returns the stats of every breaker, ordered by upstream.
func (s *Set) Snapshot() []Stats {
	s.mu.Lock()
	stats := make([]Stats, 0, len(s.breakers))
	for _, b := range s.breakers {
		stats = append(stats, b.Stats())
	}
	s.mu.Unlock()

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
