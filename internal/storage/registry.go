package storage

import (
	"fmt"
	"sort"
	"sync"

	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
)

type Registry struct {
	factories map[string]SinkFactory
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]SinkFactory),
	}
}

func (r *Registry) Register(sinkType string, factory SinkFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[sinkType] = factory
}

func (r *Registry) Create(config SinkConfig, logger logging.Logger) (Sink, error) {
	sinkType := config.GetType()

	r.mu.RLock()
	factory, exists := r.factories[sinkType]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.ConfigError(fmt.Sprintf("sink type %s not registered", sinkType))
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s sink config: %w", sinkType, err)
	}

	return factory.Create(config, logger)
}

// GetAvailableTypes returns the registered sink types in sorted order
func (r *Registry) GetAvailableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for sinkType := range r.factories {
		types = append(types, sinkType)
	}
	sort.Strings(types)
	return types
}

func (r *Registry) IsRegistered(sinkType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[sinkType]
	return exists
}

var DefaultRegistry = NewRegistry()

func Register(sinkType string, factory SinkFactory) {
	DefaultRegistry.Register(sinkType, factory)
}

func Create(config SinkConfig, logger logging.Logger) (Sink, error) {
	return DefaultRegistry.Create(config, logger)
}

func GetAvailableTypes() []string {
	return DefaultRegistry.GetAvailableTypes()
}
