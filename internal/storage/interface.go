package storage

import (
	"context"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"
)

// Sink persists enriched users. Writes append; an empty batch is a no-op.
type Sink interface {
	Name() string
	Write(ctx context.Context, users []models.EnrichedUser) error
	Close() error
}

// SinkConfig is the backend-specific configuration handed to a factory
type SinkConfig interface {
	Validate() error
	GetType() string
}

// SinkFactory builds a sink from its config
type SinkFactory interface {
	Create(config SinkConfig, logger logging.Logger) (Sink, error)
	GetType() string
}
