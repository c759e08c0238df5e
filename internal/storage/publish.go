package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"
)

// Publisher delivers one message to a broker and waits for the broker to
// accept it. key identifies the record for partitioning or deduplication.
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
	Close() error
}

// PublishSink writes every enriched user as its own JSON message
type PublishSink struct {
	name      string
	publisher Publisher
	logger    logging.Logger
}

// NewPublishSink wraps publisher. The sink owns it and closes it on Close.
func NewPublishSink(name string, publisher Publisher, logger logging.Logger) *PublishSink {
	return &PublishSink{
		name:      name,
		publisher: publisher,
		logger:    logging.ForComponent(logger, name+"_sink"),
	}
}

func (s *PublishSink) Name() string {
	return s.name
}

// Write publishes users in order and stops at the first failure
func (s *PublishSink) Write(ctx context.Context, users []models.EnrichedUser) error {
	if len(users) == 0 {
		return nil
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encode user %d: %w", u.ID, err)
		}
		if err := s.publisher.Publish(ctx, strconv.Itoa(u.ID), body); err != nil {
			return fmt.Errorf("publish user %d: %w", u.ID, err)
		}
	}

	s.logger.Info("Users published", logging.Int("records", len(users)))
	return nil
}

func (s *PublishSink) Close() error {
	return s.publisher.Close()
}
