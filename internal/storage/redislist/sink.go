// Package redislist pushes enriched users onto a Redis list as JSON
package redislist

import (
	"context"
	"fmt"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"
	"cart-enricher/internal/redis"
	"cart-enricher/internal/storage"
)

type Config struct {
	Address  string
	Password string
	DB       int
	Key      string
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.Key == "" {
		c.Key = "enriched_users"
	}
	return nil
}

func (c *Config) GetType() string {
	return "redis"
}

// Pusher is the part of the Redis client the sink needs
type Pusher interface {
	PushJSON(ctx context.Context, key string, values ...interface{}) error
	Close() error
}

type Sink struct {
	client Pusher
	key    string
	logger logging.Logger
}

// NewSink wraps an existing client. The sink owns it and closes it on Close.
func NewSink(client Pusher, key string, logger logging.Logger) *Sink {
	return &Sink{
		client: client,
		key:    key,
		logger: logging.ForComponent(logger, "redis_sink"),
	}
}

func (s *Sink) Name() string {
	return "redis"
}

func (s *Sink) Write(ctx context.Context, users []models.EnrichedUser) error {
	if len(users) == 0 {
		return nil
	}

	values := make([]interface{}, len(users))
	for i, u := range users {
		values[i] = u
	}
	if err := s.client.PushJSON(ctx, s.key, values...); err != nil {
		return err
	}

	s.logger.Info("Users pushed to list", logging.String("key", s.key), logging.Int("records", len(users)))
	return nil
}

func (s *Sink) Close() error {
	return s.client.Close()
}

type Factory struct{}

func (f *Factory) Create(config storage.SinkConfig, logger logging.Logger) (storage.Sink, error) {
	redisConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for redis sink")
	}

	client, err := redis.NewClient(&redis.Config{
		Address:  redisConfig.Address,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})
	if err != nil {
		return nil, err
	}
	return NewSink(client, redisConfig.Key, logger), nil
}

func (f *Factory) GetType() string {
	return "redis"
}

func init() {
	storage.Register("redis", &Factory{})
}
