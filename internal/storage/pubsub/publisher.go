// Package pubsub publishes enriched users to a Google Cloud Pub/Sub topic
package pubsub

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/storage"
)

// Config selects the topic. Without credentials, Application Default
// Credentials are used; PUBSUB_EMULATOR_HOST is honoured by the client.
type Config struct {
	ProjectID       string
	TopicID         string
	CredentialsJSON string
	CredentialsPath string
}

func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("Pub/Sub project id is required")
	}
	if c.TopicID == "" {
		return fmt.Errorf("Pub/Sub topic id is required")
	}
	return nil
}

func (c *Config) GetType() string {
	return "pubsub"
}

// Publisher waits for the server-assigned id of every message
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewPublisher(ctx context.Context, config *Config) (*Publisher, error) {
	var opts []option.ClientOption
	if config.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(config.CredentialsJSON)))
	} else if config.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	}

	client, err := pubsub.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, errors.UpstreamUnavailable("failed to create Pub/Sub client", err)
	}

	topic := client.Topic(config.TopicID)

	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, errors.UpstreamUnavailable("failed to check topic existence", err)
	}
	if !exists {
		client.Close()
		return nil, errors.ConfigError(fmt.Sprintf("topic %s does not exist", config.TopicID))
	}

	topic.PublishSettings.NumGoroutines = 2
	topic.PublishSettings.CountThreshold = 10
	topic.PublishSettings.DelayThreshold = 100 * time.Millisecond

	return &Publisher{client: client, topic: topic}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, body []byte) error {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"user_id":      key,
			"content_type": "application/json",
		},
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the client
func (p *Publisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

type Factory struct{}

func (f *Factory) Create(config storage.SinkConfig, logger logging.Logger) (storage.Sink, error) {
	psConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for pubsub sink")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	publisher, err := NewPublisher(ctx, psConfig)
	if err != nil {
		return nil, err
	}
	return storage.NewPublishSink("pubsub", publisher, logger), nil
}

func (f *Factory) GetType() string {
	return "pubsub"
}

func init() {
	storage.Register("pubsub", &Factory{})
}
