// Package rabbitmq publishes enriched users to RabbitMQ over AMQP
package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/storage"
)

// Channel is the part of an AMQP channel the publisher uses
type Channel interface {
	Publish(exchange, routingKey string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Close() error
}

// Publisher sends persistent JSON messages on a single channel. AMQP
// channels are not safe for concurrent use, so publishes are serialized.
type Publisher struct {
	config *Config
	conn   *amqp.Connection
	ch     Channel
	mu     sync.Mutex
}

// Dial connects to the broker and declares the configured topology
func Dial(config *Config) (*Publisher, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p, err := NewPublisher(config, ch)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares the durable queue and direct exchange named in
// config on ch, binding them when both are set.
func NewPublisher(config *Config, ch Channel) (*Publisher, error) {
	if config.Queue != "" {
		if _, err := ch.QueueDeclare(config.Queue, true, false, false, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", config.Queue, err)
		}
	}

	if config.Exchange != "" {
		if err := ch.ExchangeDeclare(config.Exchange, "direct", true, false, false, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare exchange %s: %w", config.Exchange, err)
		}

		if config.Queue != "" {
			if err := ch.QueueBind(config.Queue, config.RoutingKey, config.Exchange, false, nil); err != nil {
				ch.Close()
				return nil, fmt.Errorf("failed to bind queue %s to exchange %s: %w", config.Queue, config.Exchange, err)
			}
		}
	}

	return &Publisher{config: config, ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.Publish(
		p.config.Exchange,
		p.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    key,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}

func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type Factory struct{}

func (f *Factory) Create(config storage.SinkConfig, logger logging.Logger) (storage.Sink, error) {
	rmqConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for rabbitmq sink")
	}

	publisher, err := Dial(rmqConfig)
	if err != nil {
		return nil, err
	}
	return storage.NewPublishSink("rabbitmq", publisher, logger), nil
}

func (f *Factory) GetType() string {
	return "rabbitmq"
}

func init() {
	storage.Register("rabbitmq", &Factory{})
}
