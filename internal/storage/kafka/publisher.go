// Package kafka publishes enriched users to a Kafka topic
package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/storage"
)

// Publisher produces keyed messages and waits for each delivery report
type Publisher struct {
	config   *Config
	producer *kafka.Producer
}

func NewPublisher(config *Config) (*Publisher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Kafka config: %w", err)
	}

	kafkaConfig := kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(config.Brokers, ","),
		"client.id":          config.ClientID,
		"acks":               "all",
		"message.timeout.ms": int(config.Timeout.Milliseconds()),
	}

	if config.SecurityProtocol != "PLAINTEXT" {
		kafkaConfig["security.protocol"] = config.SecurityProtocol
	}

	if strings.HasPrefix(config.SecurityProtocol, "SASL_") {
		kafkaConfig["sasl.mechanism"] = config.SASLMechanism
		kafkaConfig["sasl.username"] = config.SASLUsername
		kafkaConfig["sasl.password"] = config.SASLPassword
	}

	producer, err := kafka.NewProducer(&kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &Publisher{
		config:   config,
		producer: producer,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, body []byte) error {
	topic := p.config.Topic
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(key),
		Value: body,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := p.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	select {
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event: %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes outstanding messages before closing the producer
func (p *Publisher) Close() error {
	remaining := p.producer.Flush(int(p.config.Timeout.Milliseconds()))
	p.producer.Close()
	if remaining > 0 {
		return fmt.Errorf("%d Kafka messages were not delivered before close", remaining)
	}
	return nil
}

type Factory struct{}

func (f *Factory) Create(config storage.SinkConfig, logger logging.Logger) (storage.Sink, error) {
	kafkaConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for kafka sink")
	}

	publisher, err := NewPublisher(kafkaConfig)
	if err != nil {
		return nil, err
	}
	return storage.NewPublishSink("kafka", publisher, logger), nil
}

func (f *Factory) GetType() string {
	return "kafka"
}

func init() {
	storage.Register("kafka", &Factory{})
}
