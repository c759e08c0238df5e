package app

import (
	"fmt"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/config"
	"cart-enricher/internal/storage"
	"cart-enricher/internal/storage/aws"
	"cart-enricher/internal/storage/csvfile"
	"cart-enricher/internal/storage/kafka"
	"cart-enricher/internal/storage/postgres"
	"cart-enricher/internal/storage/pubsub"
	"cart-enricher/internal/storage/rabbitmq"
	"cart-enricher/internal/storage/redislist"
	"cart-enricher/internal/storage/sqlite"
)

func (app *App) initializeSinks() error {
	configs, err := sinkConfigs(app.Config)
	if err != nil {
		return err
	}

	sink, err := storage.NewSinks(configs, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize sinks: %w", err)
	}

	app.Sink = sink.WithObserver(app.Metrics)
	app.Logger.Info("Sinks: Ready", logging.String("sinks", sink.Name()))
	return nil
}

// sinkConfigs maps SINKS onto backend configs, in the configured order
func sinkConfigs(cfg *config.Config) ([]storage.SinkConfig, error) {
	configs := make([]storage.SinkConfig, 0, len(cfg.Sinks))
	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkCSV:
			configs = append(configs, &csvfile.Config{Path: cfg.CSVPath})
		case config.SinkSQLite:
			configs = append(configs, &sqlite.Config{Path: cfg.DatabasePath})
		case config.SinkPostgres:
			pgConfig, err := postgres.ParseDSN(cfg.PostgresDSN)
			if err != nil {
				return nil, err
			}
			configs = append(configs, pgConfig)
		case config.SinkRedis:
			configs = append(configs, &redislist.Config{
				Address:  cfg.RedisAddress,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
				Key:      cfg.RedisListKey,
			})
		case config.SinkKafka:
			configs = append(configs, &kafka.Config{
				Brokers: cfg.KafkaBrokers,
				Topic:   cfg.KafkaTopic,
			})
		case config.SinkRabbitMQ:
			configs = append(configs, &rabbitmq.Config{
				URL:        cfg.RabbitMQURL,
				Exchange:   cfg.RabbitMQExchange,
				Queue:      cfg.RabbitMQQueue,
				RoutingKey: cfg.RabbitMQRoutingKey,
			})
		case config.SinkSQS:
			configs = append(configs, &aws.SQSConfig{Credentials: awsCredentials(cfg), QueueURL: cfg.SQSQueueURL})
		case config.SinkSNS:
			configs = append(configs, &aws.SNSConfig{Credentials: awsCredentials(cfg), TopicArn: cfg.SNSTopicArn})
		case config.SinkPubSub:
			configs = append(configs, &pubsub.Config{
				ProjectID:       cfg.PubSubProjectID,
				TopicID:         cfg.PubSubTopic,
				CredentialsPath: cfg.PubSubCredentialsFile,
			})
		default:
			return nil, fmt.Errorf("unsupported sink: %s", name)
		}
	}
	return configs, nil
}

func awsCredentials(cfg *config.Config) aws.Credentials {
	return aws.Credentials{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		SessionToken:    cfg.AWSSessionToken,
		Endpoint:        cfg.AWSEndpoint,
	}
}
