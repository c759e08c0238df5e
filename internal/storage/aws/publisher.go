// Package aws publishes enriched users to AWS SQS queues and SNS topics
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/storage"
)

// SQSAPI is the part of the SQS client the publisher uses
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SNSAPI is the part of the SNS client the publisher uses
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func loadConfig(ctx context.Context, c Credentials) (aws.Config, error) {
	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(c.Region),
	}
	if c.AccessKeyID != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken),
		))
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// SQSPublisher sends one SQS message per record
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
}

func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, key string, body []byte) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"UserID": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(key),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}
	return nil
}

func (p *SQSPublisher) Close() error {
	return nil
}

// SNSPublisher publishes one SNS notification per record
type SNSPublisher struct {
	client   SNSAPI
	topicArn string
}

func NewSNSPublisher(client SNSAPI, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, key string, body []byte) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(p.topicArn),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snsTypes.MessageAttributeValue{
			"UserID": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(key),
			},
		},
	}

	if _, err := p.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("failed to publish message to SNS: %w", err)
	}
	return nil
}

func (p *SNSPublisher) Close() error {
	return nil
}

type SQSFactory struct{}

func (f *SQSFactory) Create(config storage.SinkConfig, logger logging.Logger) (storage.Sink, error) {
	sqsConfig, ok := config.(*SQSConfig)
	if !ok {
		return nil, fmt.Errorf("invalid config type for sqs sink")
	}

	cfg, err := loadConfig(context.Background(), sqsConfig.Credentials)
	if err != nil {
		return nil, err
	}
	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if sqsConfig.Endpoint != "" {
			o.BaseEndpoint = aws.String(sqsConfig.Endpoint)
		}
	})
	return storage.NewPublishSink("sqs", NewSQSPublisher(client, sqsConfig.QueueURL), logger), nil
}

func (f *SQSFactory) GetType() string {
	return "sqs"
}

type SNSFactory struct{}

func (f *SNSFactory) Create(config storage.SinkConfig, logger logging.Logger) (storage.Sink, error) {
	snsConfig, ok := config.(*SNSConfig)
	if !ok {
		return nil, fmt.Errorf("invalid config type for sns sink")
	}

	cfg, err := loadConfig(context.Background(), snsConfig.Credentials)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(cfg, func(o *sns.Options) {
		if snsConfig.Endpoint != "" {
			o.BaseEndpoint = aws.String(snsConfig.Endpoint)
		}
	})
	return storage.NewPublishSink("sns", NewSNSPublisher(client, snsConfig.TopicArn), logger), nil
}

func (f *SNSFactory) GetType() string {
	return "sns"
}

func init() {
	storage.Register("sqs", &SQSFactory{})
	storage.Register("sns", &SNSFactory{})
}
