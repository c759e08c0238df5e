package aws

import (
	"fmt"
	"strings"
)

// Credentials are optional; without them the default AWS credential chain
// is used. Endpoint overrides the service URL, e.g. for LocalStack.
type Credentials struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Endpoint        string
}

func (c *Credentials) validate() error {
	if c.Region == "" {
		return fmt.Errorf("AWS region is required")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("AWS access key id and secret access key must be set together")
	}
	return nil
}

// SQSConfig sends each record to an SQS queue
type SQSConfig struct {
	Credentials
	QueueURL string
}

func (c *SQSConfig) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.QueueURL == "" {
		return fmt.Errorf("SQS queue URL is required")
	}
	return nil
}

func (c *SQSConfig) GetType() string {
	return "sqs"
}

// SNSConfig publishes each record to an SNS topic
type SNSConfig struct {
	Credentials
	TopicArn string
}

func (c *SNSConfig) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	if !strings.HasPrefix(c.TopicArn, "arn:") {
		return fmt.Errorf("SNS topic ARN is required")
	}
	return nil
}

func (c *SNSConfig) GetType() string {
	return "sns"
}
