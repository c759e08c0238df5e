package rabbitmq

import (
	"fmt"
	"net/url"
)

type Config struct {
	URL        string
	Exchange   string
	Queue      string
	RoutingKey string
}

// Validate requires a queue or an exchange. With only a queue, messages go
// through the default exchange keyed by the queue name.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("RabbitMQ URL is required")
	}

	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
		return fmt.Errorf("RabbitMQ URL must use the amqp or amqps scheme")
	}

	if c.Queue == "" && c.Exchange == "" {
		return fmt.Errorf("RabbitMQ queue or exchange is required")
	}

	if c.RoutingKey == "" {
		c.RoutingKey = c.Queue
	}

	return nil
}

func (c *Config) GetType() string {
	return "rabbitmq"
}
