// Package config loads the pipeline configuration from environment variables.
//
// Every variable has a default, so an empty environment describes a local run
// against the public dummyjson and Nominatim services that writes a CSV file.
//
// Environment Variables:
//
// Upstreams:
//   - USERS_URL, CARTS_URL, PRODUCTS_URL: catalog endpoints
//   - GEOCODER_URL: reverse geocoding endpoint
//   - GEOCODER_USER_AGENT: User-Agent sent to the geocoder
//   - USER_FIELDS: comma separated fields requested from the user listing
//
// Paging and concurrency:
//   - PAGE_SIZE (default: 20), START_SKIP (default: 0), MAX_USERS (default: 0, no cap)
//   - WORKERS (default: 4), CATEGORY_CONCURRENCY (default: 4)
//   - HTTP_TIMEOUT (default: 10s), USER_TIMEOUT (default: 30s)
//   - GEOCODER_MAX_ATTEMPTS (default: 3), GEOCODER_BASE_DELAY (default: 500ms)
//   - UPSTREAM_RPS (default: 10), UPSTREAM_BURST (default: 10)
//   - RATE_LIMIT_BACKEND: "local" or "redis" (default: local)
//   - CIRCUIT_BREAKER_MAX_FAILURES (default: 5), CIRCUIT_BREAKER_TIMEOUT (default: 30s)
//
// Sinks:
//   - SINKS: comma separated list of csv, sqlite, postgres, redis, kafka, rabbitmq,
//     sqs, sns, pubsub (default: csv)
//   - CSV_PATH (default: data/file/users.csv)
//   - DATABASE_PATH (default: data/db/users.db)
//   - POSTGRES_DSN: postgres:// URL, required when SINKS contains postgres
//   - REDIS_ADDRESS (default: localhost:6379), REDIS_PASSWORD, REDIS_DB (default: 0)
//   - REDIS_LIST_KEY (default: enriched_users)
//   - KAFKA_BROKERS, KAFKA_TOPIC (default: enriched-users)
//   - RABBITMQ_URL, RABBITMQ_EXCHANGE, RABBITMQ_QUEUE (default: enriched_users), RABBITMQ_ROUTING_KEY
//   - AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN, AWS_ENDPOINT_URL
//   - SQS_QUEUE_URL, SNS_TOPIC_ARN
//   - PUBSUB_PROJECT_ID, PUBSUB_TOPIC (default: enriched-users), PUBSUB_CREDENTIALS_FILE
//
// Process:
//   - SCHEDULE: cron spec; empty runs once and exits
//   - RUN_LOCK (default: false): hold a Redis lock per run so replicas never overlap
//   - RUN_LOCK_TTL (default: 1m): lock expiry, renewed while the run lasts
//   - METRICS_PORT: serves /metrics and /health when set
//   - LOG_LEVEL (default: info), LOG_FILE
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/validation"
)

// Sink names accepted in SINKS
const (
	SinkCSV      = "csv"
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
	SinkRedis    = "redis"
	SinkKafka    = "kafka"
	SinkRabbitMQ = "rabbitmq"
	SinkSQS      = "sqs"
	SinkSNS      = "sns"
	SinkPubSub   = "pubsub"
)

var knownSinks = []string{SinkCSV, SinkSQLite, SinkPostgres, SinkRedis, SinkKafka, SinkRabbitMQ, SinkSQS, SinkSNS, SinkPubSub}

// Config holds all configuration values. Load fills it from the environment;
// call Validate before use.
type Config struct {
	// Upstreams
	UsersURL          string
	CartsURL          string
	ProductsURL       string
	GeocoderURL       string
	GeocoderUserAgent string
	UserFields        []string

	// Paging and concurrency
	PageSize            int
	StartSkip           int
	MaxUsers            int
	Workers             int
	CategoryConcurrency int
	HTTPTimeout         time.Duration
	UserTimeout         time.Duration
	GeocoderMaxAttempts int
	GeocoderBaseDelay   time.Duration
	UpstreamRPS         int
	UpstreamBurst       int
	RateLimitBackend    string
	BreakerMaxFailures  int
	BreakerTimeout      time.Duration

	// Sinks
	Sinks         []string
	CSVPath       string
	DatabasePath  string
	PostgresDSN   string
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisListKey  string

	// Broker sinks
	KafkaBrokers          []string
	KafkaTopic            string
	RabbitMQURL           string
	RabbitMQExchange      string
	RabbitMQQueue         string
	RabbitMQRoutingKey    string
	AWSRegion             string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	AWSSessionToken       string
	AWSEndpoint           string
	SQSQueueURL           string
	SNSTopicArn           string
	PubSubProjectID       string
	PubSubTopic           string
	PubSubCredentialsFile string

	// Process
	Schedule    string
	RunLock     bool
	RunLockTTL  time.Duration
	MetricsPort string
	LogLevel    string
	LogFile     string

	parseErrors []string
}

// Load creates a Config from environment variables. Values that fail to parse
// keep their default and are reported by Validate.
func Load() *Config {
	c := &Config{}

	c.UsersURL = getEnv("USERS_URL", "https://dummyjson.com/users")
	c.CartsURL = getEnv("CARTS_URL", "https://dummyjson.com/carts")
	c.ProductsURL = getEnv("PRODUCTS_URL", "https://dummyjson.com/products")
	c.GeocoderURL = getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/reverse")
	c.GeocoderUserAgent = getEnv("GEOCODER_USER_AGENT", "cart-enricher/1.0")
	c.UserFields = getListEnv("USER_FIELDS", "firstName,lastName,age,gender,address")

	c.PageSize = c.getIntEnv("PAGE_SIZE", 20)
	c.StartSkip = c.getIntEnv("START_SKIP", 0)
	c.MaxUsers = c.getIntEnv("MAX_USERS", 0)
	c.Workers = c.getIntEnv("WORKERS", 4)
	c.CategoryConcurrency = c.getIntEnv("CATEGORY_CONCURRENCY", 4)
	c.HTTPTimeout = c.getDurationEnv("HTTP_TIMEOUT", 10*time.Second)
	c.UserTimeout = c.getDurationEnv("USER_TIMEOUT", 30*time.Second)
	c.GeocoderMaxAttempts = c.getIntEnv("GEOCODER_MAX_ATTEMPTS", 3)
	c.GeocoderBaseDelay = c.getDurationEnv("GEOCODER_BASE_DELAY", 500*time.Millisecond)
	c.UpstreamRPS = c.getIntEnv("UPSTREAM_RPS", 10)
	c.UpstreamBurst = c.getIntEnv("UPSTREAM_BURST", 10)
	c.RateLimitBackend = getEnv("RATE_LIMIT_BACKEND", "local")
	c.BreakerMaxFailures = c.getIntEnv("CIRCUIT_BREAKER_MAX_FAILURES", 5)
	c.BreakerTimeout = c.getDurationEnv("CIRCUIT_BREAKER_TIMEOUT", 30*time.Second)

	c.Sinks = getListEnv("SINKS", SinkCSV)
	c.CSVPath = getEnv("CSV_PATH", "data/file/users.csv")
	c.DatabasePath = getEnv("DATABASE_PATH", "data/db/users.db")
	c.PostgresDSN = getEnv("POSTGRES_DSN", "")
	c.RedisAddress = getEnv("REDIS_ADDRESS", "localhost:6379")
	c.RedisPassword = getEnv("REDIS_PASSWORD", "")
	c.RedisDB = c.getIntEnv("REDIS_DB", 0)
	c.RedisListKey = getEnv("REDIS_LIST_KEY", "enriched_users")

	c.KafkaBrokers = getListEnv("KAFKA_BROKERS", "")
	c.KafkaTopic = getEnv("KAFKA_TOPIC", "enriched-users")
	c.RabbitMQURL = getEnv("RABBITMQ_URL", "")
	c.RabbitMQExchange = getEnv("RABBITMQ_EXCHANGE", "")
	c.RabbitMQQueue = getEnv("RABBITMQ_QUEUE", "enriched_users")
	c.RabbitMQRoutingKey = getEnv("RABBITMQ_ROUTING_KEY", "")
	c.AWSRegion = getEnv("AWS_REGION", "")
	c.AWSAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	c.AWSSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	c.AWSSessionToken = getEnv("AWS_SESSION_TOKEN", "")
	c.AWSEndpoint = getEnv("AWS_ENDPOINT_URL", "")
	c.SQSQueueURL = getEnv("SQS_QUEUE_URL", "")
	c.SNSTopicArn = getEnv("SNS_TOPIC_ARN", "")
	c.PubSubProjectID = getEnv("PUBSUB_PROJECT_ID", "")
	c.PubSubTopic = getEnv("PUBSUB_TOPIC", "enriched-users")
	c.PubSubCredentialsFile = getEnv("PUBSUB_CREDENTIALS_FILE", "")

	c.Schedule = getEnv("SCHEDULE", "")
	c.RunLock = c.getBoolEnv("RUN_LOCK", false)
	c.RunLockTTL = c.getDurationEnv("RUN_LOCK_TTL", time.Minute)
	c.MetricsPort = getEnv("METRICS_PORT", "")
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFile = getEnv("LOG_FILE", "")

	return c
}

// HasSink reports whether name is one of the configured sinks
func (c *Config) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// NeedsRedis reports whether any component talks to Redis
func (c *Config) NeedsRedis() bool {
	return c.HasSink(SinkRedis) || c.RateLimitBackend == "redis" || c.RunLock
}

// Validate checks every value and reports all problems at once as a config error.
func (c *Config) Validate() error {
	v := validation.New("")

	for _, msg := range c.parseErrors {
		v.Check(func() error { return fmt.Errorf("%s", msg) })
	}

	v.URL(c.UsersURL, "USERS_URL").
		URL(c.CartsURL, "CARTS_URL").
		URL(c.ProductsURL, "PRODUCTS_URL").
		URL(c.GeocoderURL, "GEOCODER_URL").
		Positive(c.PageSize, "PAGE_SIZE").
		NonNegative(c.StartSkip, "START_SKIP").
		NonNegative(c.MaxUsers, "MAX_USERS").
		Positive(c.Workers, "WORKERS").
		Positive(c.CategoryConcurrency, "CATEGORY_CONCURRENCY").
		Positive(c.GeocoderMaxAttempts, "GEOCODER_MAX_ATTEMPTS").
		Positive(c.UpstreamRPS, "UPSTREAM_RPS").
		Positive(c.UpstreamBurst, "UPSTREAM_BURST").
		Positive(c.BreakerMaxFailures, "CIRCUIT_BREAKER_MAX_FAILURES").
		Between(c.RedisDB, 0, 15, "REDIS_DB").
		OneOf(c.RateLimitBackend, []string{"local", "redis"}, "RATE_LIMIT_BACKEND").
		OneOf(strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "warning", "error"}, "LOG_LEVEL")

	for name, d := range map[string]time.Duration{
		"HTTP_TIMEOUT":            c.HTTPTimeout,
		"USER_TIMEOUT":            c.UserTimeout,
		"GEOCODER_BASE_DELAY":     c.GeocoderBaseDelay,
		"CIRCUIT_BREAKER_TIMEOUT": c.BreakerTimeout,
		"RUN_LOCK_TTL":            c.RunLockTTL,
	} {
		v.Check(func() error {
			if d <= 0 {
				return fmt.Errorf("%s must be a positive duration", name)
			}
			return nil
		})
	}

	v.Check(func() error {
		if len(c.Sinks) == 0 {
			return fmt.Errorf("SINKS must name at least one sink")
		}
		return nil
	})
	for _, sink := range c.Sinks {
		v.OneOf(sink, knownSinks, "SINKS entry")
	}
	if c.HasSink(SinkCSV) {
		v.NonEmpty(c.CSVPath, "CSV_PATH")
	}
	if c.HasSink(SinkSQLite) {
		v.NonEmpty(c.DatabasePath, "DATABASE_PATH")
	}
	if c.HasSink(SinkPostgres) {
		v.NonEmpty(c.PostgresDSN, "POSTGRES_DSN")
	}
	if c.NeedsRedis() {
		v.NonEmpty(c.RedisAddress, "REDIS_ADDRESS")
	}
	if c.HasSink(SinkRedis) {
		v.NonEmpty(c.RedisListKey, "REDIS_LIST_KEY")
	}
	if c.HasSink(SinkKafka) {
		v.Check(func() error {
			if len(c.KafkaBrokers) == 0 {
				return fmt.Errorf("KAFKA_BROKERS is required")
			}
			return nil
		})
		v.NonEmpty(c.KafkaTopic, "KAFKA_TOPIC")
	}
	if c.HasSink(SinkRabbitMQ) {
		v.NonEmpty(c.RabbitMQURL, "RABBITMQ_URL")
	}
	if c.HasSink(SinkSQS) || c.HasSink(SinkSNS) {
		v.NonEmpty(c.AWSRegion, "AWS_REGION")
	}
	if c.HasSink(SinkSQS) {
		v.NonEmpty(c.SQSQueueURL, "SQS_QUEUE_URL")
	}
	if c.HasSink(SinkSNS) {
		v.NonEmpty(c.SNSTopicArn, "SNS_TOPIC_ARN")
	}
	if c.HasSink(SinkPubSub) {
		v.NonEmpty(c.PubSubProjectID, "PUBSUB_PROJECT_ID")
		v.NonEmpty(c.PubSubTopic, "PUBSUB_TOPIC")
	}

	if c.Schedule != "" {
		v.Cron(c.Schedule, "SCHEDULE")
	}

	if c.MetricsPort != "" {
		v.Check(func() error {
			if port, err := strconv.Atoi(c.MetricsPort); err != nil || port < 1 || port > 65535 {
				return fmt.Errorf("METRICS_PORT must be a valid port number between 1 and 65535")
			}
			return nil
		})
	}

	if err := v.Err(); err != nil {
		appErr := errors.ConfigError("invalid configuration")
		appErr.Cause = err
		return appErr
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blanks
func getListEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be a duration such as 30s, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be a boolean, got %q", key, value))
		return defaultValue
	}
	return parsed
}
