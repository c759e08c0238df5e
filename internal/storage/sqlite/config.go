package sqlite

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/storage"
)

// Config points the sink at a database file, created on first open.
type Config struct {
	Path string
	// BusyTimeout bounds how long a write waits on another connection's lock.
	BusyTimeout time.Duration
}

func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("sqlite database path is required")
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
	return nil
}

func (c *Config) GetType() string { return "sqlite" }

// dsn enables WAL so readers such as the inspect tool never block a load.
func (c *Config) dsn() string {
	q := url.Values{}
	q.Set("_busy_timeout", strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10))
	q.Set("_journal_mode", "WAL")
	return "file:" + c.Path + "?" + q.Encode()
}

func init() {
	storage.RegisterFunc("sqlite", func(c *Config, logger logging.Logger) (storage.Sink, error) {
		return NewAdapter(c, logger)
	})
}
