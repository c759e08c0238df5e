package postgres

import (
	"fmt"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/storage"

	"github.com/jackc/pgx/v5"
)

// Config holds a libpq-style DSN, either a postgres:// URL or key=value pairs.
type Config struct {
	DSN string

	conn *pgx.ConnConfig
}

// ParseDSN validates dsn without connecting. A database name is required;
// pgx fills in host, port and user defaults.
func ParseDSN(dsn string) (*Config, error) {
	conn, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres DSN: %w", err)
	}
	if conn.Database == "" {
		return nil, fmt.Errorf("postgres DSN must name a database")
	}
	return &Config{DSN: dsn, conn: conn}, nil
}

func (c *Config) Validate() error {
	if c.conn != nil {
		return nil
	}
	if c.DSN == "" {
		return fmt.Errorf("postgres DSN is required")
	}
	parsed, err := ParseDSN(c.DSN)
	if err != nil {
		return err
	}
	c.conn = parsed.conn
	return nil
}

func (c *Config) GetType() string { return "postgres" }

// Target is host:port/database, safe to log.
func (c *Config) Target() string {
	if c.conn == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d/%s", c.conn.Host, c.conn.Port, c.conn.Database)
}

func init() {
	storage.RegisterFunc("postgres", func(c *Config, logger logging.Logger) (storage.Sink, error) {
		return NewAdapter(c, logger)
	})
}
