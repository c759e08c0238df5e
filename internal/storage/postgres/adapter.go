package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"
	"cart-enricher/internal/storage"

	"github.com/jackc/pgx/v5/stdlib"
)

const schema = `CREATE TABLE IF NOT EXISTS enriched_users (
	id BIGSERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	age INTEGER NOT NULL,
	gender TEXT NOT NULL,
	country TEXT NOT NULL,
	favorite_category TEXT NOT NULL,
	loaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertQuery = `INSERT INTO enriched_users
	(user_id, first_name, last_name, age, gender, country, favorite_category)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

type Adapter struct {
	db     *sql.DB
	config *Config
	logger logging.Logger
}

func NewAdapter(config *Config, logger logging.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL config: %w", err)
	}

	db := stdlib.OpenDB(*config.conn)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	adapter := &Adapter{
		db:     db,
		config: config,
		logger: logging.ForComponent(logger, "postgres_sink"),
	}

	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return adapter, nil
}

func (a *Adapter) Name() string {
	return "postgres"
}

func (a *Adapter) Write(ctx context.Context, users []models.EnrichedUser) error {
	if len(users) == 0 {
		return nil
	}
	if err := storage.InsertEnriched(ctx, a.db, insertQuery, users); err != nil {
		return err
	}
	a.logger.Info("Users written to database",
		logging.String("target", a.config.Target()),
		logging.Int("records", len(users)),
	)
	return nil
}

func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *Adapter) Health() error {
	return a.db.Ping()
}

func (a *Adapter) migrate() error {
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create enriched_users: %w", err)
	}
	return nil
}
