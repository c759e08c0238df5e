package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"
	"cart-enricher/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS enriched_users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	age INTEGER NOT NULL,
	gender TEXT NOT NULL,
	country TEXT NOT NULL,
	favorite_category TEXT NOT NULL,
	loaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

const insertQuery = `INSERT INTO enriched_users
	(user_id, first_name, last_name, age, gender, country, favorite_category)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

type Adapter struct {
	db     *sql.DB
	config *Config
	logger logging.Logger
}

func NewAdapter(config *Config, logger logging.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite config: %w", err)
	}

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", config.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	adapter := &Adapter{
		db:     db,
		config: config,
		logger: logging.ForComponent(logger, "sqlite_sink"),
	}

	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return adapter, nil
}

func (a *Adapter) Name() string {
	return "sqlite"
}

func (a *Adapter) Write(ctx context.Context, users []models.EnrichedUser) error {
	if len(users) == 0 {
		return nil
	}
	if err := storage.InsertEnriched(ctx, a.db, insertQuery, users); err != nil {
		return err
	}
	a.logger.Info("Users written to database",
		logging.String("path", a.config.Path),
		logging.Int("records", len(users)),
	)
	return nil
}

// ReadAll returns every stored user in insertion order
func (a *Adapter) ReadAll(ctx context.Context) ([]models.EnrichedUser, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT user_id, first_name, last_name, age, gender, country, favorite_category
		FROM enriched_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.EnrichedUser
	for rows.Next() {
		var u models.EnrichedUser
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Age, &u.Gender, &u.Country, &u.FavoriteCategory); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
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
