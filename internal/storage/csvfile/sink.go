// Package csvfile appends enriched users to a CSV file
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"
	"cart-enricher/internal/storage"
)

// Config locates the output file. Missing parent directories are created.
type Config struct {
	Path string
}

// Validate requires a path
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("csv path is required")
	}
	return nil
}

// GetType returns the registry name, "csv"
func (c *Config) GetType() string {
	return "csv"
}

// DefaultConfig writes to data/file/users.csv
func DefaultConfig() *Config {
	return &Config{Path: "data/file/users.csv"}
}

// Sink writes the flat record shape. The header row is written only when
// the file is absent or empty; later writes append.
type Sink struct {
	path   string
	mu     sync.Mutex
	logger logging.Logger
}

// NewSink validates config and prepares the output directory
func NewSink(config *Config, logger logging.Logger) (*Sink, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create csv directory: %w", err)
	}
	return &Sink{
		path:   config.Path,
		logger: logging.ForComponent(logger, "csv_sink"),
	}, nil
}

// Name identifies the sink in logs and metrics
func (s *Sink) Name() string {
	return "csv"
}

// Write appends users as rows, adding the header to a new or empty file
func (s *Sink) Write(ctx context.Context, users []models.EnrichedUser) error {
	if len(users) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existed, err := hasContent(s.path)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if !existed {
		if err := w.Write(models.Columns); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
	}
	if err := w.WriteAll(models.Records(users)); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}

	if existed {
		s.logger.Info("Users appended to file", logging.String("path", s.path), logging.Int("records", len(users)))
	} else {
		s.logger.Info("File created with users", logging.String("path", s.path), logging.Int("records", len(users)))
	}
	return file.Sync()
}

// Close is a no-op; every Write opens and syncs the file itself
func (s *Sink) Close() error {
	return nil
}

func hasContent(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size() > 0, nil
}

// Factory creates csv sinks for the storage registry
type Factory struct{}

// Create builds a Sink from a *Config
func (f *Factory) Create(config storage.SinkConfig, logger logging.Logger) (storage.Sink, error) {
	csvConfig, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("invalid config type for csv sink")
	}
	return NewSink(csvConfig, logger)
}

// GetType returns "csv"
func (f *Factory) GetType() string {
	return "csv"
}

func init() {
	storage.Register("csv", &Factory{})
}
