// Command inspect enriches one page of users and prints the records as JSON
// without writing to any sink.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"cart-enricher/internal/app"
	"cart-enricher/internal/common/errors"
	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/config"
	"cart-enricher/internal/models"
)

func main() {
	_ = godotenv.Load()

	limit := flag.Int("limit", 5, "number of users to enrich")
	skip := flag.Int("skip", 0, "number of users to skip")
	flag.Parse()

	cfg := config.Load()
	if err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatal(err)
	}
	defer logging.MustSync()

	// Sinks are never opened here.
	cfg.Sinks = []string{config.SinkCSV}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	pipeline, err := app.NewPipeline(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pipeline.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	users, err := pipeline.Catalog.FetchUsers(ctx, *limit, *skip, cfg.UserFields)
	if err != nil {
		log.Fatalf("fetch users: %v", err)
	}

	enriched := make([]models.EnrichedUser, 0, len(users))
	for _, u := range users {
		record, err := pipeline.Orchestrator.Enrich(ctx, u)
		if errors.IsType(err, errors.ErrTypeMissingIdentifier) {
			logging.Warn("Skipping user without identifier")
			continue
		}
		if err != nil {
			log.Fatalf("enrich user %d: %v", u.ID, err)
		}
		enriched = append(enriched, record)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(enriched); err != nil {
		log.Fatal(err)
	}
}
