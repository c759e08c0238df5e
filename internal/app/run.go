package app

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/config"
	"cart-enricher/internal/locks"
)

// Run is the main entry point for the application
func Run() error {
	// Load environment variables
	_ = godotenv.Load()

	// Load and validate configuration
	cfg := config.Load()

	// Initialize logging
	if err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	defer logging.MustSync()

	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	logging.Info("Starting cart enricher",
		logging.Int("cpus", runtime.NumCPU()),
		logging.Any("sinks", cfg.Sinks),
		logging.String("schedule", cfg.Schedule),
	)

	// Initialize application
	app, err := New(cfg)
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}
	defer app.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := app.RunServer()
	if err != nil {
		logging.Error("Metrics server failed to start", err)
		return err
	}
	if srv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logging.Error("Metrics server forced to shutdown", err)
			}
		}()
	}

	if cfg.Schedule == "" {
		return app.RunOnce(ctx)
	}
	return app.RunScheduled(ctx)
}

// RunOnce performs a single batch run and records its outcome. With a run lock
// configured, a run already going on another replica makes this a no-op.
func (app *App) RunOnce(ctx context.Context) error {
	if app.Locks != nil {
		lock, err := app.Locks.TryAcquire(ctx, "run", app.Config.RunLockTTL)
		if stderrors.Is(err, locks.ErrHeld) {
			app.Logger.Info("Batch run skipped, another replica holds the run lock")
			return nil
		}
		if err != nil {
			return err
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lock.Release(releaseCtx); err != nil {
				app.Logger.Warn("Failed to release run lock", logging.Err(err))
			}
		}()
	}

	summary, err := app.Runner.Run(ctx)
	app.runs.record(summary, err)
	if err != nil {
		app.Logger.Error("Batch run failed", err,
			logging.String("run_id", summary.RunID),
			logging.Int("written", summary.Written),
		)
		return err
	}

	app.Logger.Info("Batch run complete",
		logging.String("run_id", summary.RunID),
		logging.Int("fetched", summary.Fetched),
		logging.Int("enriched", summary.Enriched),
		logging.Int("skipped", summary.Skipped),
		logging.Int("written", summary.Written),
		logging.Duration("duration", summary.Duration),
	)
	return nil
}
