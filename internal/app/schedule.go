package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/common/validation"
)

// RunScheduled runs the batch on the configured cron schedule until ctx is
// cancelled. A tick that fires while the previous run is still going is
// skipped. Failed runs are logged and do not stop the schedule.
func (app *App) RunScheduled(ctx context.Context) error {
	logger := cronLogger{logger: logging.ForComponent(app.Logger, "scheduler")}

	c := cron.New(cron.WithParser(validation.CronParser), cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	_, err := c.AddFunc(app.Config.Schedule, func() {
		_ = app.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule batch run: %w", err)
	}

	c.Start()
	app.Logger.Info("Scheduler started", logging.String("schedule", app.Config.Schedule))

	<-ctx.Done()
	app.Logger.Info("Stopping scheduler, waiting for the running batch")
	<-c.Stop().Done()
	return nil
}

// cronLogger routes robfig/cron logging through the application logger
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, toFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, err, toFields(keysAndValues)...)
}

func toFields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}
