package app

import (
	"context"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/server"
)

// RunServer starts the metrics and health endpoint. It returns nil when no
// metrics port is configured.
func (app *App) RunServer() (*server.Server, error) {
	if app.Config.MetricsPort == "" {
		return nil, nil
	}

	router := server.NewRouter(app.Logger, server.RouterDependencies{
		Metrics:  app.Metrics.Handler(),
		Breakers: app.Breakers,
		Runs:     app.runs,
		Probes:   app.probes(),
	})

	srv := server.New(router, app.Config.MetricsPort)
	if err := srv.Start(); err != nil {
		return nil, err
	}

	go func() {
		for err := range srv.Errors() {
			app.Logger.Error("Metrics server stopped", err)
		}
	}()

	app.Logger.Info("Metrics server listening", logging.String("port", app.Config.MetricsPort))
	return srv, nil
}

func (app *App) probes() map[string]server.Probe {
	probes := map[string]server.Probe{
		"rate_limiter": func(context.Context) error {
			return app.RateLimiter.Health()
		},
	}
	if app.RedisClient != nil {
		probes["redis"] = func(context.Context) error {
			return app.RedisClient.Health()
		}
	}
	return probes
}
