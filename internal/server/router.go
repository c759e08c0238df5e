package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"cart-enricher/internal/circuitbreaker"
	"cart-enricher/internal/common/logging"

	"github.com/gorilla/mux"
)

// BreakerStats lists the circuit breakers guarding the upstreams
type BreakerStats interface {
	Snapshot() []circuitbreaker.Stats
}

// RunReporter describes the most recent batch run
type RunReporter interface {
	LastRun() map[string]interface{}
}

// Probe checks one dependency
type Probe func(ctx context.Context) error

// RouterDependencies collects what the handlers report on
type RouterDependencies struct {
	Metrics  http.Handler
	Breakers BreakerStats
	Runs     RunReporter
	Probes   map[string]Probe
}

// NewRouter exposes /metrics and /health
func NewRouter(logger logging.Logger, deps RouterDependencies) http.Handler {
	logger = logging.ForComponent(logger, "server")

	router := mux.NewRouter()
	router.Use(LoggingMiddleware(logger))

	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics).Methods(http.MethodGet)
	}
	router.HandleFunc("/health", healthHandler(logger, deps)).Methods(http.MethodGet)

	return router
}

func healthHandler(logger logging.Logger, deps RouterDependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		}

		if len(deps.Probes) > 0 {
			names := make([]string, 0, len(deps.Probes))
			for name := range deps.Probes {
				names = append(names, name)
			}
			sort.Strings(names)

			checks := make(map[string]string, len(names))
			for _, name := range names {
				if err := deps.Probes[name](ctx); err != nil {
					logger.Warn("Health probe failed", logging.String("probe", name), logging.Err(err))
					checks[name] = err.Error()
					status = http.StatusServiceUnavailable
					payload["status"] = "degraded"
					continue
				}
				checks[name] = "ok"
			}
			payload["checks"] = checks
		}

		if deps.Breakers != nil {
			payload["circuit_breakers"] = deps.Breakers.Snapshot()
		}
		if deps.Runs != nil {
			payload["last_run"] = deps.Runs.LastRun()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Warn("Failed to encode health response", logging.Err(err))
		}
	}
}
