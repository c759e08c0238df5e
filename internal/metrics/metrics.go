package metrics

import (
	"net/http"
	"time"

	"cart-enricher/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cart_enricher"

// Registry owns the pipeline's collectors. It satisfies the observer hooks of
// the HTTP wrapper, the orchestrator, the sinks and the batch runner.
type Registry struct {
	reg *prometheus.Registry

	UsersEnriched   prometheus.Counter
	UsersSkipped    prometheus.Counter
	UnknownFields   *prometheus.CounterVec
	UpstreamReqs    *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec
	EnrichSeconds   prometheus.Histogram
	SinkRecords     *prometheus.CounterVec
	Runs            *prometheus.CounterVec
	RunSeconds      prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	enriched := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "users_enriched_total"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "users_skipped_total"})
	unknown := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "unknown_fields_total"}, []string{"field"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "upstream_requests_total"}, []string{"upstream", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"upstream"})
	enrichSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "enrichment_seconds",
		Buckets:   prometheus.DefBuckets,
	})
	sinkRecords := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "sink_records_total"}, []string{"sink"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "runs_total"}, []string{"result"})
	runSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_seconds",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	r.MustRegister(enriched, skipped, unknown, requests, latency, enrichSeconds, sinkRecords, runs, runSeconds)
	return &Registry{
		reg:             r,
		UsersEnriched:   enriched,
		UsersSkipped:    skipped,
		UnknownFields:   unknown,
		UpstreamReqs:    requests,
		UpstreamLatency: latency,
		EnrichSeconds:   enrichSeconds,
		SinkRecords:     sinkRecords,
		Runs:            runs,
		RunSeconds:      runSeconds,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry, mainly for tests
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) ObserveRequest(upstream, outcome string, d time.Duration) {
	r.UpstreamReqs.WithLabelValues(upstream, outcome).Inc()
	r.UpstreamLatency.WithLabelValues(upstream).Observe(d.Seconds())
}

func (r *Registry) ObserveEnrichment(u models.EnrichedUser, d time.Duration) {
	r.UsersEnriched.Inc()
	r.EnrichSeconds.Observe(d.Seconds())
	if u.Country == models.Unknown {
		r.UnknownFields.WithLabelValues("country").Inc()
	}
	if u.FavoriteCategory == models.Unknown {
		r.UnknownFields.WithLabelValues("favoriteCategory").Inc()
	}
}

func (r *Registry) ObserveWrite(sink string, records int) {
	r.SinkRecords.WithLabelValues(sink).Add(float64(records))
}

func (r *Registry) ObserveSkipped() {
	r.UsersSkipped.Inc()
}

func (r *Registry) ObserveRun(err error, d time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.Runs.WithLabelValues(result).Inc()
	r.RunSeconds.Observe(d.Seconds())
}
