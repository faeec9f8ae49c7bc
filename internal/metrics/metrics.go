// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request kinds.
const (
	KindOpening      = "opening"
	KindContinuation = "continuation"
	KindSpeech       = "speech"
)

// Outcomes.
const (
	StatusSuccess       = "success"
	StatusNotConfigured = "not_configured"
	StatusUpstream      = "upstream_error"
	StatusTransport     = "transport_error"
	StatusInvalid       = "invalid_input"
)

var (
	// Registry is scoped to this service instead of the global default.
	Registry = prometheus.NewRegistry()

	backendRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "choice_engine_backend_requests_total",
			Help: "Total number of generation and speech backend requests.",
		},
		[]string{"provider", "kind", "status"},
	)
	backendDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "choice_engine_backend_request_duration_seconds",
			Help:    "Histogram of backend request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "kind"},
	)
	backendTokens = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "choice_engine_backend_tokens",
			Help:    "Histogram of token counts per generation request.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"provider", "type"},
	)
	degenerateResults = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "choice_engine_degenerate_results_total",
			Help: "Parsed generations with fewer than four options or no story text.",
		},
		[]string{"kind"},
	)
	turns = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "choice_engine_turns_total",
			Help: "Turn engine operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)
	speechCache = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "choice_engine_speech_cache_total",
			Help: "Speech cache lookups by result.",
		},
		[]string{"result"},
	)
	activeSessions = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "choice_engine_active_sessions",
			Help: "Sessions currently held in memory.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveBackend records one backend call.
func ObserveBackend(provider, kind, status string, elapsed time.Duration) {
	backendRequests.WithLabelValues(provider, kind, status).Inc()
	backendDuration.WithLabelValues(provider, kind).Observe(elapsed.Seconds())
}

// ObserveTokens records prompt and completion token counts.
func ObserveTokens(provider string, prompt, completion int) {
	if prompt > 0 {
		backendTokens.WithLabelValues(provider, "prompt").Observe(float64(prompt))
	}
	if completion > 0 {
		backendTokens.WithLabelValues(provider, "completion").Observe(float64(completion))
	}
}

// ObserveDegenerate counts a parse that recovered less than a full result.
func ObserveDegenerate(kind string) {
	degenerateResults.WithLabelValues(kind).Inc()
}

// ObserveTurn counts a start, choose, or reset call by outcome.
func ObserveTurn(operation, outcome string) {
	turns.WithLabelValues(operation, outcome).Inc()
}

// ObserveSpeechCache counts a cache hit or miss.
func ObserveSpeechCache(hit bool) {
	if hit {
		speechCache.WithLabelValues("hit").Inc()
		return
	}
	speechCache.WithLabelValues("miss").Inc()
}

// SetActiveSessions reports the in-memory session count.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
