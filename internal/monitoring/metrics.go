// Package monitoring defines the Prometheus metric collectors for the
// advisory pipeline and exposes an HTTP handler for scraping.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the advisor.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal          *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
	ProviderFallbacksTotal *prometheus.CounterVec
	RateLimitedTotal       prometheus.Counter
}

// New creates and registers all collectors on a private registry, so
// multiple instances (one per test) never collide.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_requests_total",
				Help: "Total answered requests by intent and status (ok, rate_limited, invalid_input, degraded).",
			},
			[]string{"intent", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "advisor_request_duration_seconds",
				Help:    "End-to-end request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"intent"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "advisor_answer_cache_hits_total",
				Help: "Total answer cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "advisor_answer_cache_misses_total",
				Help: "Total answer cache misses.",
			},
		),
		ProviderFallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_provider_fallbacks_total",
				Help: "Total answer sections served from static fallback data, by source.",
			},
			[]string{"source"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "advisor_rate_limited_total",
				Help: "Total requests rejected by the rate limiter.",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ProviderFallbacksTotal,
		m.RateLimitedTotal,
	)

	return m
}

// ObserveRequest records one completed request.
func (m *Metrics) ObserveRequest(intent, status string, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(intent, status).Inc()
	m.RequestDuration.WithLabelValues(intent).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus scrape HTTP handler for this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
