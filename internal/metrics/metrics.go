// Package metrics holds the Prometheus collectors for the recommendation pipeline.
//
// Collectors live on a dedicated registry so tests can create as many instances as they
// like. Every method is safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "osusume"

// Outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeNotFound    = "not_found"
	OutcomeRateLimited = "rate_limited"
	OutcomeUnavailable = "unavailable"
	OutcomeBadResponse = "bad_response"
	OutcomeRejected    = "rejected"
	OutcomeCanceled    = "canceled"
	OutcomeError       = "error"
)

// Metrics is the set of collectors exposed on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	catalogRequests *prometheus.CounterVec
	catalogLatency  *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	breakerChanges  *prometheus.CounterVec
	seeds           *prometheus.CounterVec
	repairs         *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	retries         prometheus.Counter
	extractions     *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(reg)

	return &Metrics{
		registry: reg,
		catalogRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "requests_total",
			Help:      "Catalog requests by operation and outcome",
		}, []string{"op", "outcome"}),
		catalogLatency: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "request_duration_seconds",
			Help:      "Catalog request latency by operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		breakerState: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
		breakerChanges: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		}, []string{"name", "from", "to"}),
		seeds: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "profile",
			Name:      "seeds_total",
			Help:      "Seed titles looked up, by result",
		}, []string{"result"}),
		repairs: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "repairs_total",
			Help:      "Filter fields repaired during validation",
		}, []string{"field"}),
		recommendations: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by outcome",
		}, []string{"outcome"}),
		retries: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "retries_total",
			Help:      "Catalog searches retried after a transient failure",
		}),
		extractions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "requests_total",
			Help:      "Free-text extractions by extractor and outcome",
		}, []string{"extractor", "outcome"}),
	}
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCatalog records one catalog request.
func (m *Metrics) ObserveCatalog(op, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.catalogRequests.WithLabelValues(op, outcome).Inc()
	m.catalogLatency.WithLabelValues(op).Observe(took.Seconds())
}

// SetBreakerState records the current breaker state as 0, 1 or 2.
func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(state)
}

// BreakerTransition counts a breaker state change.
func (m *Metrics) BreakerTransition(name, from, to string) {
	if m == nil {
		return
	}
	m.breakerChanges.WithLabelValues(name, from, to).Inc()
}

// Seeds counts resolved and unresolved seed lookups.
func (m *Metrics) Seeds(resolved, unresolved int) {
	if m == nil {
		return
	}
	m.seeds.WithLabelValues("resolved").Add(float64(resolved))
	m.seeds.WithLabelValues("unresolved").Add(float64(unresolved))
}

// Repairs counts one repair per field name.
func (m *Metrics) Repairs(fields []string) {
	if m == nil {
		return
	}
	for _, f := range fields {
		m.repairs.WithLabelValues(f).Inc()
	}
}

// Recommendation counts a finished recommendation request.
func (m *Metrics) Recommendation(outcome string) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(outcome).Inc()
}

// Retry counts one catalog retry.
func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// Extraction counts one extraction attempt.
func (m *Metrics) Extraction(extractor, outcome string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(extractor, outcome).Inc()
}
