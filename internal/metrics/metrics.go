// Package metrics exposes Prometheus instrumentation for the placement
// engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry    *prometheus.Registry
	decisions   *prometheus.CounterVec
	evalSeconds *prometheus.HistogramVec
}

// New creates a Metrics with its own registry, so tests can instantiate it
// repeatedly without duplicate-registration panics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placement_decisions_total",
			Help: "Placement evaluations by policy and outcome.",
		}, []string{"policy", "outcome"}),
		evalSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "placement_evaluation_seconds",
			Help:    "Wall time of one placement evaluation, snapshot fetch included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"policy"}),
	}

	registry.MustRegister(m.decisions, m.evalSeconds)
	return m
}

// ObserveEvaluation records one completed evaluation.
func (m *Metrics) ObserveEvaluation(policy, outcome string, d time.Duration) {
	m.decisions.WithLabelValues(policy, outcome).Inc()
	m.evalSeconds.WithLabelValues(policy).Observe(d.Seconds())
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
