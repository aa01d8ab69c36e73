// Package metrics exposes Prometheus instrumentation for the decision engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Decisions        *prometheus.CounterVec
	DecisionDuration prometheus.Histogram
	Alerts           *prometheus.CounterVec
	LedgerSize       prometheus.Gauge
	Enrollments      *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attune_decisions_total",
				Help: "Access decisions by outcome and alert level",
			},
			[]string{"decision", "alert_level"},
		),

		DecisionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "attune_decision_duration_seconds",
				Help:    "Time spent producing one access decision",
				Buckets: prometheus.DefBuckets,
			},
		),

		Alerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attune_alerts_total",
				Help: "Alerts raised by type and level",
			},
			[]string{"type", "level"},
		),

		LedgerSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "attune_alert_ledger_size",
				Help: "Alerts currently retained in the ledger",
			},
		),

		Enrollments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attune_enrollments_total",
				Help: "Behavioral enrollments by result",
			},
			[]string{"result"}, // result: success, failure
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attune_alert_notifications_total",
				Help: "Critical alert notifications by channel and result",
			},
			[]string{"channel", "result"},
		),
	}
}

// ObserveDecision records one decision and its latency.
func (m *Metrics) ObserveDecision(decision, level string, elapsed time.Duration) {
	m.Decisions.WithLabelValues(decision, level).Inc()
	m.DecisionDuration.Observe(elapsed.Seconds())
}

// ObserveAlert counts a raised alert.
func (m *Metrics) ObserveAlert(typ, level string) {
	m.Alerts.WithLabelValues(typ, level).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
