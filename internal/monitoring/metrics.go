// Package monitoring exposes the engine's Prometheus metrics.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus instruments for the validation engine.
type Metrics struct {
	registry *prometheus.Registry

	// Validation outcomes by action kind and result (allow, or the
	// violation kind that denied it, or "banned").
	ValidationsTotal *prometheus.CounterVec

	// Violations recorded, by violation kind.
	ViolationsTotal *prometheus.CounterVec

	// Enforcement actions taken, by tier (log, warn, kick, ban).
	EnforcementTotal *prometheus.CounterVec

	// Currently open actor sessions.
	ActiveSessions prometheus.Gauge

	// Currently stored ban records.
	ActiveBans prometheus.Gauge

	// Sweep pass durations, by pass (detection, retention).
	SweepDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all instruments on a private registry,
// so multiple engines (tests included) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_validations_total",
				Help: "Action validations processed, by kind and result",
			},
			[]string{"kind", "result"},
		),

		ViolationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_violations_total",
				Help: "Violations recorded, by violation kind",
			},
			[]string{"violation_kind"},
		),

		EnforcementTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_enforcement_total",
				Help: "Enforcement actions taken, by tier",
			},
			[]string{"action"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "guardian_active_sessions",
				Help: "Currently open actor sessions",
			},
		),

		ActiveBans: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "guardian_active_bans",
				Help: "Currently stored ban records",
			},
		),

		SweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guardian_sweep_duration_seconds",
				Help:    "Background sweep pass durations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pass"},
		),
	}
}

// Registry returns the private registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
