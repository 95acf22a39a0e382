package metrics

import (
	"github.com/icelocator/locator-core/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ThreatMetrics tracks the anti-detection coordinator's threat-level state
// machine.
//
// Metrics:
//   - icelocator_core_threat_level: Current threat level gauge (0=green..3=red)
//   - icelocator_core_threat_transitions_total: Total observed level transitions, by from/to
type ThreatMetrics struct {
	level           prometheus.Gauge
	transitionsTotal *prometheus.CounterVec
}

// NewThreatMetrics creates and registers threat-level metrics with the provided registry.
func NewThreatMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ThreatMetrics {
	tm := &ThreatMetrics{
		level: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "threat_level",
				Help:      "Current anti-detection threat level (0=green, 1=yellow, 2=orange, 3=red)",
			},
		),

		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "threat_transitions_total",
				Help:      "Total observed threat-level transitions, by origin and destination level",
			},
			[]string{"from", "to"},
		),
	}

	registry.MustRegister(tm.level, tm.transitionsTotal)

	return tm
}

// UpdateLevel sets the current threat-level gauge.
func (tm *ThreatMetrics) UpdateLevel(level int) {
	tm.level.Set(float64(level))
}

// RecordTransition records one observed threat-level step.
func (tm *ThreatMetrics) RecordTransition(from, to string) {
	tm.transitionsTotal.WithLabelValues(from, to).Inc()
}
