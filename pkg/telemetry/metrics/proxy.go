package metrics

import (
	"github.com/icelocator/locator-core/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProxyMetrics tracks the health of the proxy pool the anti-detection
// coordinator draws handles from.
//
// Metrics:
//   - icelocator_core_proxy_pool_handles: Current usable/quarantined handle count, by proxy kind
//   - icelocator_core_proxy_blocks_total: Total blocks reported against a proxy kind
type ProxyMetrics struct {
	handles     *prometheus.GaugeVec
	blocksTotal *prometheus.CounterVec
}

// NewProxyMetrics creates and registers proxy pool metrics with the provided registry.
func NewProxyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProxyMetrics {
	pm := &ProxyMetrics{
		handles: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "proxy_pool_handles",
				Help:      "Current proxy handle count by kind and state (usable, quarantined)",
			},
			[]string{"kind", "state"},
		),

		blocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "proxy_blocks_total",
				Help:      "Total number of blocks reported against a proxy kind",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(pm.handles, pm.blocksTotal)

	return pm
}

// UpdateHealth sets the usable and quarantined handle gauges for kind.
func (pm *ProxyMetrics) UpdateHealth(kind string, usable, quarantined int) {
	pm.handles.WithLabelValues(kind, "usable").Set(float64(usable))
	pm.handles.WithLabelValues(kind, "quarantined").Set(float64(quarantined))
}

// RecordBlock records a reported block against a proxy kind.
func (pm *ProxyMetrics) RecordBlock(kind string) {
	pm.blocksTotal.WithLabelValues(kind).Inc()
}
