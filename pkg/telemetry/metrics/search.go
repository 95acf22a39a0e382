package metrics

import (
	"time"

	"github.com/icelocator/locator-core/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SearchMetrics tracks the orchestrator's search throughput and outcomes.
//
// Metrics:
//   - icelocator_core_searches_total: Total searches by query kind and result status
//   - icelocator_core_search_duration_seconds: Search duration histogram
//   - icelocator_core_search_retries_total: Retry attempts consumed across all searches
//   - icelocator_core_bulk_search_items_total: Items processed via bulk_search, by outcome
type SearchMetrics struct {
	searchesTotal   *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	retriesTotal    prometheus.Counter
	bulkItemsTotal  *prometheus.CounterVec
}

// NewSearchMetrics creates and registers search metrics with the provided registry.
func NewSearchMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SearchMetrics {
	sm := &SearchMetrics{
		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "searches_total",
				Help:      "Total number of searches processed, by query kind and status",
			},
			[]string{"kind", "status"},
		),

		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "search_duration_seconds",
				Help:      "Duration of a single search, including retries, in seconds",
				Buckets:   cfg.SearchDurationBuckets,
			},
			[]string{"kind"},
		),

		retriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "search_retries_total",
				Help:      "Total retry attempts consumed across all searches",
			},
		),

		bulkItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "bulk_search_items_total",
				Help:      "Total items processed through bulk_search, by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		sm.searchesTotal,
		sm.searchDuration,
		sm.retriesTotal,
		sm.bulkItemsTotal,
	)

	return sm
}

// RecordSearch records one completed Search call.
func (sm *SearchMetrics) RecordSearch(kind, status string, duration time.Duration, retryCount int) {
	sm.searchesTotal.WithLabelValues(kind, status).Inc()
	sm.searchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if retryCount > 0 {
		sm.retriesTotal.Add(float64(retryCount))
	}
}

// RecordBulk records the shape of one bulk_search batch.
func (sm *SearchMetrics) RecordBulk(total, failed int) {
	succeeded := total - failed
	if succeeded > 0 {
		sm.bulkItemsTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	}
	if failed > 0 {
		sm.bulkItemsTotal.WithLabelValues("failed").Add(float64(failed))
	}
}
