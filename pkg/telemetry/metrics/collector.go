package metrics

import (
	"time"

	"github.com/icelocator/locator-core/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the single entry point for every Prometheus metric the
// search core records. It owns the registry and hands out one sub-struct
// per concern, mirroring how the orchestrator itself is composed from
// independent collaborators.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	searchMetrics *SearchMetrics
	proxyMetrics  *ProxyMetrics
	threatMetrics *ThreatMetrics
	cacheMetrics  *CacheMetrics
}

// NewCollector creates a metrics collector bound to cfg and registry. A nil
// registry gets a fresh prometheus.NewRegistry() rather than the global
// default, so tests never collide over package-level state.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "icelocator"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "core"
	}
	if len(cfg.SearchDurationBuckets) == 0 {
		// Covers a fast cache hit (tens of ms) through a multi-retry run
		// against a slow or blocking upstream (tens of seconds).
		cfg.SearchDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.searchMetrics = NewSearchMetrics(cfg, registry)
	c.proxyMetrics = NewProxyMetrics(cfg, registry)
	c.threatMetrics = NewThreatMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)

	return c
}

// RecordSearch records the outcome of one completed Search call. kind is the
// query kind ("by_name", "by_alien_number", "by_facility", "natural");
// status is the result status ("found", "not_found", "error", "partial").
func (c *Collector) RecordSearch(kind, status string, duration time.Duration, retryCount int) {
	if !c.config.Enabled {
		return
	}
	c.searchMetrics.RecordSearch(kind, status, duration, retryCount)
}

// RecordBulkSearch records one bulk_search batch's shape: how many items it
// held and how many of those failed.
func (c *Collector) RecordBulkSearch(total, failed int) {
	if !c.config.Enabled {
		return
	}
	c.searchMetrics.RecordBulk(total, failed)
}

// UpdateProxyPoolHealth reports the current count of usable (non-quarantined)
// and quarantined handles in a proxy pool, keyed by proxy kind.
func (c *Collector) UpdateProxyPoolHealth(kind string, usable, quarantined int) {
	if !c.config.Enabled {
		return
	}
	c.proxyMetrics.UpdateHealth(kind, usable, quarantined)
}

// RecordProxyBlock records a provider reporting a block against a given
// proxy kind.
func (c *Collector) RecordProxyBlock(kind string) {
	if !c.config.Enabled {
		return
	}
	c.proxyMetrics.RecordBlock(kind)
}

// UpdateThreatLevel records a session's current anti-detection threat level
// (0=green .. 3=red) as a gauge, so dashboards can watch step-ups as they
// happen instead of only counting transitions after the fact.
func (c *Collector) UpdateThreatLevel(level int) {
	if !c.config.Enabled {
		return
	}
	c.threatMetrics.UpdateLevel(level)
}

// RecordThreatTransition records one observed threat-level step, labeled by
// the level transitioned from and to.
func (c *Collector) RecordThreatTransition(from, to string) {
	if !c.config.Enabled {
		return
	}
	c.threatMetrics.RecordTransition(from, to)
}

// RecordCacheHit records a result-cache hit.
func (c *Collector) RecordCacheHit() {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordHit()
}

// RecordCacheMiss records a result-cache miss.
func (c *Collector) RecordCacheMiss() {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordMiss()
}

// UpdateCacheSize updates the current number of entries held by the result
// cache.
func (c *Collector) UpdateCacheSize(size int) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.UpdateSize(size)
}

// Registry returns the Prometheus registry backing this collector, for
// callers that need to register additional collectors of their own.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
