// Package metrics provides Prometheus metrics collection for the detainee
// locator search core.
//
// # Overview
//
// The metrics package instruments the orchestrator's search loop, the proxy
// pool it draws handles from, the anti-detection coordinator's threat-level
// state machine, and the result cache. It is a thin wrapper around
// github.com/prometheus/client_golang: a Collector owns a prometheus.Registry
// and exposes one recording method per concern.
//
// # Metrics Categories
//
//   - Search Metrics: search count, duration, and retries by query kind/status
//   - Proxy Metrics: proxy pool handle health and reported blocks by kind
//   - Threat Metrics: current anti-detection threat level and its transitions
//   - Cache Metrics: result cache hits, misses, and size
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//	collector.RecordSearch("by_name", "found", 1200*time.Millisecond, 1)
//	collector.UpdateThreatLevel(int(model.ThreatYellow))
//	collector.RecordCacheHit()
//
// # Prometheus Endpoint
//
// Collector.Handler() returns an http.Handler serving the registered
// metrics in standard Prometheus exposition format; the caller mounts it,
// typically at /metrics:
//
//	# HELP icelocator_core_searches_total Total number of searches processed, by query kind and status
//	# TYPE icelocator_core_searches_total counter
//	icelocator_core_searches_total{kind="by_name",status="found"} 42
package metrics
