// Package telemetry provides the search core's observability surface:
// structured logging, Prometheus metrics, and health check endpoints.
//
// # Overview
//
// Subjects under lookup are real people, so the telemetry stack is built
// around keeping their identifying data out of logs and metrics labels
// while still giving operators enough signal to diagnose proxy, cache, and
// upstream problems.
//
// # Components
//
//   - logging: structured logging (log/slog) with PII redaction
//   - metrics: Prometheus metrics collection
//   - health: liveness/readiness checks
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	logger.Info("search completed", "status", "found", "duration_ms", 123)
//
//	collector := metrics.NewCollector(&cfg.Metrics, registry)
//	collector.RecordSearch("by_name", "found", time.Second, 1)
//
// # PII Protection
//
// Identifying fields are redacted before they reach a log line or error
// message:
//
//   - Alien numbers: A123456789 → A********* (logging.RedactAlienNumber)
//   - Emails: user@example.com → u***@example.com (logging.RedactEmail)
//   - IPv4 addresses: 192.168.1.1 → 192.*.*.* (logging.RedactIPv4)
package telemetry
