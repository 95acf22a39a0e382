// Package logging provides structured logging with PII redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - Automatic redaction of detainee-identifying fields (alien numbers,
//     dates of birth, full names) and incidental PII (emails, IPs)
//   - Context-aware logging with correlation IDs and session metadata
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//
//	logger.Info("search completed",
//	    "correlation_id", "req-123",
//	    "alien_number", "A12345678",  // redacted
//	    "duration_ms", 1234,
//	)
//
//	ctx := logging.WithCorrelationID(context.Background(), "req-123")
//	ctxLogger := logger.WithContext(ctx)
//	ctxLogger.Info("processing")  // includes correlation_id automatically
package logging
