package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// CorrelationIDKey is the context key for the per-search correlation ID.
	CorrelationIDKey contextKey = "correlation_id"

	// SessionKey is the context key for the pipeline session identifier.
	SessionKey contextKey = "session"

	// ProxyIDKey is the context key for the proxy handle in use.
	ProxyIDKey contextKey = "proxy_id"

	// FacilityKey is the context key for the facility being queried.
	FacilityKey contextKey = "facility"

	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"

	// SpanIDKey is the context key for span IDs.
	SpanIDKey contextKey = "span_id"
)

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// GetCorrelationID retrieves the correlation ID from the context.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSession adds a session identifier to the context.
func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// GetSession retrieves the session identifier from the context.
func GetSession(ctx context.Context) string {
	if session, ok := ctx.Value(SessionKey).(string); ok {
		return session
	}
	return ""
}

// WithProxyID adds the active proxy handle ID to the context.
func WithProxyID(ctx context.Context, proxyID string) context.Context {
	return context.WithValue(ctx, ProxyIDKey, proxyID)
}

// GetProxyID retrieves the active proxy handle ID from the context.
func GetProxyID(ctx context.Context) string {
	if proxyID, ok := ctx.Value(ProxyIDKey).(string); ok {
		return proxyID
	}
	return ""
}

// WithFacility adds the facility being queried to the context.
func WithFacility(ctx context.Context, facility string) context.Context {
	return context.WithValue(ctx, FacilityKey, facility)
}

// GetFacility retrieves the facility being queried from the context.
func GetFacility(ctx context.Context) string {
	if facility, ok := ctx.Value(FacilityKey).(string); ok {
		return facility
	}
	return ""
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// WithSpanID adds a span ID to the context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDKey, spanID)
}

// GetSpanID retrieves the span ID from the context.
func GetSpanID(ctx context.Context) string {
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok {
		return spanID
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if id := GetCorrelationID(ctx); id != "" {
		fields = append(fields, "correlation_id", id)
	}
	if session := GetSession(ctx); session != "" {
		fields = append(fields, "session", session)
	}
	if proxyID := GetProxyID(ctx); proxyID != "" {
		fields = append(fields, "proxy_id", proxyID)
	}
	if facility := GetFacility(ctx); facility != "" {
		fields = append(fields, "facility", facility)
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, "trace_id", traceID)
	}
	if spanID := GetSpanID(ctx); spanID != "" {
		fields = append(fields, "span_id", spanID)
	}

	return fields
}

// ContextLogger is a logger that automatically includes context fields.
type ContextLogger struct {
	logger *Logger
	ctx    context.Context
}

// NewContextLogger creates a logger that automatically includes context fields.
func NewContextLogger(logger *Logger, ctx context.Context) *ContextLogger {
	return &ContextLogger{
		logger: logger.WithContext(ctx),
		ctx:    ctx,
	}
}

// Debug logs a debug message with context fields.
func (cl *ContextLogger) Debug(msg string, args ...any) {
	cl.logger.DebugContext(cl.ctx, msg, args...)
}

// Info logs an info message with context fields.
func (cl *ContextLogger) Info(msg string, args ...any) {
	cl.logger.InfoContext(cl.ctx, msg, args...)
}

// Warn logs a warning message with context fields.
func (cl *ContextLogger) Warn(msg string, args ...any) {
	cl.logger.WarnContext(cl.ctx, msg, args...)
}

// Error logs an error message with context fields.
func (cl *ContextLogger) Error(msg string, args ...any) {
	cl.logger.ErrorContext(cl.ctx, msg, args...)
}

// With creates a new context logger with additional fields.
func (cl *ContextLogger) With(args ...any) *ContextLogger {
	return &ContextLogger{
		logger: cl.logger.With(args...),
		ctx:    cl.ctx,
	}
}
