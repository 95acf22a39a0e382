package logging

import (
	"context"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithCorrelationID(ctx, "corr-123")
	if got := GetCorrelationID(ctx); got != "corr-123" {
		t.Errorf("GetCorrelationID() = %q, want %q", got, "corr-123")
	}

	ctx = WithSession(ctx, "session-xyz")
	if got := GetSession(ctx); got != "session-xyz" {
		t.Errorf("GetSession() = %q, want %q", got, "session-xyz")
	}

	ctx = WithProxyID(ctx, "proxy-9")
	if got := GetProxyID(ctx); got != "proxy-9" {
		t.Errorf("GetProxyID() = %q, want %q", got, "proxy-9")
	}

	ctx = WithFacility(ctx, "Adelanto")
	if got := GetFacility(ctx); got != "Adelanto" {
		t.Errorf("GetFacility() = %q, want %q", got, "Adelanto")
	}

	ctx = WithTraceID(ctx, "trace-abc")
	if got := GetTraceID(ctx); got != "trace-abc" {
		t.Errorf("GetTraceID() = %q, want %q", got, "trace-abc")
	}

	ctx = WithSpanID(ctx, "span-def")
	if got := GetSpanID(ctx); got != "span-def" {
		t.Errorf("GetSpanID() = %q, want %q", got, "span-def")
	}
}

func TestContextKeys_Empty(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		get  func(context.Context) string
	}{
		{"CorrelationID", GetCorrelationID},
		{"Session", GetSession},
		{"ProxyID", GetProxyID},
		{"Facility", GetFacility},
		{"TraceID", GetTraceID},
		{"SpanID", GetSpanID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.get(ctx); got != "" {
				t.Errorf("Get%s() = %q, want empty string", tt.name, got)
			}
		})
	}
}

func TestExtractContextFields(t *testing.T) {
	tests := []struct {
		name       string
		setupCtx   func(context.Context) context.Context
		wantFields map[string]string
	}{
		{
			name:       "empty context",
			setupCtx:   func(ctx context.Context) context.Context { return ctx },
			wantFields: map[string]string{},
		},
		{
			name: "correlation id only",
			setupCtx: func(ctx context.Context) context.Context {
				return WithCorrelationID(ctx, "corr-123")
			},
			wantFields: map[string]string{"correlation_id": "corr-123"},
		},
		{
			name: "all fields",
			setupCtx: func(ctx context.Context) context.Context {
				ctx = WithCorrelationID(ctx, "corr-789")
				ctx = WithSession(ctx, "sess-1")
				ctx = WithProxyID(ctx, "proxy-1")
				ctx = WithFacility(ctx, "Karnes")
				ctx = WithTraceID(ctx, "trace-1")
				ctx = WithSpanID(ctx, "span-1")
				return ctx
			},
			wantFields: map[string]string{
				"correlation_id": "corr-789",
				"session":        "sess-1",
				"proxy_id":       "proxy-1",
				"facility":       "Karnes",
				"trace_id":       "trace-1",
				"span_id":        "span-1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.setupCtx(context.Background())
			fields := extractContextFields(ctx)

			fieldsMap := make(map[string]string)
			for i := 0; i < len(fields); i += 2 {
				key := fields[i].(string)
				value := fields[i+1].(string)
				fieldsMap[key] = value
			}

			for key, expected := range tt.wantFields {
				if got, ok := fieldsMap[key]; !ok {
					t.Errorf("expected field %q not found", key)
				} else if got != expected {
					t.Errorf("field %q = %q, want %q", key, got, expected)
				}
			}
			if len(fieldsMap) != len(tt.wantFields) {
				t.Errorf("got %d fields, want %d: %v", len(fieldsMap), len(tt.wantFields), fieldsMap)
			}
		})
	}
}

func TestContextLogger(t *testing.T) {
	ctx := context.Background()
	ctx = WithCorrelationID(ctx, "corr-cl-1")

	logger, err := New(Config{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	ctxLogger := NewContextLogger(logger, ctx)
	if ctxLogger == nil {
		t.Fatal("NewContextLogger returned nil")
	}

	ctxLogger.Debug("debug message")
	ctxLogger.Info("info message")
	ctxLogger.Warn("warn message")
	ctxLogger.Error("error message")

	child := ctxLogger.With("extra", "value")
	if child == nil {
		t.Fatal("ContextLogger.With returned nil")
	}
	child.Info("child message")
}

func TestContextChaining(t *testing.T) {
	ctx := context.Background()
	ctx = WithCorrelationID(ctx, "corr-chain-1")
	ctx = WithSession(ctx, "sess1")
	ctx = WithFacility(ctx, "facility1")

	if got := GetCorrelationID(ctx); got != "corr-chain-1" {
		t.Errorf("after chaining, GetCorrelationID() = %q, want %q", got, "corr-chain-1")
	}

	ctx = WithProxyID(ctx, "proxy1")
	if got := GetProxyID(ctx); got != "proxy1" {
		t.Errorf("after chaining, GetProxyID() = %q, want %q", got, "proxy1")
	}

	if got := GetCorrelationID(ctx); got != "corr-chain-1" {
		t.Errorf("original value changed: GetCorrelationID() = %q, want %q", got, "corr-chain-1")
	}
}

func TestContextOverwrite(t *testing.T) {
	ctx := context.Background()
	ctx = WithCorrelationID(ctx, "corr-old")
	ctx = WithCorrelationID(ctx, "corr-new")

	if got := GetCorrelationID(ctx); got != "corr-new" {
		t.Errorf("after overwrite, GetCorrelationID() = %q, want %q", got, "corr-new")
	}
}
