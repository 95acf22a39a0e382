package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/icelocator/locator-core/internal/antidetect"
	"github.com/icelocator/locator-core/internal/antidetect/behavior"
	"github.com/icelocator/locator-core/internal/antidetect/obfuscate"
	"github.com/icelocator/locator-core/internal/antidetect/traffic"
	"github.com/icelocator/locator-core/internal/app"
	"github.com/icelocator/locator-core/internal/cache"
	"github.com/icelocator/locator-core/internal/orchestrator"
	"github.com/icelocator/locator-core/internal/pipeline"
	"github.com/icelocator/locator-core/internal/proxypool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/icelocator/locator-core/internal/testutil/mockupstream"
	"github.com/icelocator/locator-core/pkg/config"
	"github.com/icelocator/locator-core/pkg/model"
	"github.com/icelocator/locator-core/pkg/telemetry/health"
	"github.com/icelocator/locator-core/pkg/telemetry/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testApp wires a minimal *app.App directly over a mock upstream, bypassing
// app.New (which opens a SQLite-backed proxy store) so dispatcher tests stay
// hermetic and fast.
func testApp(t *testing.T, upstream *mockupstream.Server) *app.App {
	t.Helper()

	pl := pipeline.New(pipeline.Config{
		BaseURL:     upstream.URL(),
		FormPath:    mockupstream.FormPath,
		ActionHints: []string{"/search"},
		Timeout:     5 * time.Second,
	})

	pool := proxypool.New(proxypool.RotationPolicy{}, nil, nil)
	pool.Seed([]proxypool.Provider{
		{Endpoint: "10.0.0.1:8080", Kind: model.ProxyDatacenter, Region: "us"},
	})

	obf := obfuscate.New([]string{"Mozilla/5.0 (compatible; test)"}, 1)
	sim := behavior.New(1)
	dist := traffic.New(traffic.Config{RequestsPerMinute: 6000, BurstAllowance: 100, Pattern: traffic.PatternSteady})
	coordinator := antidetect.New(pool, obf, sim, dist, "fast", false, discardLogger())

	c, err := cache.Open(config.CacheConfig{Enabled: true, TTLSeconds: 300, MaxEntries: 100, Directory: t.TempDir()}, discardLogger())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	orchCfg := orchestrator.FromConfig(
		config.RetryConfig{MaxAttempts: 2, BackoffBaseMs: 1},
		config.SearchConfig{DefaultConfidenceThreshold: 0.7},
	)
	orch := orchestrator.New(pl, coordinator, pool, c, orchCfg, discardLogger())

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, registry)
	orch.SetMetrics(collector)

	checker := health.New(time.Second)
	checker.RegisterCheck("cache", func(ctx context.Context) error { return nil })

	return &app.App{
		Orchestrator: orch,
		Cache:        c,
		Pool:         pool,
		Metrics:      collector,
		Registry:     registry,
		Health:       checker,
	}
}

func TestDispatchSearchByAlienNumberFound(t *testing.T) {
	upstream := mockupstream.New()
	t.Cleanup(upstream.Close)
	upstream.SetFormScript([]mockupstream.Step{{Class: mockupstream.ClassForm}})
	upstream.SetSubmitScript([]mockupstream.Step{{Class: mockupstream.ClassResults, Records: []mockupstream.Record{
		{AlienNumber: "A123456789", FullName: "Jane Doe", CustodyStatus: "in custody"},
	}}})

	a := testApp(t, upstream)
	d := NewDispatcher(a)

	params, _ := json.Marshal(SearchByAlienNumberRequest{AlienNumber: "A123456789"})
	result, errEnv := d.Dispatch(context.Background(), OpSearchByAlienNumber, params)
	if errEnv != nil {
		t.Fatalf("Dispatch returned error envelope: %+v", errEnv)
	}
	resp, ok := result.(ResponseEnvelope)
	if !ok {
		t.Fatalf("result is %T, want ResponseEnvelope", result)
	}
	if resp.Status != string(model.StatusFound) {
		t.Errorf("Status = %q, want %q", resp.Status, model.StatusFound)
	}
	if len(resp.Results) != 1 || resp.Results[0].AlienNumber != "A123456789" {
		t.Errorf("Results = %+v, want one record for A123456789", resp.Results)
	}
}

func TestDispatchUnknownOperation(t *testing.T) {
	upstream := mockupstream.New()
	t.Cleanup(upstream.Close)
	a := testApp(t, upstream)
	d := NewDispatcher(a)

	result, errEnv := d.Dispatch(context.Background(), "not_a_real_operation", json.RawMessage(`{}`))
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	if errEnv == nil || errEnv.Error.Kind != "validation" {
		t.Fatalf("errEnv = %+v, want validation error", errEnv)
	}
}

func TestDispatchSearchByNameValidationError(t *testing.T) {
	upstream := mockupstream.New()
	t.Cleanup(upstream.Close)
	a := testApp(t, upstream)
	d := NewDispatcher(a)

	// Missing both first and last name: the orchestrator's Validate should
	// reject this before any HTTP call is made.
	params, _ := json.Marshal(SearchByNameRequest{})
	_, errEnv := d.Dispatch(context.Background(), OpSearchByName, params)
	if errEnv == nil {
		t.Fatal("expected a validation error envelope, got none")
	}
	if errEnv.Error.Kind != "validation" {
		t.Errorf("Kind = %q, want validation", errEnv.Error.Kind)
	}
}

func TestDispatchBulkSearchPreservesOrderAndIsolatesErrors(t *testing.T) {
	upstream := mockupstream.New()
	t.Cleanup(upstream.Close)
	upstream.SetFormScript([]mockupstream.Step{{Class: mockupstream.ClassForm}})
	upstream.SetSubmitScript([]mockupstream.Step{{Class: mockupstream.ClassNotFound}})

	a := testApp(t, upstream)
	d := NewDispatcher(a)

	req := BulkSearchRequest{
		Searches: []map[string]any{
			{"alien_number": "A111111111"},
			{"not_a_valid_key": "oops"},
			{"alien_number": "A222222222"},
		},
	}
	params, _ := json.Marshal(req)
	result, errEnv := d.Dispatch(context.Background(), OpBulkSearch, params)
	if errEnv != nil {
		t.Fatalf("Dispatch returned error envelope: %+v", errEnv)
	}
	bulk, ok := result.(BulkResponseEnvelope)
	if !ok {
		t.Fatalf("result is %T, want BulkResponseEnvelope", result)
	}
	if len(bulk.Results) != 3 {
		t.Fatalf("len(Results) = %d, want 3", len(bulk.Results))
	}
	if bulk.Results[0].Response == nil || bulk.Results[0].Error != nil {
		t.Errorf("slot 0 = %+v, want a successful response", bulk.Results[0])
	}
	if bulk.Results[1].Error == nil {
		t.Errorf("slot 1 = %+v, want a decode error", bulk.Results[1])
	}
	if bulk.Results[2].Response == nil || bulk.Results[2].Error != nil {
		t.Errorf("slot 2 = %+v, want a successful response", bulk.Results[2])
	}
}

func TestDispatchParseNaturalQueryWithoutAutoExecute(t *testing.T) {
	upstream := mockupstream.New()
	t.Cleanup(upstream.Close)
	a := testApp(t, upstream)
	d := NewDispatcher(a)

	params, _ := json.Marshal(ParseNaturalQueryRequest{Query: "find John Smith born 1990-01-01"})
	result, errEnv := d.Dispatch(context.Background(), OpParseNaturalQuery, params)
	if errEnv != nil {
		t.Fatalf("Dispatch returned error envelope: %+v", errEnv)
	}
	resp, ok := result.(ResponseEnvelope)
	if !ok {
		t.Fatalf("result is %T, want ResponseEnvelope", result)
	}
	if resp.Status != "parsed" {
		t.Errorf("Status = %q, want parsed", resp.Status)
	}
	if len(resp.SearchMetadata.CorrectionsApplied) == 0 {
		t.Error("expected CorrectionsApplied to describe the parsed query")
	}
}
