package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/icelocator/locator-core/internal/antidetect"
	"github.com/icelocator/locator-core/internal/antidetect/behavior"
	"github.com/icelocator/locator-core/internal/antidetect/obfuscate"
	"github.com/icelocator/locator-core/internal/antidetect/traffic"
	"github.com/icelocator/locator-core/internal/cache"
	"github.com/icelocator/locator-core/internal/pipeline"
	"github.com/icelocator/locator-core/internal/proxypool"
	"github.com/icelocator/locator-core/internal/testutil/mockupstream"
	"github.com/icelocator/locator-core/pkg/apierrors"
	"github.com/icelocator/locator-core/pkg/config"
	"github.com/icelocator/locator-core/pkg/model"
)

// newTestOrchestrator wires the same collaborators cmd/icelocator wires in
// production, pointed at an in-process mock upstream and a throwaway cache
// directory, with the traffic distributor opened up so tests aren't
// throttled by the default 20/min budget.
func newTestOrchestrator(t *testing.T, upstream *mockupstream.Server) *Orchestrator {
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
		{Endpoint: "10.0.0.2:8080", Kind: model.ProxyResidential, Region: "us"},
	})

	obf := obfuscate.New([]string{"Mozilla/5.0 (compatible; test)"}, 1)
	sim := behavior.New(1)
	dist := traffic.New(traffic.Config{RequestsPerMinute: 6000, BurstAllowance: 100, Pattern: traffic.PatternSteady})
	coordinator := antidetect.New(pool, obf, sim, dist, "fast", false, discardLogger())

	dir := t.TempDir()
	c, err := cache.Open(config.CacheConfig{Enabled: true, TTLSeconds: 300, MaxEntries: 100, Directory: dir}, discardLogger())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}

	cfg := FromConfig(
		config.RetryConfig{MaxAttempts: 4, BackoffBaseMs: 1},
		config.SearchConfig{DefaultConfidenceThreshold: 0.7},
	)
	cfg.PerSearchTimeout = 10 * time.Second

	return New(pl, coordinator, pool, c, cfg, discardLogger())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func nameQuery() model.SearchQuery {
	return model.SearchQuery{
		Kind:           model.QueryByName,
		FirstName:      "Jose",
		LastName:       "Garcia",
		DateOfBirth:    time.Date(1985, 3, 14, 0, 0, 0, 0, time.UTC),
		CountryOfBirth: "Mexico",
	}
}

func TestSearchExactMatch(t *testing.T) {
	upstream := mockupstream.New()
	defer upstream.Close()
	upstream.SetSubmitScript([]mockupstream.Step{
		{Class: mockupstream.ClassResults, Records: []mockupstream.Record{
			{AlienNumber: "A12345678", FullName: "Jose Garcia", DateOfBirth: "1985-03-14", CountryOfBirth: "Mexico", FacilityName: "Otero County", CustodyStatus: "in custody"},
		}},
	})

	o := newTestOrchestrator(t, upstream)
	result, err := o.Search(context.Background(), nameQuery())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Status != model.StatusFound {
		t.Fatalf("got status %q, want found", result.Status)
	}
	if len(result.Records) != 1 || result.Records[0].AlienNumber != "A12345678" {
		t.Fatalf("unexpected records: %+v", result.Records)
	}
}

func TestSearchFuzzyMatchWithAccent(t *testing.T) {
	upstream := mockupstream.New()
	defer upstream.Close()
	upstream.SetSubmitScript([]mockupstream.Step{
		{Class: mockupstream.ClassResults, Records: []mockupstream.Record{
			{AlienNumber: "A87654321", FullName: "Jose Garcia Lopez", DateOfBirth: "1985-03-14", CountryOfBirth: "México"},
		}},
	})

	o := newTestOrchestrator(t, upstream)
	q := nameQuery()
	q.Fuzzy = true
	q.ConfidenceThreshold = 0.6

	result, err := o.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Status != model.StatusFound {
		t.Fatalf("got status %q, want found", result.Status)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected one ranked record, got %d", len(result.Records))
	}
	if result.Records[0].Confidence == nil {
		t.Fatalf("expected fuzzy match to carry a confidence score")
	}
}

func TestSearchNotFound(t *testing.T) {
	upstream := mockupstream.New()
	defer upstream.Close()
	upstream.SetSubmitScript([]mockupstream.Step{{Class: mockupstream.ClassNotFound}})

	o := newTestOrchestrator(t, upstream)
	result, err := o.Search(context.Background(), nameQuery())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Status != model.StatusNotFound {
		t.Fatalf("got status %q, want not_found", result.Status)
	}
}

func TestSearchBlockThenRecover(t *testing.T) {
	upstream := mockupstream.New()
	defer upstream.Close()
	upstream.SetSubmitScript([]mockupstream.Step{
		{Class: mockupstream.ClassBlocked},
		{Class: mockupstream.ClassResults, Records: []mockupstream.Record{
			{AlienNumber: "A11112222", FullName: "Jose Garcia", DateOfBirth: "1985-03-14", CountryOfBirth: "Mexico"},
		}},
	})

	o := newTestOrchestrator(t, upstream)
	result, err := o.Search(context.Background(), nameQuery())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Status != model.StatusFound {
		t.Fatalf("got status %q, want found after recovery", result.Status)
	}
	if result.Metadata.RetryCount == 0 {
		t.Fatalf("expected the initial block to consume retry budget")
	}
	if len(result.Metadata.ThreatTransitions) == 0 {
		t.Fatalf("expected a recorded threat-level transition")
	}
}

func TestSearchRateLimitedThenRecover(t *testing.T) {
	upstream := mockupstream.New()
	defer upstream.Close()
	upstream.SetSubmitScript([]mockupstream.Step{
		{Class: mockupstream.ClassRateLimited},
		{Class: mockupstream.ClassResults, Records: []mockupstream.Record{
			{AlienNumber: "A33334444", FullName: "Jose Garcia", DateOfBirth: "1985-03-14", CountryOfBirth: "Mexico"},
		}},
	})

	o := newTestOrchestrator(t, upstream)
	result, err := o.Search(context.Background(), nameQuery())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Status != model.StatusFound {
		t.Fatalf("got status %q, want found after rate-limit recovery", result.Status)
	}
	if result.Metadata.RetryCount == 0 {
		t.Fatalf("expected the 429 to consume retry budget")
	}
	if stats := o.pool.Stats(); stats.Quarantined != 0 {
		t.Fatalf("a rate-limited response must not quarantine a proxy, got %d quarantined", stats.Quarantined)
	}
}

func TestSearchRateLimitedExhaustionSurfacesRateLimited(t *testing.T) {
	upstream := mockupstream.New()
	defer upstream.Close()
	upstream.SetSubmitScript([]mockupstream.Step{{Class: mockupstream.ClassRateLimited}})

	o := newTestOrchestrator(t, upstream)
	o.cfg.MaxAttempts = 2
	_, err := o.Search(context.Background(), nameQuery())
	apiErr, ok := apierrors.As(err)
	if !ok {
		t.Fatalf("expected an *apierrors.Error, got %v (%T)", err, err)
	}
	if apiErr.Kind != apierrors.KindRateLimited {
		t.Fatalf("got kind %q, want rate_limited (not blocked)", apiErr.Kind)
	}
}

func TestSearchCaptchaSurfaced(t *testing.T) {
	upstream := mockupstream.New()
	defer upstream.Close()
	upstream.SetSubmitScript([]mockupstream.Step{{Class: mockupstream.ClassCaptcha}})

	o := newTestOrchestrator(t, upstream)
	_, err := o.Search(context.Background(), nameQuery())
	apiErr, ok := apierrors.As(err)
	if !ok {
		t.Fatalf("expected an *apierrors.Error, got %v (%T)", err, err)
	}
	if apiErr.Kind != apierrors.KindCaptchaRequired {
		t.Fatalf("got kind %q, want captcha_required", apiErr.Kind)
	}
}

func TestBulkSearchPartialFailure(t *testing.T) {
	upstream := mockupstream.New()
	defer upstream.Close()
	upstream.SetSubmitScript([]mockupstream.Step{
		{Class: mockupstream.ClassResults, Records: []mockupstream.Record{
			{AlienNumber: "A00000001", FullName: "Jose Garcia"},
		}},
		{Class: mockupstream.ClassNotFound},
	})

	o := newTestOrchestrator(t, upstream)

	q1 := nameQuery()
	invalid := model.SearchQuery{Kind: model.QueryByName} // missing required fields
	q3 := nameQuery()
	q3.LastName = "Hernandez"

	items := o.BulkSearch(context.Background(), []model.SearchQuery{q1, invalid, q3}, 2, false)
	if len(items) != 3 {
		t.Fatalf("got %d slots, want 3", len(items))
	}
	if items[0].Err != nil {
		t.Fatalf("slot 0: unexpected error %v", items[0].Err)
	}
	if items[1].Err == nil {
		t.Fatalf("slot 1: expected a validation error")
	}
	if apiErr, ok := apierrors.As(items[1].Err); !ok || apiErr.Kind != apierrors.KindValidation {
		t.Fatalf("slot 1: got %v, want a validation error", items[1].Err)
	}
	if items[2].Err != nil {
		t.Fatalf("slot 2: unexpected error %v", items[2].Err)
	}
}

func TestBulkSearchSequentialWhenMaxConcurrentOne(t *testing.T) {
	upstream := mockupstream.New()
	defer upstream.Close()
	upstream.SetSubmitScript([]mockupstream.Step{{Class: mockupstream.ClassNotFound}})

	o := newTestOrchestrator(t, upstream)
	q1, q2, q3 := nameQuery(), nameQuery(), nameQuery()
	q2.LastName, q3.LastName = "Hernandez", "Martinez"
	queries := []model.SearchQuery{q1, q2, q3}

	items := o.BulkSearch(context.Background(), queries, 1, false)
	if len(items) != 3 {
		t.Fatalf("got %d slots, want 3", len(items))
	}
	for i, item := range items {
		if item.Err != nil {
			t.Fatalf("slot %d: unexpected error %v", i, item.Err)
		}
	}
	if got := upstream.SubmitRequestCount(); got != 3 {
		t.Fatalf("got %d submit requests, want 3", got)
	}
}

func TestParseNaturalQueryAlienNumber(t *testing.T) {
	q, err := ParseNaturalQuery("find A12345678", model.LanguageEN)
	if err != nil {
		t.Fatalf("ParseNaturalQuery: %v", err)
	}
	if q.Kind != model.QueryByAlienNumber {
		t.Fatalf("got kind %q, want byAlienNumber", q.Kind)
	}
	if q.NormalizedAlienNumber() != "12345678" {
		t.Fatalf("got alien number %q, want 12345678", q.NormalizedAlienNumber())
	}
}

func TestParseNaturalQueryNameDOBCountry(t *testing.T) {
	q, err := ParseNaturalQuery("find Jose Garcia born 1985-03-14 from Mexico", model.LanguageEN)
	if err != nil {
		t.Fatalf("ParseNaturalQuery: %v", err)
	}
	if q.Kind != model.QueryByName {
		t.Fatalf("got kind %q, want byName", q.Kind)
	}
	if q.FirstName != "jose" || q.LastName != "garcia" {
		t.Fatalf("got name %q %q, want jose garcia", q.FirstName, q.LastName)
	}
	if q.DateOfBirth.Format("2006-01-02") != "1985-03-14" {
		t.Fatalf("got dob %v, want 1985-03-14", q.DateOfBirth)
	}
	if q.CountryOfBirth != "mexico" {
		t.Fatalf("got country %q, want mexico", q.CountryOfBirth)
	}
}

func TestParseNaturalQueryEmptyIsValidationError(t *testing.T) {
	_, err := ParseNaturalQuery("   ", model.LanguageEN)
	if _, ok := err.(*model.ValidationError); !ok {
		t.Fatalf("got %v (%T), want *model.ValidationError", err, err)
	}
}
