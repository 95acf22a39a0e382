package fuzzy

import (
	"testing"
	"time"

	"github.com/icelocator/locator-core/pkg/model"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parsing test date %q: %v", s, err)
	}
	return d
}

func baseQuery(t *testing.T) model.SearchQuery {
	return model.SearchQuery{
		Kind:                model.QueryByName,
		FirstName:           "Jose",
		LastName:            "Garcia Lopez",
		DateOfBirth:         mustDate(t, "1985-03-14"),
		CountryOfBirth:      "Mexico",
		Language:            model.LanguageES,
		ConfidenceThreshold: 0.5,
		DateToleranceDays:   30,
	}
}

func TestRankExactMatchScoresOne(t *testing.T) {
	q := baseQuery(t)
	candidates := []model.Record{
		{
			FullName:       "Jose Garcia Lopez",
			DateOfBirth:    "1985-03-14",
			CountryOfBirth: "Mexico",
		},
	}

	ranked := Rank(q, candidates, Options{Language: q.Language, ConfidenceThreshold: q.ConfidenceThreshold, DateToleranceDays: q.DateToleranceDays})
	if len(ranked) != 1 {
		t.Fatalf("expected 1 ranked result, got %d", len(ranked))
	}
	if ranked[0].Confidence < 0.99 {
		t.Errorf("expected near-1.0 confidence for exact match, got %f", ranked[0].Confidence)
	}
}

func TestRankAccentedFuzzyMatchAboveThreshold(t *testing.T) {
	q := baseQuery(t)
	q.FirstName = "Jose"
	candidates := []model.Record{
		{
			FullName:       "José García López",
			DateOfBirth:    "1985-03-14",
			CountryOfBirth: "México",
		},
	}

	ranked := Rank(q, candidates, Options{Language: model.LanguageES, ConfidenceThreshold: 0.5, DateToleranceDays: 30})
	if len(ranked) != 1 {
		t.Fatalf("expected 1 ranked result, got %d", len(ranked))
	}
	if ranked[0].Confidence < 0.85 {
		t.Errorf("expected confidence >= 0.85 for accent-only variant, got %f", ranked[0].Confidence)
	}
}

func TestRankNicknameVariantMatches(t *testing.T) {
	q := baseQuery(t)
	q.FirstName = "Pepe" // nickname for Jose
	candidates := []model.Record{
		{
			FullName:       "Jose Garcia Lopez",
			DateOfBirth:    "1985-03-14",
			CountryOfBirth: "Mexico",
		},
	}

	ranked := Rank(q, candidates, Options{Language: model.LanguageES, ConfidenceThreshold: 0.5, DateToleranceDays: 30})
	if len(ranked) != 1 {
		t.Fatalf("expected nickname variant to surface a match, got %d results", len(ranked))
	}
}

func TestRankSurnameOrderingBothDirections(t *testing.T) {
	q := baseQuery(t)
	q.LastName = "Garcia Lopez"
	candidates := []model.Record{
		{
			FullName:       "Jose Lopez Garcia", // reversed double-surname ordering
			DateOfBirth:    "1985-03-14",
			CountryOfBirth: "Mexico",
		},
	}

	ranked := Rank(q, candidates, Options{Language: model.LanguageES, ConfidenceThreshold: 0.5, DateToleranceDays: 30})
	if len(ranked) != 1 {
		t.Fatalf("expected reversed surname ordering to still match, got %d results", len(ranked))
	}
}

func TestRankFiltersBelowThreshold(t *testing.T) {
	q := baseQuery(t)
	q.FirstName = "Zzyzx"
	q.LastName = "Qwerty"
	q.DateOfBirth = mustDate(t, "1900-01-01")
	q.CountryOfBirth = "Atlantis"

	candidates := []model.Record{
		{
			FullName:       "Jose Garcia Lopez",
			DateOfBirth:    "1985-03-14",
			CountryOfBirth: "Mexico",
		},
	}

	ranked := Rank(q, candidates, Options{Language: model.LanguageES, ConfidenceThreshold: 0.5, DateToleranceDays: 30})
	if len(ranked) != 0 {
		t.Errorf("expected no results below threshold, got %d", len(ranked))
	}
}

func TestRankEmptyCandidateList(t *testing.T) {
	q := baseQuery(t)
	ranked := Rank(q, nil, Options{Language: q.Language, ConfidenceThreshold: 0.5, DateToleranceDays: 30})
	if ranked != nil {
		t.Errorf("expected nil result for empty candidate list, got %v", ranked)
	}
}

func TestRankZeroThresholdReturnsAll(t *testing.T) {
	q := baseQuery(t)
	q.FirstName = "Zzyzx"
	candidates := []model.Record{
		{FullName: "Jose Garcia Lopez", DateOfBirth: "1985-03-14", CountryOfBirth: "Mexico"},
		{FullName: "Completely Different Person", DateOfBirth: "1970-01-01", CountryOfBirth: "Honduras"},
	}

	ranked := Rank(q, candidates, Options{Language: model.LanguageES, ConfidenceThreshold: 0, DateToleranceDays: 30})
	if len(ranked) != len(candidates) {
		t.Fatalf("expected all %d candidates with threshold 0, got %d", len(candidates), len(ranked))
	}
}

func TestRankDescendingConfidenceOrder(t *testing.T) {
	q := baseQuery(t)
	candidates := []model.Record{
		{FullName: "Completely Different Person", DateOfBirth: "1970-01-01", CountryOfBirth: "Honduras"},
		{FullName: "Jose Garcia Lopez", DateOfBirth: "1985-03-14", CountryOfBirth: "Mexico"},
	}

	ranked := Rank(q, candidates, Options{Language: model.LanguageES, ConfidenceThreshold: 0, DateToleranceDays: 30})
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Confidence > ranked[i-1].Confidence {
			t.Fatalf("result not sorted descending at index %d: %f > %f", i, ranked[i].Confidence, ranked[i-1].Confidence)
		}
	}
	if ranked[0].Record.FullName != "Jose Garcia Lopez" {
		t.Errorf("expected the closer match first, got %q", ranked[0].Record.FullName)
	}
}

func TestRankDOBWithinToleranceDecays(t *testing.T) {
	q := baseQuery(t)
	candidates := []model.Record{
		{FullName: "Jose Garcia Lopez", DateOfBirth: "1985-03-20", CountryOfBirth: "Mexico"}, // 6 days off
	}

	ranked := Rank(q, candidates, Options{Language: model.LanguageES, ConfidenceThreshold: 0, DateToleranceDays: 30})
	if len(ranked) != 1 {
		t.Fatalf("expected 1 result, got %d", len(ranked))
	}
	if ranked[0].Confidence >= 1.0 {
		t.Errorf("expected confidence below 1.0 for a DOB within tolerance but not exact, got %f", ranked[0].Confidence)
	}
}

func TestRankIdempotent(t *testing.T) {
	q := baseQuery(t)
	candidates := []model.Record{
		{FullName: "Jose Garcia Lopez", DateOfBirth: "1985-03-14", CountryOfBirth: "Mexico"},
		{FullName: "Maria Hernandez", DateOfBirth: "1990-06-01", CountryOfBirth: "Honduras"},
	}

	opts := Options{Language: model.LanguageES, ConfidenceThreshold: 0, DateToleranceDays: 30}
	first := Rank(q, candidates, opts)
	second := Rank(q, candidates, opts)

	if len(first) != len(second) {
		t.Fatalf("ranking not idempotent: lengths differ %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Confidence != second[i].Confidence || first[i].Record.FullName != second[i].Record.FullName {
			t.Errorf("ranking not idempotent at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}
