package transport

import (
	"testing"
	"time"

	"github.com/icelocator/locator-core/pkg/apierrors"
	"github.com/icelocator/locator-core/pkg/model"
)

func TestSearchByNameRequestToQueryRejectsBadDate(t *testing.T) {
	req := SearchByNameRequest{FirstName: "Jane", LastName: "Doe", DateOfBirth: "not-a-date"}
	if _, err := req.ToQuery(); err == nil {
		t.Fatal("expected an error for an unparsable date_of_birth, got nil")
	}
}

func TestSearchByNameRequestToQueryDefaultsLanguage(t *testing.T) {
	req := SearchByNameRequest{FirstName: "Jane", LastName: "Doe"}
	q, err := req.ToQuery()
	if err != nil {
		t.Fatalf("ToQuery: %v", err)
	}
	if q.Language != model.LanguageEN {
		t.Errorf("Language = %q, want %q", q.Language, model.LanguageEN)
	}
	if q.Kind != model.QueryByName {
		t.Errorf("Kind = %q, want %q", q.Kind, model.QueryByName)
	}
}

func TestToErrorEnvelopeUnwrapsAPIError(t *testing.T) {
	apiErr := apierrors.New(apierrors.KindBlocked, "corr-123", "upstream blocked the request")
	env := ToErrorEnvelope(apiErr)
	if env.Error.Kind != string(apierrors.KindBlocked) {
		t.Errorf("Kind = %q, want %q", env.Error.Kind, apierrors.KindBlocked)
	}
	if env.Error.CorrelationID != "corr-123" {
		t.Errorf("CorrelationID = %q, want corr-123", env.Error.CorrelationID)
	}
}

func TestToErrorEnvelopeFallsBackToInternal(t *testing.T) {
	env := ToErrorEnvelope(errPlain("boom"))
	if env.Error.Kind != string(apierrors.KindInternal) {
		t.Errorf("Kind = %q, want %q", env.Error.Kind, apierrors.KindInternal)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func TestToResponseEnvelopeConvertsRecordsAndMetadata(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	confidence := 0.92
	result := model.SearchResult{
		Status: model.StatusFound,
		Records: []model.Record{
			{AlienNumber: "A123456789", FullName: "Jane Doe", Confidence: &confidence},
		},
		Metadata: model.ResultMetadata{
			Timestamp:          now,
			ProcessingDuration: 2 * time.Second,
			Language:           model.LanguageEN,
			TotalCandidates:    3,
			RetryCount:         1,
			Cached:             true,
		},
	}

	env := ToResponseEnvelope(result)
	if env.Status != string(model.StatusFound) {
		t.Errorf("Status = %q, want %q", env.Status, model.StatusFound)
	}
	if len(env.Results) != 1 || env.Results[0].AlienNumber != "A123456789" {
		t.Fatalf("Results = %+v", env.Results)
	}
	if env.Results[0].Confidence == nil || *env.Results[0].Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", env.Results[0].Confidence)
	}
	if !env.SearchMetadata.Cached {
		t.Error("Cached = false, want true")
	}
	if env.SearchMetadata.ProcessingDuration != "2s" {
		t.Errorf("ProcessingDuration = %q, want 2s", env.SearchMetadata.ProcessingDuration)
	}
}

func TestDecodeBulkItemRejectsUnidentifiableSearch(t *testing.T) {
	_, err := DecodeBulkItem(map[string]any{"unrelated_key": "value"})
	if err == nil {
		t.Fatal("expected an error for a bulk item with no identifying field")
	}
}

func TestDecodeBulkItemByAlienNumber(t *testing.T) {
	q, err := DecodeBulkItem(map[string]any{"alien_number": "A000000001"})
	if err != nil {
		t.Fatalf("DecodeBulkItem: %v", err)
	}
	if q.Kind != model.QueryByAlienNumber || q.AlienNumber != "A000000001" {
		t.Errorf("query = %+v, want QueryByAlienNumber/A000000001", q)
	}
}
