// Package transport is the thin tool-invocation adapter over the search
// core: it maps the five named operations' JSON request/response envelopes
// onto internal/orchestrator calls. Everything here is intentionally
// shallow: validation, normalization, and retry all live in the
// orchestrator and pkg/model; this package only does the wire <->
// value-type conversion and framing.
package transport

import (
	"time"

	"github.com/icelocator/locator-core/pkg/apierrors"
	"github.com/icelocator/locator-core/pkg/model"
)

// SearchByNameRequest is search_by_name's input envelope.
type SearchByNameRequest struct {
	FirstName           string  `json:"first_name"`
	LastName            string  `json:"last_name"`
	MiddleName          string  `json:"middle_name,omitempty"`
	DateOfBirth         string  `json:"date_of_birth"`
	CountryOfBirth      string  `json:"country_of_birth"`
	Language            string  `json:"language,omitempty"`
	Fuzzy               bool    `json:"fuzzy,omitempty"`
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`
	DateToleranceDays   int     `json:"date_tolerance_days,omitempty"`
}

// SearchByAlienNumberRequest is search_by_alien_number's input envelope.
type SearchByAlienNumberRequest struct {
	AlienNumber string `json:"alien_number"`
	Language    string `json:"language,omitempty"`
}

// SearchByFacilityRequest is search_by_facility's input envelope.
type SearchByFacilityRequest struct {
	FacilityName string `json:"facility_name,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zip_code,omitempty"`
	FacilityType string `json:"facility_type,omitempty"`
	ActiveOnly   bool   `json:"active_only,omitempty"`
}

// BulkSearchRequest is bulk_search's input envelope. Each element of
// Searches is a raw JSON-ish map so the dispatcher can decide, per item,
// which of the three shapes above it is before converting it; see
// DecodeBulkItem.
type BulkSearchRequest struct {
	Searches      []map[string]any `json:"searches"`
	MaxConcurrent int              `json:"max_concurrent,omitempty"`
	StopOnError   bool             `json:"stop_on_error,omitempty"`
}

// ParseNaturalQueryRequest is parse_natural_query's input envelope.
type ParseNaturalQueryRequest struct {
	Query               string  `json:"query"`
	Language            string  `json:"language,omitempty"`
	AutoExecute         bool    `json:"auto_execute,omitempty"`
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`
}

// RecordDTO is one detainee record on the wire.
type RecordDTO struct {
	AlienNumber      string   `json:"alien_number"`
	FullName         string   `json:"full_name"`
	DateOfBirth      string   `json:"date_of_birth"`
	CountryOfBirth   string   `json:"country_of_birth"`
	FacilityName     string   `json:"facility_name"`
	FacilityLocation string   `json:"facility_location"`
	CustodyStatus    string   `json:"custody_status"`
	LastUpdated      string   `json:"last_updated"`
	Confidence       *float64 `json:"confidence,omitempty"`
}

// MetadataDTO is search_metadata on the wire.
type MetadataDTO struct {
	Timestamp          time.Time `json:"timestamp"`
	ProcessingDuration string    `json:"processing_duration"`
	Language           string    `json:"language"`
	CorrectionsApplied []string  `json:"corrections_applied,omitempty"`
	TotalCandidates    int       `json:"total_candidates"`
	RetryCount         int       `json:"retry_count"`
	ThreatTransitions  []string  `json:"threat_transitions,omitempty"`
	FinalProxyKind     string    `json:"final_proxy_kind,omitempty"`
	Cached             bool      `json:"cached"`
}

// ResponseEnvelope is the success shape every operation returns:
// {status, results[], search_metadata}.
type ResponseEnvelope struct {
	Status         string      `json:"status"`
	Results        []RecordDTO `json:"results"`
	SearchMetadata MetadataDTO `json:"search_metadata"`
}

// ErrorEnvelope is the failure shape: {error: {kind, message}}.
type ErrorEnvelope struct {
	Error ErrorDTO `json:"error"`
}

// ErrorDTO carries the kind/message pair plus the correlation ID every
// surfaced error includes.
type ErrorDTO struct {
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// ToErrorEnvelope converts any error into the wire error shape, unwrapping
// an *apierrors.Error for its kind/correlation ID and falling back to
// "internal" for anything else (a bug surfacing as a bare Go error, never
// expected in practice but handled rather than panicking).
func ToErrorEnvelope(err error) ErrorEnvelope {
	if apiErr, ok := apierrors.As(err); ok {
		return ErrorEnvelope{Error: ErrorDTO{
			Kind:          string(apiErr.Kind),
			Message:       apiErr.Message,
			CorrelationID: apiErr.CorrelationID,
		}}
	}
	return ErrorEnvelope{Error: ErrorDTO{Kind: string(apierrors.KindInternal), Message: err.Error()}}
}

// ToResponseEnvelope converts an orchestrator SearchResult into the wire
// response shape.
func ToResponseEnvelope(result model.SearchResult) ResponseEnvelope {
	records := make([]RecordDTO, len(result.Records))
	for i, r := range result.Records {
		records[i] = RecordDTO{
			AlienNumber:      r.AlienNumber,
			FullName:         r.FullName,
			DateOfBirth:      r.DateOfBirth,
			CountryOfBirth:   r.CountryOfBirth,
			FacilityName:     r.FacilityName,
			FacilityLocation: r.FacilityLocation,
			CustodyStatus:    r.CustodyStatus,
			LastUpdated:      r.LastUpdated,
			Confidence:       r.Confidence,
		}
	}
	return ResponseEnvelope{
		Status:  string(result.Status),
		Results: records,
		SearchMetadata: MetadataDTO{
			Timestamp:          result.Metadata.Timestamp,
			ProcessingDuration: result.Metadata.ProcessingDuration.String(),
			Language:           string(result.Metadata.Language),
			CorrectionsApplied: result.Metadata.CorrectionsApplied,
			TotalCandidates:    result.Metadata.TotalCandidates,
			RetryCount:         result.Metadata.RetryCount,
			ThreatTransitions:  result.Metadata.ThreatTransitions,
			FinalProxyKind:     result.Metadata.FinalProxyKind,
			Cached:             result.Metadata.Cached,
		},
	}
}

// ToQuery converts a SearchByNameRequest into a validated-shape
// model.SearchQuery (Validate still runs in the orchestrator; this is pure
// conversion, not validation).
func (r SearchByNameRequest) ToQuery() (model.SearchQuery, error) {
	var dob time.Time
	var err error
	if r.DateOfBirth != "" {
		dob, err = time.Parse("2006-01-02", r.DateOfBirth)
		if err != nil {
			return model.SearchQuery{}, &model.ValidationError{Field: "date_of_birth", Message: "must be an ISO 8601 date (YYYY-MM-DD)"}
		}
	}
	return model.SearchQuery{
		Kind:                model.QueryByName,
		FirstName:           r.FirstName,
		LastName:            r.LastName,
		MiddleName:          r.MiddleName,
		DateOfBirth:         dob,
		CountryOfBirth:      r.CountryOfBirth,
		Language:            languageOrDefault(r.Language),
		Fuzzy:               r.Fuzzy,
		ConfidenceThreshold: r.ConfidenceThreshold,
		DateToleranceDays:   r.DateToleranceDays,
	}, nil
}

// ToQuery converts a SearchByAlienNumberRequest.
func (r SearchByAlienNumberRequest) ToQuery() (model.SearchQuery, error) {
	return model.SearchQuery{
		Kind:        model.QueryByAlienNumber,
		AlienNumber: r.AlienNumber,
		Language:    languageOrDefault(r.Language),
	}, nil
}

// ToQuery converts a SearchByFacilityRequest.
func (r SearchByFacilityRequest) ToQuery() (model.SearchQuery, error) {
	return model.SearchQuery{
		Kind:         model.QueryByFacility,
		FacilityName: r.FacilityName,
		City:         r.City,
		State:        r.State,
		ZipCode:      r.ZipCode,
		FacilityType: r.FacilityType,
		ActiveOnly:   r.ActiveOnly,
	}, nil
}

func languageOrDefault(lang string) model.Language {
	if lang == "" {
		return model.LanguageEN
	}
	return model.Language(lang)
}

// DecodeBulkItem converts one element of BulkSearchRequest.Searches into a
// model.SearchQuery by inspecting which identifying fields are present,
// mirroring the dispatch a JSON-RPC transport would otherwise do by
// looking at which operation name wraps each item.
func DecodeBulkItem(raw map[string]any) (model.SearchQuery, error) {
	str := func(k string) string {
		v, _ := raw[k].(string)
		return v
	}
	switch {
	case str("alien_number") != "":
		return SearchByAlienNumberRequest{
			AlienNumber: str("alien_number"),
			Language:    str("language"),
		}.ToQuery()
	case str("first_name") != "" || str("last_name") != "":
		fuzzy, _ := raw["fuzzy"].(bool)
		threshold, _ := raw["confidence_threshold"].(float64)
		toleranceF, _ := raw["date_tolerance_days"].(float64)
		return SearchByNameRequest{
			FirstName:           str("first_name"),
			LastName:            str("last_name"),
			MiddleName:          str("middle_name"),
			DateOfBirth:         str("date_of_birth"),
			CountryOfBirth:      str("country_of_birth"),
			Language:            str("language"),
			Fuzzy:               fuzzy,
			ConfidenceThreshold: threshold,
			DateToleranceDays:   int(toleranceF),
		}.ToQuery()
	case str("facility_name") != "" || str("city") != "" || str("zip_code") != "":
		activeOnly, _ := raw["active_only"].(bool)
		return SearchByFacilityRequest{
			FacilityName: str("facility_name"),
			City:         str("city"),
			State:        str("state"),
			ZipCode:      str("zip_code"),
			FacilityType: str("facility_type"),
			ActiveOnly:   activeOnly,
		}.ToQuery()
	default:
		return model.SearchQuery{}, &model.ValidationError{Field: "searches", Message: "each bulk item must identify a search by name, alien_number, or facility"}
	}
}
