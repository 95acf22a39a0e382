// Package model defines the value types shared across the search core:
// queries, results, session state, proxy handles, behavior profiles, and
// cache entries.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// QueryKind identifies which identifying field a SearchQuery carries.
type QueryKind string

const (
	QueryByName        QueryKind = "byName"
	QueryByAlienNumber QueryKind = "byAlienNumber"
	QueryByFacility    QueryKind = "byFacility"
	QueryNatural       QueryKind = "natural"
)

// Language selects the upstream form language and the fuzzy matcher's
// diacritic-handling path.
type Language string

const (
	LanguageEN Language = "en"
	LanguageES Language = "es"
)

var alienNumberPattern = regexp.MustCompile(`(?i)^A?\d{8,9}$`)

// SearchQuery is the immutable, validated input to the orchestrator.
// Exactly one identifying field set is populated, matching Kind.
type SearchQuery struct {
	Kind QueryKind

	// byName fields
	FirstName      string
	LastName       string
	MiddleName     string
	DateOfBirth    time.Time
	CountryOfBirth string

	// byAlienNumber field
	AlienNumber string

	// byFacility fields
	FacilityName string
	City         string
	State        string
	ZipCode      string
	FacilityType string
	ActiveOnly   bool

	// natural-language field
	RawQuery string

	Language            Language
	Fuzzy               bool
	ConfidenceThreshold float64
	DateToleranceDays   int
}

// Validate checks the query's structural invariants. It never
// mutates the receiver; callers should call Normalize first if they want a
// canonicalized copy validated.
func (q *SearchQuery) Validate() error {
	switch q.Kind {
	case QueryByName:
		if strings.TrimSpace(q.FirstName) == "" {
			return &ValidationError{Field: "first_name", Message: "first name is required"}
		}
		if strings.TrimSpace(q.LastName) == "" {
			return &ValidationError{Field: "last_name", Message: "last name is required"}
		}
		if q.DateOfBirth.IsZero() {
			return &ValidationError{Field: "date_of_birth", Message: "date of birth must parse as a calendar date"}
		}
		if strings.TrimSpace(q.CountryOfBirth) == "" {
			return &ValidationError{Field: "country_of_birth", Message: "country of birth is required"}
		}
	case QueryByAlienNumber:
		if !alienNumberPattern.MatchString(strings.TrimSpace(q.AlienNumber)) {
			return &ValidationError{Field: "alien_number", Message: "alien number must match A?\\d{8,9}"}
		}
	case QueryByFacility:
		if strings.TrimSpace(q.FacilityName) == "" && strings.TrimSpace(q.ZipCode) == "" &&
			(strings.TrimSpace(q.City) == "" || strings.TrimSpace(q.State) == "") {
			return &ValidationError{Field: "facility", Message: "one of facility_name, zip_code, or {city,state} is required"}
		}
	case QueryNatural:
		if strings.TrimSpace(q.RawQuery) == "" {
			return &ValidationError{Field: "query", Message: "query text is required"}
		}
	default:
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown query kind %q", q.Kind)}
	}

	if q.Language != "" && q.Language != LanguageEN && q.Language != LanguageES {
		return &ValidationError{Field: "language", Message: "language must be en or es"}
	}
	if q.ConfidenceThreshold < 0 || q.ConfidenceThreshold > 1 {
		return &ValidationError{Field: "confidence_threshold", Message: "confidence_threshold must be in [0,1]"}
	}
	if q.DateToleranceDays < 0 {
		return &ValidationError{Field: "date_tolerance_days", Message: "date_tolerance_days must be >= 0"}
	}
	return nil
}

// NormalizedAlienNumber strips an optional leading "A"/"a" and returns the
// bare digit string, so "A12345678" and "12345678" compare equal.
func (q *SearchQuery) NormalizedAlienNumber() string {
	s := strings.TrimSpace(q.AlienNumber)
	s = strings.TrimPrefix(strings.ToUpper(s), "A")
	return s
}

// Normalize returns a copy with whitespace trimmed, the alien number
// reduced to its digits and Language defaulted to English. Letter case is
// left as given. Used before fingerprinting and before upstream submission.
func (q SearchQuery) Normalize() SearchQuery {
	n := q
	n.FirstName = strings.TrimSpace(q.FirstName)
	n.LastName = strings.TrimSpace(q.LastName)
	n.MiddleName = strings.TrimSpace(q.MiddleName)
	n.CountryOfBirth = strings.TrimSpace(q.CountryOfBirth)
	n.AlienNumber = q.NormalizedAlienNumber()
	n.FacilityName = strings.TrimSpace(q.FacilityName)
	n.City = strings.TrimSpace(q.City)
	n.State = strings.TrimSpace(q.State)
	n.ZipCode = strings.TrimSpace(q.ZipCode)
	n.RawQuery = strings.TrimSpace(q.RawQuery)
	if n.Language == "" {
		n.Language = LanguageEN
	}
	return n
}

// ValidationError reports a structural problem with a SearchQuery. It is
// the concrete type behind apierrors.KindValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
