package orchestrator

import (
	"regexp"
	"strings"
	"time"

	"github.com/icelocator/locator-core/internal/fuzzy"
	"github.com/icelocator/locator-core/pkg/model"
	"github.com/icelocator/locator-core/pkg/textnorm"
)

var (
	alienNumberToken = regexp.MustCompile(`(?i)\bA?\d{8,9}\b`)
	isoDateToken     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	usDateToken      = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
)

// naturalQueryFillers are words stripped from the name fragment before
// splitting it into first/middle/last, so phrasing like "born in" or "dob"
// doesn't get mistaken for part of someone's name.
var naturalQueryFillers = map[string]bool{
	"born": true, "on": true, "in": true, "from": true, "dob": true,
	"date": true, "of": true, "birth": true, "the": true, "a": true,
	"alien": true, "number": true, "find": true, "search": true,
	"for": true, "who": true, "was": true,
}

// ParseNaturalQuery extracts a structured SearchQuery from free text using
// the same heuristics the upstream form itself assumes a human would
// follow: an alien-number-shaped token takes priority over everything else,
// otherwise the first recognizable date becomes date-of-birth, a known
// country mention becomes country-of-birth, and the remaining non-filler
// words become the name. It never calls Search; the caller decides whether
// to execute the parsed query.
func ParseNaturalQuery(text string, language model.Language) (model.SearchQuery, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return model.SearchQuery{}, &model.ValidationError{Field: "query", Message: "query text is required"}
	}

	if lang := language; lang != "" && lang != model.LanguageEN && lang != model.LanguageES {
		return model.SearchQuery{}, &model.ValidationError{Field: "language", Message: "language must be en or es"}
	}

	folded := textnorm.FoldLower(trimmed)

	if m := alienNumberToken.FindString(folded); m != "" && looksLikeBareAlienNumber(folded, m) {
		q := model.SearchQuery{
			Kind:        model.QueryByAlienNumber,
			AlienNumber: m,
			Language:    language,
		}
		if err := q.Validate(); err != nil {
			return model.SearchQuery{}, err
		}
		return q, nil
	}

	remaining := folded
	dob, remaining := extractDate(remaining)
	country, remaining := extractCountry(remaining)
	first, middle, last := extractName(remaining)

	q := model.SearchQuery{
		Kind:           model.QueryByName,
		FirstName:      first,
		MiddleName:     middle,
		LastName:       last,
		DateOfBirth:    dob,
		CountryOfBirth: country,
		Language:       language,
	}
	if err := q.Validate(); err != nil {
		return model.SearchQuery{}, err
	}
	return q, nil
}

// looksLikeBareAlienNumber guards against misreading an 8-9 digit date
// fragment (already consumed by extractDate, but text order isn't
// guaranteed) as an alien number; it requires the token not be immediately
// adjacent to a "-" or "/" date separator.
func looksLikeBareAlienNumber(text, token string) bool {
	idx := strings.Index(text, token)
	if idx < 0 {
		return true
	}
	before := idx - 1
	after := idx + len(token)
	if before >= 0 && (text[before] == '-' || text[before] == '/') {
		return false
	}
	if after < len(text) && (text[after] == '-' || text[after] == '/') {
		return false
	}
	return true
}

func extractDate(text string) (time.Time, string) {
	if m := isoDateToken.FindStringSubmatchIndex(text); m != nil {
		if t, err := time.Parse("2006-01-02", text[m[0]:m[1]]); err == nil {
			return t, text[:m[0]] + " " + text[m[1]:]
		}
	}
	if m := usDateToken.FindStringSubmatchIndex(text); m != nil {
		if t, err := time.Parse("1/2/2006", text[m[0]:m[1]]); err == nil {
			return t, text[:m[0]] + " " + text[m[1]:]
		}
	}
	return time.Time{}, text
}

// extractCountry operates on already-folded (lowercased, diacritic-stripped)
// text so alias byte offsets line up with the text being sliced.
func extractCountry(folded string) (string, string) {
	aliases := fuzzy.CountryAliases()
	var best string
	var bestCanon string
	for alias, canon := range aliases {
		if !strings.Contains(folded, alias) {
			continue
		}
		if len(alias) > len(best) {
			best = alias
			bestCanon = canon
		}
	}
	if best == "" {
		return "", folded
	}
	idx := strings.Index(folded, best)
	return bestCanon, folded[:idx] + " " + folded[idx+len(best):]
}

func extractName(text string) (first, middle, last string) {
	fields := strings.Fields(text)
	var words []string
	for _, f := range fields {
		cleaned := strings.Trim(f, ".,;:")
		lower := strings.ToLower(cleaned)
		if cleaned == "" || naturalQueryFillers[lower] {
			continue
		}
		words = append(words, cleaned)
	}

	switch len(words) {
	case 0:
		return "", "", ""
	case 1:
		return words[0], "", ""
	case 2:
		return words[0], "", words[1]
	default:
		return words[0], strings.Join(words[1:len(words)-1], " "), words[len(words)-1]
	}
}
