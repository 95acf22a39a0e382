package pipeline

import (
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/icelocator/locator-core/pkg/model"
)

// Body-shape signals that drive classification: a flat rule list over the
// one upstream's known page shapes. Markers are matched case-insensitively
// against the raw response body.
var (
	noResultsMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)no\s+results?\s+found`),
		regexp.MustCompile(`(?i)no\s+records?\s+(were\s+)?found`),
		regexp.MustCompile(`(?i)no\s+match(es)?\s+found`),
	}
	captchaMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)captcha`),
		regexp.MustCompile(`(?i)are\s+you\s+a\s+human`),
		regexp.MustCompile(`(?i)verify\s+you\s+are\s+not\s+a\s+robot`),
	}
	resultsTableMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<table[^>]*class="[^"]*results[^"]*"`),
		regexp.MustCompile(`(?i)alien\s*(registration)?\s*number`),
	}
)

// ClassifyResponse is a deterministic function of a status code and
// response body: status code + body shape + presence of specific tokens.
// It never depends on request history; the coordinator's Observe call is
// what turns a sequence of classifications into a threat-level trajectory.
func ClassifyResponse(statusCode int, body string) model.ResponseClass {
	if statusCode == http.StatusForbidden {
		if matchesAny(captchaMarkers, body) {
			return model.ClassCaptcha
		}
		return model.ClassBlocked
	}
	if statusCode == http.StatusTooManyRequests {
		return model.ClassRateLimited
	}
	if statusCode >= 500 {
		return model.ClassUnknown
	}

	if matchesAny(captchaMarkers, body) {
		return model.ClassCaptcha
	}
	if matchesAny(resultsTableMarkers, body) {
		return model.ClassResults
	}
	if matchesAny(noResultsMarkers, body) {
		return model.ClassNotFound
	}
	return model.ClassUnknown
}

func matchesAny(patterns []*regexp.Regexp, body string) bool {
	for _, p := range patterns {
		if p.MatchString(body) {
			return true
		}
	}
	return false
}

// ReadBody reads r fully and returns it as a string with surrounding
// whitespace trimmed. It applies no size limit; kept as a named helper so
// callers don't scatter io.ReadAll/string conversions.
func ReadBody(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
