// Package obfuscate implements the Request Obfuscator: per-request header
// assembly with a session-stable browser identity and per-request-varying
// secondary features, against content-based fingerprints. Header order is
// not varied: headers are returned as an http.Header map, whose wire order
// net/http fixes on its own.
package obfuscate

import (
	"math/rand"
	"net/http"
	"strings"
	"sync"
)

// RequestKind mirrors the pipeline's request phases, since header shape
// differs slightly by phase (e.g. a submit carries Origin/Referer, a form
// fetch does not).
type RequestKind string

const (
	KindFormFetch  RequestKind = "form_fetch"
	KindFormSubmit RequestKind = "form_submit"
	KindNavigation RequestKind = "navigation"
)

// Identity is the (User-Agent, platform hint, primary Accept-Language)
// triple that must stay stable per session.
type Identity struct {
	UserAgent       string
	PlatformHint    string
	PrimaryLanguage string
}

// Obfuscator builds outbound request headers. It holds no session state
// itself; callers keep an Identity on their SessionState and pass it back
// in on every call so the UA/platform/language triple never drifts
// mid-session. Safe for concurrent use across sessions.
type Obfuscator struct {
	userAgents []string

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds an Obfuscator drawing User-Agents from the configured pool
// (config.HTTPConfig.UserAgents).
func New(userAgents []string, seed int64) *Obfuscator {
	if len(userAgents) == 0 {
		userAgents = []string{"Mozilla/5.0 (compatible)"}
	}
	return &Obfuscator{userAgents: userAgents, rng: rand.New(rand.NewSource(seed))}
}

// NewIdentity picks a fresh, session-stable identity. Called once per
// session, never per request.
func (o *Obfuscator) NewIdentity() Identity {
	o.mu.Lock()
	defer o.mu.Unlock()
	ua := o.userAgents[o.rng.Intn(len(o.userAgents))]
	return Identity{
		UserAgent:       ua,
		PlatformHint:    platformHintFor(ua),
		PrimaryLanguage: primaryLanguageFor(o.rng),
	}
}

// Prepared is the per-request output: the assembled headers. It carries no
// delay; the coordinator takes the pre-request delay from the behavior
// simulator.
type Prepared struct {
	Headers http.Header
}

// Obfuscate builds headers for one outbound request. The session's stable
// Identity anchors User-Agent/Accept-Language-primary; optional header
// presence and Accept-Language secondary locales are randomized per call.
// Header order is not randomized.
func (o *Obfuscator) Obfuscate(identity Identity, kind RequestKind) Prepared {
	o.mu.Lock()
	defer o.mu.Unlock()

	h := http.Header{}
	h.Set("User-Agent", identity.UserAgent)
	h.Set("Accept-Language", acceptLanguageFor(identity.PrimaryLanguage, o.rng))
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	// Independent-probability optional headers; never all-on, never
	// all-off. Re-roll until the set is neither full nor empty when
	// there's more than one candidate.
	optional := []struct {
		name  string
		value string
	}{
		{"DNT", "1"},
		{"Cache-Control", "max-age=0"},
		{"Pragma", "no-cache"},
	}
	for {
		included := 0
		choice := make([]bool, len(optional))
		for i := range optional {
			choice[i] = o.rng.Float64() < 0.5
			if choice[i] {
				included++
			}
		}
		if included > 0 && included < len(optional) {
			for i, c := range choice {
				if c {
					h.Set(optional[i].name, optional[i].value)
				}
			}
			break
		}
	}

	// Origin/Referer for a submit are filled by the pipeline once the form
	// URL is known; the obfuscator only owns identity/fingerprint headers.
	_ = kind

	return Prepared{Headers: h}
}

func platformHintFor(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "windows"
	case strings.Contains(ua, "Macintosh"):
		return "macos"
	case strings.Contains(ua, "Linux"), strings.Contains(ua, "X11"):
		return "linux"
	default:
		return "unknown"
	}
}

var secondaryLocales = map[string][]string{
	"en-US": {"en;q=0.9", "en-GB;q=0.7"},
	"es-MX": {"es;q=0.9", "en;q=0.6"},
	"es-ES": {"es;q=0.9", "en-US;q=0.6"},
}

func primaryLanguageFor(rng *rand.Rand) string {
	candidates := []string{"en-US", "es-MX", "es-ES"}
	return candidates[rng.Intn(len(candidates))]
}

// acceptLanguageFor builds a 1-3 locale Accept-Language value with natural
// decreasing q-values, occasionally including a regional dialect.
func acceptLanguageFor(primary string, rng *rand.Rand) string {
	parts := []string{primary}
	secondaries := secondaryLocales[primary]
	n := rng.Intn(len(secondaries) + 1) // 0..len secondaries included
	for i := 0; i < n; i++ {
		parts = append(parts, secondaries[i])
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "," + p
	}
	return out
}
