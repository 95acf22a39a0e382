package model

import (
	"net/http/cookiejar"
	"time"
)

// ResponseClass is the deterministic classification of an upstream HTTP
// response, computed by internal/pipeline and fed into the anti-detection
// coordinator's Observe.
type ResponseClass string

const (
	ClassResults     ResponseClass = "results"
	ClassNotFound    ResponseClass = "not_found"
	ClassBlocked     ResponseClass = "blocked"
	ClassCaptcha     ResponseClass = "captcha"
	ClassRateLimited ResponseClass = "rate_limited"
	ClassUnknown     ResponseClass = "unknown"
)

// PipelineState is the request pipeline's current state-machine node.
type PipelineState string

const (
	StateInit          PipelineState = "init"
	StateFormFetched   PipelineState = "form_fetched"
	StateFormParsed    PipelineState = "form_parsed"
	StateSubmitted     PipelineState = "submitted"
	StateResults       PipelineState = "results"
	StateNotFoundState PipelineState = "not_found"
	StateBlocked       PipelineState = "blocked"
	StateCaptcha       PipelineState = "captcha"
)

// ThreatLevel is the anti-detection coordinator's ordinal summarizing
// recent block/CAPTCHA evidence.
type ThreatLevel int

const (
	ThreatGreen ThreatLevel = iota
	ThreatYellow
	ThreatOrange
	ThreatRed
)

func (t ThreatLevel) String() string {
	switch t {
	case ThreatGreen:
		return "green"
	case ThreatYellow:
		return "yellow"
	case ThreatOrange:
		return "orange"
	case ThreatRed:
		return "red"
	default:
		return "unknown"
	}
}

// SessionState is owned by the Session & Request Pipeline, one per active
// search attempt. Cookies and CSRF tokens never cross sessions.
type SessionState struct {
	ID string

	Jar *cookiejar.Jar

	CSRFToken     string
	CSRFExpiresAt time.Time

	Proxy *ProxyHandle

	ThreatLevel ThreatLevel

	RequestCount int
	StartedAt    time.Time

	LastResponseClass ResponseClass
	State             PipelineState

	// Behavior is owned by internal/antidetect/behavior; stored here so the
	// pipeline can thread it through prepare/observe calls without a
	// back-reference from the coordinator into the session.
	Behavior *BehaviorProfile
}

// NewSessionState creates a fresh session with an empty cookie jar.
func NewSessionState(id string) (*SessionState, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &SessionState{
		ID:          id,
		Jar:         jar,
		ThreatLevel: ThreatGreen,
		StartedAt:   time.Now(),
		State:       StateInit,
	}, nil
}
