package model

import "time"

// ProxyKind is the transport family of a proxy endpoint.
type ProxyKind string

const (
	ProxyResidential ProxyKind = "residential"
	ProxyDatacenter  ProxyKind = "datacenter"
	ProxySOCKS5      ProxyKind = "socks5"
)

// ProxyOutcome is reported back to the pool on Release.
type ProxyOutcome string

const (
	OutcomeSuccess ProxyOutcome = "success"
	OutcomeFailure ProxyOutcome = "failure"
	OutcomeBlocked ProxyOutcome = "blocked"
)

// ProxyHandle is a borrowed reference to a pool-owned proxy descriptor.
// The pool is the only writer of the rolling statistics; callers mutate it
// only indirectly via Release/ReportBlock.
type ProxyHandle struct {
	ID       string
	Endpoint string // scheme + host + port, credentials kept out-of-band
	Username string
	Password string
	Kind     ProxyKind
	Region   string

	Reputation            float64 // [0,1], provider-reported or learned
	SuccessCount          int64
	FailureCount          int64
	AverageLatency        time.Duration
	ConsecutiveFailures   int
	LastUsedAt            time.Time
	RequestsSinceRotation int

	Quarantined        bool
	QuarantinedAt      time.Time
	QuarantineDuration time.Duration
}

// SuccessRate returns the rolling success rate, defaulting to 1.0
// (optimistic) before any requests have been observed.
func (h *ProxyHandle) SuccessRate() float64 {
	total := h.SuccessCount + h.FailureCount
	if total == 0 {
		return 1.0
	}
	return float64(h.SuccessCount) / float64(total)
}

// ShouldQuarantine reports whether the invariant "consecutive_failures >= 3
// implies quarantined" requires quarantining this handle now.
func (h *ProxyHandle) ShouldQuarantine() bool {
	return h.ConsecutiveFailures >= 3
}

// QuarantineExpired reports whether the backoff window has elapsed and the
// handle is eligible for a health recheck.
func (h *ProxyHandle) QuarantineExpired(now time.Time) bool {
	if !h.Quarantined {
		return false
	}
	return now.After(h.QuarantinedAt.Add(h.QuarantineDuration))
}

// BehaviorProfile is owned by the behavior simulator, one per session.
type BehaviorProfile struct {
	TimingProfile       string // fast | normal | slow
	TypingCadence       float64
	BaseReadingDelay    time.Duration
	FatigueCoefficient  float64 // monotonically nondecreasing within a session
	AttentionSpan       int
	ConsecutiveRequests int
	LastRequestFailed   bool
}
