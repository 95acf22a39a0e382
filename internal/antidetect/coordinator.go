// Package antidetect composes the Proxy Pool Manager, Request Obfuscator,
// Behavior Simulator, and Traffic Distributor into the Anti-Detection
// Coordinator: a single owned value with an explicit lifecycle, exposing
// prepare/observe so sessions never hold a back-reference into the
// coordinator.
package antidetect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/icelocator/locator-core/internal/antidetect/behavior"
	"github.com/icelocator/locator-core/internal/antidetect/obfuscate"
	"github.com/icelocator/locator-core/internal/antidetect/traffic"
	"github.com/icelocator/locator-core/internal/proxypool"
	"github.com/icelocator/locator-core/pkg/model"
)

// RequestKind is the single request-kind vocabulary shared across the
// coordinator's sub-components, translated into each sub-component's own
// kind type at the call site.
type RequestKind string

const (
	KindFormFetch  RequestKind = "form_fetch"
	KindFormSubmit RequestKind = "form_submit"
	KindNavigation RequestKind = "navigation"
	KindRetry      RequestKind = "retry"
)

// ResponseClassification is what Observe consumes to drive the threat
// level state machine.
type ResponseClassification struct {
	StatusCode int
	Class      model.ResponseClass
}

// Prepared is prepare's return value: everything the pipeline needs to
// issue the next HTTP request.
type Prepared struct {
	Proxy    *model.ProxyHandle // nil if direct-connect
	Headers  map[string][]string
	PreDelay time.Duration
}

// perSessionState is per-session coordinator bookkeeping, keyed by
// session ID; never stored inside model.SessionState itself so the
// coordinator remains the sole owner of threat-level transitions.
type perSessionState struct {
	identity          obfuscate.Identity
	threatLevel       model.ThreatLevel
	consecutiveGreen  int
	consecutiveOrange int
	rotateUANext      bool
}

// Coordinator is the single owned anti-detection value for a process.
type Coordinator struct {
	pool       *proxypool.Manager
	obfuscator *obfuscate.Obfuscator
	behavior   *behavior.Simulator
	traffic    *traffic.Distributor

	defaultProfile string
	proxyEnabled   bool

	mu       sync.Mutex
	sessions map[string]*perSessionState

	log *slog.Logger
}

// New builds the Coordinator from its four composed sub-components.
func New(pool *proxypool.Manager, obfuscator *obfuscate.Obfuscator, sim *behavior.Simulator, dist *traffic.Distributor, defaultProfile string, proxyEnabled bool, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		pool:           pool,
		obfuscator:     obfuscator,
		behavior:       sim,
		traffic:        dist,
		defaultProfile: defaultProfile,
		proxyEnabled:   proxyEnabled,
		sessions:       make(map[string]*perSessionState),
		log:            log,
	}
}

// InitSession registers a new session with the coordinator. The session's
// stable identity is kept in the coordinator's own per-session state; the
// initial behavior profile and a green threat level are stored onto the
// caller's SessionState.
func (c *Coordinator) InitSession(session *model.SessionState) {
	st := &perSessionState{
		identity:    c.obfuscator.NewIdentity(),
		threatLevel: model.ThreatGreen,
	}
	c.mu.Lock()
	c.sessions[session.ID] = st
	c.mu.Unlock()
	session.Behavior = behavior.NewProfile(c.defaultProfile)
	session.ThreatLevel = model.ThreatGreen
}

// Prepare composes proxy selection, header assembly, and delay
// computation into a single per-request policy.
func (c *Coordinator) Prepare(ctx context.Context, session *model.SessionState, kind RequestKind, priority traffic.Priority) (Prepared, error) {
	st := c.sessionState(session)

	if err := c.traffic.AwaitAdmission(ctx, priority); err != nil {
		return Prepared{}, err
	}

	// Threat escalation tightens proxy policy, but only when the pool is
	// active at all: with proxy.enabled=false the pipeline always goes
	// direct, whatever the threat level.
	var proxyHandle *model.ProxyHandle
	needProxy := c.proxyEnabled
	kindPref := proxypool.AnyKind
	if c.proxyEnabled {
		switch st.threatLevel {
		case model.ThreatOrange, model.ThreatRed:
			kindPref = proxypool.PreferResidential
		}
	}

	if needProxy {
		h, err := c.pool.Acquire(kindPref)
		if err != nil {
			return Prepared{}, err
		}
		proxyHandle = h
	}

	if st.rotateUANext {
		st.identity = c.obfuscator.NewIdentity()
		st.rotateUANext = false
	}

	obfKind := obfuscate.RequestKind(kind)
	prepared := c.obfuscator.Obfuscate(st.identity, obfKind)

	behKind := behavior.RequestKind(kind)
	delay := c.behavior.DelayFor(session.Behavior, behKind)
	if st.threatLevel == model.ThreatYellow {
		delay = time.Duration(float64(delay) * 1.5)
	}
	if st.threatLevel == model.ThreatOrange || st.threatLevel == model.ThreatRed {
		session.Behavior.TimingProfile = "slow"
	}

	return Prepared{
		Proxy:    proxyHandle,
		Headers:  prepared.Headers,
		PreDelay: delay,
	}, nil
}

// Observe is the only entry point that mutates the coordinator's
// per-session threat-level state.
func (c *Coordinator) Observe(session *model.SessionState, resp ResponseClassification) {
	st := c.sessionState(session)
	session.LastResponseClass = resp.Class

	isGreen := resp.Class == model.ClassResults || resp.Class == model.ClassNotFound
	// Rate limiting is pressure, not detection: it raises the threat floor
	// and slows the distributor, but never quarantines the proxy the way a
	// hard block does.
	isBlockedLike := resp.Class == model.ClassBlocked || resp.Class == model.ClassCaptcha ||
		resp.Class == model.ClassRateLimited ||
		(resp.StatusCode >= 400 && resp.StatusCode != 404)

	switch {
	case isGreen:
		st.consecutiveGreen++
		st.consecutiveOrange = 0
		const stepDownAfter = 3
		if st.consecutiveGreen >= stepDownAfter && st.threatLevel > model.ThreatGreen {
			st.threatLevel--
			st.consecutiveGreen = 0
		}
		c.traffic.ObserveSuccess()
	case resp.Class == model.ClassBlocked || resp.Class == model.ClassCaptcha:
		st.consecutiveGreen = 0
		if st.threatLevel < model.ThreatYellow {
			st.threatLevel = model.ThreatYellow
		}
		st.consecutiveOrange++
		if st.consecutiveOrange >= 2 {
			if st.threatLevel < model.ThreatOrange {
				st.threatLevel = model.ThreatOrange
			} else if st.threatLevel == model.ThreatOrange {
				st.threatLevel = model.ThreatRed
			}
			st.rotateUANext = true
		}
		c.traffic.ObserveBlocked()
		if resp.Class == model.ClassBlocked {
			var handle *model.ProxyHandle
			if session.Proxy != nil {
				handle = session.Proxy
			}
			if handle != nil {
				c.pool.ReportBlock(handle)
			}
		}
	case isBlockedLike:
		st.consecutiveGreen = 0
		if st.threatLevel < model.ThreatYellow {
			st.threatLevel = model.ThreatYellow
		}
		c.traffic.ObserveBlocked()
	}

	session.ThreatLevel = st.threatLevel
	c.log.Debug("anti-detection observation",
		"session", session.ID,
		"class", resp.Class,
		"threat_level", st.threatLevel.String(),
	)
}

// ReleaseSession drops a session's coordinator-side bookkeeping. Must be
// called on every orchestrator exit path (success, failure, or
// cancellation) to avoid leaking the sessions map.
func (c *Coordinator) ReleaseSession(sessionID string) {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
}

func (c *Coordinator) sessionState(session *model.SessionState) *perSessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.sessions[session.ID]
	if !ok {
		st = &perSessionState{
			identity:    c.obfuscator.NewIdentity(),
			threatLevel: session.ThreatLevel,
		}
		c.sessions[session.ID] = st
	}
	return st
}
