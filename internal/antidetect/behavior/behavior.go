// Package behavior implements the Behavior Simulator: per-session
// inter-request delay computation that mimics reading, typing, and
// navigation pacing, with cumulative fatigue and an error-penalty jitter,
// built around a rolling-window accumulator applied to session fatigue.
package behavior

import (
	"math/rand"
	"sync"
	"time"

	"github.com/icelocator/locator-core/pkg/model"
)

// RequestKind selects the per-phase delay multiplier.
type RequestKind string

const (
	KindFormFetch  RequestKind = "form_fetch"
	KindFormSubmit RequestKind = "form_submit"
	KindNavigation RequestKind = "navigation"
	KindRetry      RequestKind = "retry"
)

type profile struct {
	base     time.Duration
	variance time.Duration
}

var profiles = map[string]profile{
	"fast":   {base: 1 * time.Second, variance: 500 * time.Millisecond},
	"normal": {base: 2 * time.Second, variance: 1 * time.Second},
	"slow":   {base: 4 * time.Second, variance: 2 * time.Second},
}

var kindMultiplier = map[RequestKind]float64{
	KindFormFetch:  0.8,
	KindFormSubmit: 1.4,
	KindNavigation: 1.0,
	KindRetry:      1.8,
}

const (
	fatigueEveryN = 7
	fatigueStep   = 0.10
	fatigueCap    = 3.0
	minDelay      = 100 * time.Millisecond
	maxDelay      = 30 * time.Second
)

// Simulator computes delays; it is stateless across sessions, reading and
// mutating the BehaviorProfile threaded through model.SessionState. Safe
// for concurrent use across sessions (the profile itself is single-owner).
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func New(seed int64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewSource(seed))}
}

// NewProfile initializes a fresh BehaviorProfile for the given timing
// profile name ("fast"|"normal"|"slow"), defaulting to "normal".
func NewProfile(timingProfile string) *model.BehaviorProfile {
	if _, ok := profiles[timingProfile]; !ok {
		timingProfile = "normal"
	}
	return &model.BehaviorProfile{
		TimingProfile:      timingProfile,
		TypingCadence:      8.0, // chars/sec, a relaxed hunt-and-peck-to-fluent pace
		BaseReadingDelay:   profiles[timingProfile].base,
		FatigueCoefficient: 1.0,
		AttentionSpan:      fatigueEveryN,
	}
}

// DelayFor computes the inter-request delay before the next request,
// applying base sample, request-kind multiplier, fatigue, and
// error-penalty adjustments in order, and advances the profile's
// fatigue/consecutive-request state.
func (s *Simulator) DelayFor(p *model.BehaviorProfile, kind RequestKind) time.Duration {
	prof, ok := profiles[p.TimingProfile]
	if !ok {
		prof = profiles["normal"]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. base sample
	jitter := (s.rng.Float64()*2 - 1) * float64(prof.variance)
	d := float64(prof.base) + jitter

	// 2. request-kind multiplier
	if mult, ok := kindMultiplier[kind]; ok {
		d *= mult
	}

	// 3. consecutive-request fatigue, capped at 3x base
	p.ConsecutiveRequests++
	if p.ConsecutiveRequests%fatigueEveryN == 0 {
		p.FatigueCoefficient += fatigueStep
		if p.FatigueCoefficient > fatigueCap {
			p.FatigueCoefficient = fatigueCap
		}
	}
	d *= p.FatigueCoefficient

	// 4. error penalty
	if p.LastRequestFailed {
		d += (1.0 + s.rng.Float64()*2.0) * float64(time.Second)
	}

	// 5. clamp
	result := time.Duration(d)
	if result < minDelay {
		result = minDelay
	}
	if result > maxDelay {
		result = maxDelay
	}
	return result
}

// Observe records whether the just-completed request failed, feeding the
// next DelayFor's error-penalty adjustment.
func Observe(p *model.BehaviorProfile, failed bool) {
	p.LastRequestFailed = failed
}
