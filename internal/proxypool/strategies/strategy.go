// Package strategies implements proxy-handle scoring for the Proxy Pool
// Manager: a small Strategy interface so the pool can be extended with new
// scoring formulas without touching its acquire/release control flow.
package strategies

import (
	"time"

	"github.com/icelocator/locator-core/pkg/model"
)

// Strategy scores a candidate ProxyHandle for selection. Higher is better.
type Strategy interface {
	Score(h *model.ProxyHandle, now time.Time) float64
	Name() string
}

// WeightedScoreStrategy implements the composite score:
//
//	0.5*success_rate + 0.2*reputation + 0.2*(1-normalized_latency) + 0.1*recency_bonus
//
// plus a +0.1 flat bonus for residential kind and a -0.1 penalty for
// handles used within recencyPenaltyWindow (load-spreading).
type WeightedScoreStrategy struct {
	// MaxLatency normalizes AverageLatency into [0,1]; latencies at or
	// above this are treated as maximally slow.
	MaxLatency time.Duration

	// RecencyPenaltyWindow is the "used within the last N seconds" window
	// that triggers the recency penalty.
	RecencyPenaltyWindow time.Duration
}

// NewWeightedScoreStrategy returns the strategy with the documented
// defaults: a 2s latency ceiling and a 10s recency-penalty window.
func NewWeightedScoreStrategy() *WeightedScoreStrategy {
	return &WeightedScoreStrategy{
		MaxLatency:           2 * time.Second,
		RecencyPenaltyWindow: 10 * time.Second,
	}
}

func (s *WeightedScoreStrategy) Name() string { return "weighted_score" }

func (s *WeightedScoreStrategy) Score(h *model.ProxyHandle, now time.Time) float64 {
	successRate := h.SuccessRate()
	reputation := h.Reputation

	normalizedLatency := 0.0
	if s.MaxLatency > 0 {
		normalizedLatency = float64(h.AverageLatency) / float64(s.MaxLatency)
		if normalizedLatency > 1 {
			normalizedLatency = 1
		}
	}

	recencyBonus := 1.0
	if !h.LastUsedAt.IsZero() {
		// Fresher handles (longer since last use) score closer to 1; a
		// handle used this instant scores closer to 0.
		elapsed := now.Sub(h.LastUsedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		recencyBonus = elapsed.Seconds() / (elapsed.Seconds() + 30)
	}

	score := 0.5*successRate + 0.2*reputation + 0.2*(1-normalizedLatency) + 0.1*recencyBonus

	if h.Kind == model.ProxyResidential {
		score += 0.1
	}

	if s.RecencyPenaltyWindow > 0 && !h.LastUsedAt.IsZero() && now.Sub(h.LastUsedAt) < s.RecencyPenaltyWindow {
		score -= 0.1
	}

	if score < 0 {
		score = 0
	}
	if score > 1.3 {
		score = 1.3
	}
	return score
}
