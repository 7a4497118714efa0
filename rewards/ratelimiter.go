// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package rewards

import (
	"fmt"
	"sync"
	"time"
)

// slidingWindow is the span the hourly quota is counted over.
const slidingWindow = time.Hour

// CooldownActiveError is returned while a claimer is inside its
// cooldown period.
type CooldownActiveError struct {
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("Cooldown active: %d seconds remaining", int64(e.Remaining.Seconds()))
}

// QuotaExceededError is returned when a claimer has exhausted its
// hourly quota.
type QuotaExceededError struct {
	Count int
	Max   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Rate limit exceeded: %d claims in last hour (max: %d)", e.Count, e.Max)
}

// RateLimiterConfig bounds claim frequency.
type RateLimiterConfig struct {
	CooldownPeriod   time.Duration
	MaxClaimsPerHour int
}

// DefaultRateLimiterConfig returns the rewards-config defaults.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		CooldownPeriod:   10 * time.Minute,
		MaxClaimsPerHour: 6,
	}
}

// claimerState tracks one claimer's history.
type claimerState struct {
	lastClaim time.Time
	claims    []time.Time
}

// RateLimiter enforces a per-claimer cooldown plus a sliding-hour
// quota. The two reward processors share one limiter but have fully
// independent counters.
type RateLimiter struct {
	mu       sync.Mutex
	config   RateLimiterConfig
	claimers map[string]*claimerState
}

// NewRateLimiter returns a RateLimiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		config:   config,
		claimers: make(map[string]*claimerState),
	}
}

// CanClaim reports whether a claim by pid is currently allowed. The
// cooldown is checked first, then the hourly window (purged before
// counting).
func (l *RateLimiter) CanClaim(pid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	state, ok := l.claimers[pid]
	if !ok {
		return nil
	}

	if !state.lastClaim.IsZero() {
		if elapsed := now.Sub(state.lastClaim); elapsed < l.config.CooldownPeriod {
			return &CooldownActiveError{Remaining: l.config.CooldownPeriod - elapsed}
		}
	}

	state.claims = purge(state.claims, now.Add(-slidingWindow))
	if len(state.claims) >= l.config.MaxClaimsPerHour {
		return &QuotaExceededError{Count: len(state.claims), Max: l.config.MaxClaimsPerHour}
	}
	return nil
}

// RecordClaim appends a claim by pid to its sliding window and starts
// its cooldown.
func (l *RateLimiter) RecordClaim(pid string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	state, ok := l.claimers[pid]
	if !ok {
		state = &claimerState{}
		l.claimers[pid] = state
	}
	state.lastClaim = now
	state.claims = append(state.claims, now)
}

// RateLimitStats describes one claimer's current budget.
type RateLimitStats struct {
	ClaimsInLastHour  int
	CooldownRemaining *time.Duration
	MaxClaimsPerHour  int
}

// Stats returns the current budget for pid.
func (l *RateLimiter) Stats(pid string) RateLimitStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := RateLimitStats{MaxClaimsPerHour: l.config.MaxClaimsPerHour}
	state, ok := l.claimers[pid]
	if !ok {
		return stats
	}

	now := time.Now()
	cutoff := now.Add(-slidingWindow)
	for _, t := range state.claims {
		if t.After(cutoff) {
			stats.ClaimsInLastHour++
		}
	}
	if !state.lastClaim.IsZero() {
		if elapsed := now.Sub(state.lastClaim); elapsed < l.config.CooldownPeriod {
			remaining := l.config.CooldownPeriod - elapsed
			stats.CooldownRemaining = &remaining
		}
	}
	return stats
}

// purge drops timestamps at or before cutoff.
func purge(claims []time.Time, cutoff time.Time) []time.Time {
	kept := claims[:0]
	for _, t := range claims {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
