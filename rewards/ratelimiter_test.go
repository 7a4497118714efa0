// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package rewards

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHourlyQuota(t *testing.T) {
	require := require.New(t)

	l := NewRateLimiter(RateLimiterConfig{CooldownPeriod: 0, MaxClaimsPerHour: 3})

	// First three (check, record) pairs pass; the fourth hits the
	// quota with the exact counts.
	for i := 0; i < 3; i++ {
		require.NoError(l.CanClaim("r"))
		l.RecordClaim("r")
	}
	err := l.CanClaim("r")
	var quota *QuotaExceededError
	require.ErrorAs(err, &quota)
	require.Equal(3, quota.Count)
	require.Equal(3, quota.Max)
	require.Contains(err.Error(), "Rate limit exceeded: 3 claims in last hour (max: 3)")
}

func TestSingleClaimQuota(t *testing.T) {
	require := require.New(t)

	l := NewRateLimiter(RateLimiterConfig{CooldownPeriod: 0, MaxClaimsPerHour: 1})
	require.NoError(l.CanClaim("r"))
	l.RecordClaim("r")

	var quota *QuotaExceededError
	require.ErrorAs(l.CanClaim("r"), &quota)
}

func TestCooldown(t *testing.T) {
	require := require.New(t)

	l := NewRateLimiter(RateLimiterConfig{CooldownPeriod: 50 * time.Millisecond, MaxClaimsPerHour: 10})
	require.NoError(l.CanClaim("r"))
	l.RecordClaim("r")

	err := l.CanClaim("r")
	var cooldown *CooldownActiveError
	require.ErrorAs(err, &cooldown)
	require.Contains(err.Error(), "Cooldown active:")

	time.Sleep(60 * time.Millisecond)
	require.NoError(l.CanClaim("r"))
}

func TestClaimersAreIndependent(t *testing.T) {
	require := require.New(t)

	l := NewRateLimiter(RateLimiterConfig{CooldownPeriod: time.Hour, MaxClaimsPerHour: 1})
	l.RecordClaim(ProcessorRouting)

	// Routing is cooling down and over quota; storage is untouched.
	require.Error(l.CanClaim(ProcessorRouting))
	require.NoError(l.CanClaim(ProcessorStorage))
}

func TestStats(t *testing.T) {
	require := require.New(t)

	l := NewRateLimiter(RateLimiterConfig{CooldownPeriod: time.Minute, MaxClaimsPerHour: 6})

	stats := l.Stats("r")
	require.Zero(stats.ClaimsInLastHour)
	require.Nil(stats.CooldownRemaining)
	require.Equal(6, stats.MaxClaimsPerHour)

	l.RecordClaim("r")
	l.RecordClaim("r")

	stats = l.Stats("r")
	require.Equal(2, stats.ClaimsInLastHour)
	require.NotNil(stats.CooldownRemaining)
	require.Positive(*stats.CooldownRemaining)
}
