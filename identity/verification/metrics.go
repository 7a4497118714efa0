// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package verification

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Process-wide verification counters. These are relaxed atomics shared
// by every cache instance in the process; they never reset.
var (
	attempts atomic.Uint64
	hits     atomic.Uint64
	failures atomic.Uint64
)

// AttemptCount returns the total verification attempts in this
// process.
func AttemptCount() uint64 { return attempts.Load() }

// CacheHitCount returns the total verification cache hits in this
// process.
func CacheHitCount() uint64 { return hits.Load() }

// FailureCount returns the total verification failures in this
// process.
func FailureCount() uint64 { return failures.Load() }

// RegisterMetrics exposes the process-wide counters on a prometheus
// registry.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []struct {
		name string
		help string
		read func() uint64
	}{
		{"zhtp_identity_verification_attempts_total", "Total identity verification attempts", AttemptCount},
		{"zhtp_identity_verification_cache_hits_total", "Total verification cache hits", CacheHitCount},
		{"zhtp_identity_verification_failures_total", "Total verification failures", FailureCount},
	} {
		read := c.read
		if err := reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: c.name,
			Help: c.help,
		}, func() float64 { return float64(read()) })); err != nil {
			return err
		}
	}
	return nil
}
