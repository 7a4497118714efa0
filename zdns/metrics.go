// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package zdns

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds resolver counters. Counters are relaxed atomics; they
// are updated inside and outside the cache lock interchangeably.
type Metrics struct {
	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
	negativeHits    atomic.Uint64
	registryLookups atomic.Uint64
	expiredEntries  atomic.Uint64
	invalidations   atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of resolver counters.
type MetricsSnapshot struct {
	CacheHits       uint64
	CacheMisses     uint64
	NegativeHits    uint64
	RegistryLookups uint64
	ExpiredEntries  uint64
	Invalidations   uint64
}

// HitRatio returns cache hits over total lookups.
func (m MetricsSnapshot) HitRatio() float64 {
	total := m.CacheHits + m.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(m.CacheHits) / float64(total)
}

func (m *Metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		CacheHits:       m.cacheHits.Load(),
		CacheMisses:     m.cacheMisses.Load(),
		NegativeHits:    m.negativeHits.Load(),
		RegistryLookups: m.registryLookups.Load(),
		ExpiredEntries:  m.expiredEntries.Load(),
		Invalidations:   m.invalidations.Load(),
	}
}

// RegisterMetrics exposes resolver counters on a prometheus registry.
func (r *Resolver) RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []struct {
		name string
		help string
		read func() uint64
	}{
		{"zhtp_zdns_cache_hits_total", "Resolver cache hits", r.metrics.cacheHits.Load},
		{"zhtp_zdns_cache_misses_total", "Resolver cache misses", r.metrics.cacheMisses.Load},
		{"zhtp_zdns_negative_hits_total", "Negative cache hits", r.metrics.negativeHits.Load},
		{"zhtp_zdns_registry_lookups_total", "Registry lookups", r.metrics.registryLookups.Load},
		{"zhtp_zdns_expired_entries_total", "Expired cache entries encountered", r.metrics.expiredEntries.Load},
		{"zhtp_zdns_invalidations_total", "Cache invalidations", r.metrics.invalidations.Load},
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
