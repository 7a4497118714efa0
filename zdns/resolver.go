// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package zdns resolves sovereign domains (.zhtp, .sov) to their Web4
// content records with an LRU cache, TTL-bounded freshness, and
// negative caching of not-found results.
package zdns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/luxfi/log"

	"github.com/zhtp/go-zhtp/contracts"
)

// Registry is the domain registry the resolver falls back to on cache
// misses. contracts.State satisfies it.
type Registry interface {
	LookupDomain(ctx context.Context, domain string) (contracts.DomainLookup, error)
}

// Resolver resolves Web4 domains with caching.
type Resolver struct {
	registry Registry
	config   Config
	log      log.Logger

	// One lock around the LRU; TTL checks may evict, so even reads
	// take the write path. Critical sections are cache-only and never
	// span registry I/O.
	mu    sync.RWMutex
	cache *lru.Cache[string, *cachedRecord]

	metrics Metrics
}

// NewResolver returns a Resolver over the given registry.
func NewResolver(registry Registry, config Config, logger log.Logger) (*Resolver, error) {
	size := config.CacheSize
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[string, *cachedRecord](size)
	if err != nil {
		return nil, fmt.Errorf("create resolver cache: %w", err)
	}
	logger.Info("zdns resolver initialized",
		"cache_size", size,
		"default_ttl", config.DefaultTTL,
		"negative_ttl", config.NegativeTTL)
	return &Resolver{
		registry: registry,
		config:   config,
		log:      logger,
		cache:    cache,
	}, nil
}

// ResolveWeb4 resolves a sovereign domain to its Web4 record, serving
// from cache when a fresh entry exists. Not-found results are cached
// negatively; registry failures are never cached.
func (r *Resolver) ResolveWeb4(ctx context.Context, domain string) (*Web4Record, error) {
	if !IsValidDomain(domain) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	now := time.Now()

	r.mu.Lock()
	if cached, ok := r.cache.Get(domain); ok {
		if !cached.isExpired(now) {
			record := cached.record
			if r.config.EnableMetrics {
				if record != nil {
					r.metrics.cacheHits.Add(1)
				} else {
					r.metrics.negativeHits.Add(1)
				}
			}
			r.mu.Unlock()
			if r.config.DebugCache {
				r.log.Debug("cache hit", "domain", domain, "negative", record == nil)
			}
			if record == nil {
				return nil, fmt.Errorf("%w: %s", ErrDomainNotFound, domain)
			}
			copied := *record
			return &copied, nil
		}
		if r.config.EnableMetrics {
			r.metrics.expiredEntries.Add(1)
		}
		if r.config.DebugCache {
			r.log.Debug("cache entry expired", "domain", domain)
		}
	}
	r.mu.Unlock()

	if r.config.EnableMetrics {
		r.metrics.cacheMisses.Add(1)
		r.metrics.registryLookups.Add(1)
	}

	record, err := r.resolveFromRegistry(ctx, domain, now)

	r.mu.Lock()
	switch {
	case err == nil:
		ttl := record.TTL
		if ttl <= 0 {
			ttl = r.config.DefaultTTL
		}
		if r.config.MaxTTL > 0 && ttl > r.config.MaxTTL {
			ttl = r.config.MaxTTL
		}
		r.cache.Add(domain, &cachedRecord{record: record, cachedAt: now, ttl: ttl})
		if r.config.DebugCache {
			r.log.Debug("cached positive result", "domain", domain, "ttl", ttl)
		}
	case errors.Is(err, ErrDomainNotFound):
		r.cache.Add(domain, &cachedRecord{cachedAt: now, ttl: r.config.NegativeTTL})
		if r.config.DebugCache {
			r.log.Debug("cached negative result", "domain", domain, "ttl", r.config.NegativeTTL)
		}
	default:
		// Expired and registry errors are not cached.
	}
	r.mu.Unlock()

	return record, err
}

// resolveFromRegistry performs an uncached registry lookup.
func (r *Resolver) resolveFromRegistry(ctx context.Context, domain string, now time.Time) (*Web4Record, error) {
	lookup, err := r.registry.LookupDomain(ctx, domain)
	if err != nil {
		r.log.Warn("registry lookup failed", "domain", domain, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrRegistry, err)
	}
	if !lookup.Found || lookup.Record == nil {
		return nil, fmt.Errorf("%w: %s", ErrDomainNotFound, domain)
	}
	if lookup.Record.IsExpired(now) {
		return nil, fmt.Errorf("%w: %s", ErrDomainExpired, domain)
	}
	record := recordFromDomain(lookup.Record, now)
	return &record, nil
}

// Invalidate drops one cached domain. Call on registration, update, or
// content publish.
func (r *Resolver) Invalidate(domain string) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	r.mu.Lock()
	present := r.cache.Remove(domain)
	r.mu.Unlock()
	if present {
		if r.config.EnableMetrics {
			r.metrics.invalidations.Add(1)
		}
		r.log.Info("cache entry invalidated", "domain", domain)
	}
}

// InvalidateAll clears the cache.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	count := r.cache.Len()
	r.cache.Purge()
	r.mu.Unlock()
	r.log.Info("all cache entries invalidated", "entries_cleared", count)
}

// CacheLen returns the number of cached entries.
func (r *Resolver) CacheLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache.Len()
}

// Stats returns a snapshot of resolver counters.
func (r *Resolver) Stats() MetricsSnapshot {
	return r.metrics.snapshot()
}
