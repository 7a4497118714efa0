// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package verification gates mesh routing on blockchain identity: a
// peer's DID must resolve on-chain with sufficient trust before its
// sessions are admitted to routing. Results are cached with distinct
// TTLs for verified and unverified outcomes so rejected peers are
// re-checked sooner.
package verification

import (
	"strings"
	"sync"
	"time"

	"github.com/luxfi/log"
)

// UnverifiedMarker appears in DIDs minted before on-chain registration
// completes. Such peers never get past bootstrap classification.
const UnverifiedMarker = ":unverified:"

// Result classifies an identity for routing admission.
type Result uint8

// Verification results.
const (
	// Verified identities get full routing.
	Verified Result = iota
	// Bootstrap identities get limited routing only.
	Bootstrap
	// NotFound identities are denied: no on-chain record.
	NotFound
	// InsufficientTrust identities are denied: trust below threshold.
	InsufficientTrust
	// Blocked identities are explicitly denied.
	Blocked
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case Verified:
		return "verified"
	case Bootstrap:
		return "bootstrap"
	case NotFound:
		return "not_found"
	case InsufficientTrust:
		return "insufficient_trust"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// AllowsRouting reports whether a peer with this classification may
// route messages.
func (r Result) AllowsRouting() bool {
	return r == Verified || r == Bootstrap
}

// IsFullAccess reports whether the classification grants full (non
// bootstrap) access.
func (r Result) IsFullAccess() bool {
	return r == Verified
}

// Peer is the view of a mesh peer this package needs.
type Peer interface {
	DID() string
	IsBootstrapMode() bool
}

// LookupFunc resolves a DID to its on-chain trust score. The boolean
// reports whether the DID exists on-chain at all.
type LookupFunc func(did string) (float64, bool)

// Config controls cache TTLs and admission policy.
type Config struct {
	CacheTTL           time.Duration
	UnverifiedCacheTTL time.Duration
	MaxCacheSize       int
	AllowBootstrap     bool
	MinTrustScore      float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:           5 * time.Minute,
		UnverifiedCacheTTL: time.Minute,
		MaxCacheSize:       10_000,
		AllowBootstrap:     true,
		MinTrustScore:      0.3,
	}
}

// VerifiedIdentity is one cache entry.
type VerifiedIdentity struct {
	DID         string
	IsVerified  bool
	IsBootstrap bool
	TrustScore  float64
	VerifiedAt  time.Time
	ExpiresAt   time.Time
}

// IsExpired reports whether the entry has aged out.
func (v *VerifiedIdentity) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// Cache is the identity verification cache.
type Cache struct {
	mu     sync.RWMutex
	log    log.Logger
	config Config
	cache  map[string]*VerifiedIdentity
}

// NewCache returns a Cache with the given configuration.
func NewCache(config Config, logger log.Logger) *Cache {
	return &Cache{
		log:    logger,
		config: config,
		cache:  make(map[string]*VerifiedIdentity),
	}
}

// Verify classifies a peer for routing. The flow is cache, then the
// unverified-DID marker, then the blockchain lookup.
func (c *Cache) Verify(peer Peer, lookup LookupFunc) Result {
	attempts.Add(1)
	did := peer.DID()
	now := time.Now()

	c.mu.RLock()
	cached, ok := c.cache[did]
	c.mu.RUnlock()
	if ok && !cached.IsExpired(now) {
		hits.Add(1)
		return c.classify(cached)
	}

	if strings.Contains(did, UnverifiedMarker) {
		result := NotFound
		if c.config.AllowBootstrap {
			result = Bootstrap
		} else {
			failures.Add(1)
		}
		c.log.Warn("peer carries unverified did marker", "did", did, "result", result)
		c.insert(&VerifiedIdentity{
			DID:         did,
			IsBootstrap: c.config.AllowBootstrap,
			VerifiedAt:  now,
			ExpiresAt:   now.Add(c.config.UnverifiedCacheTTL),
		})
		return result
	}

	score, found := lookup(did)
	switch {
	case found && score >= c.config.MinTrustScore:
		c.insert(&VerifiedIdentity{
			DID:        did,
			IsVerified: true,
			TrustScore: score,
			VerifiedAt: now,
			ExpiresAt:  now.Add(c.config.CacheTTL),
		})
		c.log.Debug("identity verified on-chain", "did", did, "trust", score)
		return Verified
	case found:
		failures.Add(1)
		c.insert(&VerifiedIdentity{
			DID:        did,
			TrustScore: score,
			VerifiedAt: now,
			ExpiresAt:  now.Add(c.config.UnverifiedCacheTTL),
		})
		c.log.Warn("identity below trust threshold", "did", did, "trust", score, "min", c.config.MinTrustScore)
		return InsufficientTrust
	case peer.IsBootstrapMode() && c.config.AllowBootstrap:
		c.insert(&VerifiedIdentity{
			DID:         did,
			IsBootstrap: true,
			VerifiedAt:  now,
			ExpiresAt:   now.Add(c.config.UnverifiedCacheTTL),
		})
		c.log.Debug("peer admitted in bootstrap mode", "did", did)
		return Bootstrap
	default:
		failures.Add(1)
		c.insert(&VerifiedIdentity{
			DID:        did,
			VerifiedAt: now,
			ExpiresAt:  now.Add(c.config.UnverifiedCacheTTL),
		})
		c.log.Warn("identity not found on-chain", "did", did)
		return NotFound
	}
}

// classify maps a cache entry back to its Result.
func (c *Cache) classify(v *VerifiedIdentity) Result {
	switch {
	case v.IsVerified:
		return Verified
	case v.IsBootstrap:
		return Bootstrap
	case v.TrustScore > 0:
		return InsufficientTrust
	default:
		return NotFound
	}
}

// insert stores an entry, evicting the single oldest entry when the
// cache is full.
func (c *Cache) insert(entry *VerifiedIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.cache[entry.DID]; !exists && len(c.cache) >= c.config.MaxCacheSize {
		var oldestDID string
		var oldestAt time.Time
		for did, v := range c.cache {
			if oldestDID == "" || v.VerifiedAt.Before(oldestAt) {
				oldestDID = did
				oldestAt = v.VerifiedAt
			}
		}
		delete(c.cache, oldestDID)
	}
	c.cache[entry.DID] = entry
}

// Invalidate drops a cached classification.
func (c *Cache) Invalidate(did string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, did)
}

// Len returns the number of cached classifications.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
