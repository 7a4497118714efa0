// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry is the unified peer registry: one canonical record
// per peer device, admission-checked at registration time. Every
// stored record satisfies node_id == BLAKE3(did || 0x00 || device),
// has a valid self-signature, and has not outlived its TTL.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/log"

	"github.com/zhtp/go-zhtp/identity"
)

// maxFindResults is the hard cap on Find result sets.
const maxFindResults = 20

var (
	// ErrInvalidSignature is returned when a record's self-signature
	// does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrPeerExpired is returned when a record arrives already past its
	// TTL.
	ErrPeerExpired = errors.New("peer record expired")
	// ErrNodeIDMismatch is returned when a record's node id disagrees
	// with the derivation from its DID and device name.
	ErrNodeIDMismatch = errors.New("node id mismatch")
)

// Registry stores peer records behind one read-mostly lock.
type Registry struct {
	mu    sync.RWMutex
	log   log.Logger
	peers map[identity.NodeID]*PeerRecord
}

// New returns an empty Registry.
func New(logger log.Logger) *Registry {
	return &Registry{
		log:   logger,
		peers: make(map[identity.NodeID]*PeerRecord),
	}
}

// Register admits a peer record. The record signature must verify, the
// node id must match its derivation, and the TTL must not already have
// lapsed. Re-registration by node id replaces the prior record and
// refreshes last_seen.
func (r *Registry) Register(peer *PeerRecord) error {
	if !peer.VerifySignature() {
		return ErrInvalidSignature
	}

	now := time.Now()
	if peer.IsExpired(now) {
		return ErrPeerExpired
	}

	derived, err := identity.NodeIDFromDIDDevice(peer.DID, peer.DeviceName)
	if err != nil {
		return err
	}
	if derived != peer.NodeID {
		return ErrNodeIDMismatch
	}

	stored := *peer
	stored.LastSeen = uint64(now.Unix())

	r.mu.Lock()
	_, replacing := r.peers[stored.NodeID]
	r.peers[stored.NodeID] = &stored
	r.mu.Unlock()

	r.log.Debug("peer registered",
		"node_id", stored.NodeID,
		"did", stored.DID,
		"replacing", replacing,
		"ttl_secs", stored.TTLSecs)
	return nil
}

// Get returns a copy of the record for a node id.
func (r *Registry) Get(nodeID identity.NodeID) (*PeerRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[nodeID]
	if !ok {
		return nil, false
	}
	copied := *p
	return &copied, true
}

// Find returns live peers matching the filter, ordered by reputation
// descending, capped at min(filter.MaxResults, 20).
func (r *Registry) Find(filter CapabilityFilter) []*PeerRecord {
	now := time.Now()

	r.mu.RLock()
	matched := make([]*PeerRecord, 0, len(r.peers))
	for _, p := range r.peers {
		if p.IsExpired(now) {
			continue
		}
		if !filter.matches(p) {
			continue
		}
		copied := *p
		matched = append(matched, &copied)
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ReputationScore > matched[j].ReputationScore
	})

	limit := filter.MaxResults
	if limit <= 0 || limit > maxFindResults {
		limit = maxFindResults
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// UpdateReputation sets a peer's reputation, clamping into [0, 1].
func (r *Registry) UpdateReputation(nodeID identity.NodeID, score float64) bool {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[nodeID]
	if !ok {
		return false
	}
	p.ReputationScore = score
	return true
}

// RecordFailure halves a peer's reputation after a protocol failure
// (bad handshake, capability mismatch).
func (r *Registry) RecordFailure(nodeID identity.NodeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[nodeID]
	if !ok {
		return
	}
	p.ReputationScore /= 2
	r.log.Debug("peer failure recorded", "node_id", nodeID, "reputation", p.ReputationScore)
}

// Remove deletes a record, reporting whether it existed.
func (r *Registry) Remove(nodeID identity.NodeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.peers[nodeID]
	delete(r.peers, nodeID)
	return ok
}

// CleanupExpired drops every record past its TTL and returns the count
// removed.
func (r *Registry) CleanupExpired() int {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, p := range r.peers {
		if p.IsExpired(now) {
			delete(r.peers, id)
			removed++
		}
	}
	if removed > 0 {
		r.log.Debug("expired peers removed", "count", removed)
	}
	return removed
}

// PeerCount returns the number of stored records, expired or not.
func (r *Registry) PeerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
