// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config aggregates the recognized node options with their
// production defaults. Each subsystem keeps its own Config type; this
// package only composes and validates them.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/zhtp/go-zhtp/identity/verification"
	"github.com/zhtp/go-zhtp/rewards"
	"github.com/zhtp/go-zhtp/zdns"
)

// Validation errors.
var (
	ErrInvalidMeshPort    = errors.New("mesh port must be nonzero")
	ErrInvalidCacheSize   = errors.New("cache sizes must be positive")
	ErrInvalidTrustScore  = errors.New("min trust score must be in [0, 1]")
	ErrInvalidRewardQuota = errors.New("max claims per hour must be positive")
)

// Node is the aggregated node configuration.
type Node struct {
	// MeshPort is the QUIC/TCP port authenticated sessions use.
	MeshPort uint16
	// DeviceName scopes this node's NodeID derivation.
	DeviceName string
	// Protocols advertised in discovery announcements.
	Protocols []string
	// BootstrapPeers are dialed at startup in addition to local
	// discovery.
	BootstrapPeers []string
	// StatePath is the leveldb directory for contract state; empty
	// means in-memory only.
	StatePath string

	Resolver     zdns.Config
	Verification verification.Config
	Rewards      rewards.Config
}

// Default returns the production defaults.
func Default() Node {
	return Node{
		MeshPort:     9443,
		DeviceName:   "node",
		Protocols:    []string{"tcp", "quic"},
		Resolver:     zdns.DefaultConfig(),
		Verification: verification.DefaultConfig(),
		Rewards:      rewards.DefaultConfig(),
	}
}

// Valid checks cross-cutting invariants the subsystem defaults cannot
// express.
func (n *Node) Valid() error {
	if n.MeshPort == 0 {
		return ErrInvalidMeshPort
	}
	if n.Resolver.CacheSize <= 0 || n.Verification.MaxCacheSize <= 0 {
		return ErrInvalidCacheSize
	}
	if n.Verification.MinTrustScore < 0 || n.Verification.MinTrustScore > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidTrustScore, n.Verification.MinTrustScore)
	}
	if n.Rewards.RateLimiter.MaxClaimsPerHour <= 0 {
		return ErrInvalidRewardQuota
	}
	if n.Rewards.Routing.CheckInterval < time.Second || n.Rewards.Storage.CheckInterval < time.Second {
		return errors.New("reward check intervals must be at least one second")
	}
	return nil
}
