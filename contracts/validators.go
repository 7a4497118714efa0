// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contracts holds the minimal on-chain state the identity,
// resolver, and reward layers read: the validator registry, the domain
// registry, the identity registry, and the UTXO set. Mutation beyond
// registration bookkeeping lives outside this core.
package contracts

import (
	"errors"
	"fmt"
	"time"
)

// ValidatorStatus tracks a validator's lifecycle.
type ValidatorStatus string

// Validator statuses.
const (
	ValidatorActive   ValidatorStatus = "active"
	ValidatorInactive ValidatorStatus = "inactive"
	ValidatorSlashed  ValidatorStatus = "slashed"
)

// ErrCommissionOutOfRange is returned for commission rates above 100.
var ErrCommissionOutOfRange = errors.New("commission rate must be 0..=100")

// ValidatorInfo is one validator registry entry, keyed by the hex DID
// of its operator.
type ValidatorInfo struct {
	Stake           uint64          `json:"stake"`
	StorageProvided uint64          `json:"storage_provided"`
	CommissionRate  uint8           `json:"commission_rate"`
	NetworkAddress  string          `json:"network_address"`
	Status          ValidatorStatus `json:"status"`
	RegisteredAt    uint64          `json:"registered_at"`
	LastActivity    uint64          `json:"last_activity"`
	BlocksValidated uint64          `json:"blocks_validated"`
	SlashCount      uint64          `json:"slash_count"`
}

// Valid checks registration-time invariants.
func (v *ValidatorInfo) Valid() error {
	if v.CommissionRate > 100 {
		return fmt.Errorf("%w: %d", ErrCommissionOutOfRange, v.CommissionRate)
	}
	return nil
}

// RegisterValidator inserts or replaces a validator entry.
func (s *State) RegisterValidator(didHex string, info ValidatorInfo) error {
	if err := info.Valid(); err != nil {
		return err
	}
	if info.RegisteredAt == 0 {
		info.RegisteredAt = uint64(time.Now().Unix())
	}
	s.mu.Lock()
	s.validators[didHex] = &info
	s.mu.Unlock()
	return s.persist(validatorPrefix, didHex, &info)
}

// Validator looks up a validator by operator DID hex.
func (s *State) Validator(didHex string) (ValidatorInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.validators[didHex]
	if !ok {
		return ValidatorInfo{}, false
	}
	return *v, true
}

// ValidatorCount returns the number of registered validators.
func (s *State) ValidatorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.validators)
}

// TrustScore derives the routing trust score for a DID from the
// validator registry: active validators score by stake seniority,
// slashed validators score zero, and unknown DIDs have no score.
func (s *State) TrustScore(didHex string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.validators[didHex]
	if !ok {
		return 0, false
	}
	switch v.Status {
	case ValidatorSlashed:
		return 0, true
	case ValidatorInactive:
		return 0.2, true
	default:
	}
	// Stake-weighted score, saturating at 1.0 for 1M units of stake.
	score := float64(v.Stake) / 1_000_000
	if score > 1 {
		score = 1
	}
	if score < 0.5 {
		score = 0.5
	}
	return score, true
}
