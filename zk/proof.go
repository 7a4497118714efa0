// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package zk provides the proof adapter for transaction, identity, and
// range proofs.
//
// The proving backend here is an explicit stand-in: witnesses are
// carried in plaintext inside the proof blob and verification replays
// the circuit's side-conditions. It provides NO privacy. The adapter
// interface is kept stable so a Bulletproofs or Plonky2 circuit set can
// be swapped in without touching callers.
package zk

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Circuit identifier prefixes. Verification dispatches on these.
const (
	CircuitTransaction   = "optimized-transaction-v1"
	CircuitIdentity      = "identity_v1"
	CircuitRange         = "range_v1"
	CircuitStorageAccess = "storage_access_v1"
	CircuitRecursive     = "recursive_v1"
)

// Structural minimums enforced before any cryptographic work.
const (
	minTransactionProofSize = 40
	minIdentityProofSize    = 32
	minRecursiveProofSize   = 64
	minDefaultProofSize     = 32

	// Proofs stamped more than this far into the future are rejected.
	maxClockSkew = 300 * time.Second
)

var (
	// ErrProofStructural is the base error for structural validation
	// failures; the wrapped message carries the reason.
	ErrProofStructural = errors.New("proof structurally invalid")
	// ErrProofCrypto is returned when a structurally sound proof fails
	// circuit verification.
	ErrProofCrypto = errors.New("proof verification failed")
	// ErrUnsupportedCircuit is returned for unknown circuit identifiers.
	ErrUnsupportedCircuit = errors.New("unsupported circuit")
)

// Proof is a self-contained proof blob plus the metadata every circuit
// shares.
type Proof struct {
	System              string   `json:"proof_system"`
	CircuitID           string   `json:"circuit_id"`
	ProofData           []byte   `json:"proof"`
	PublicInputs        []uint64 `json:"public_inputs"`
	VerificationKeyHash [32]byte `json:"verification_key_hash"`
	GeneratedAt         uint64   `json:"generated_at"`
}

// expectedInputs returns the required public-input arity for a circuit,
// or 0 when the circuit has no fixed arity.
func expectedInputs(circuitID string) int {
	switch {
	case strings.HasPrefix(circuitID, "optimized-transaction"):
		return 3
	case strings.HasPrefix(circuitID, "identity_v"):
		return 4 // age_valid, jurisdiction_valid, verification_level, proof_timestamp
	case strings.HasPrefix(circuitID, "range_v"):
		return 2
	case strings.HasPrefix(circuitID, "storage_access_v"):
		return 1
	default:
		return 0
	}
}

// minProofSize returns the minimum proof blob size for a circuit.
func minProofSize(circuitID string) int {
	switch {
	case strings.HasPrefix(circuitID, "optimized-transaction"):
		return minTransactionProofSize
	case strings.HasPrefix(circuitID, "identity_v"):
		return minIdentityProofSize
	case strings.HasPrefix(circuitID, "recursive_"):
		return minRecursiveProofSize
	default:
		return minDefaultProofSize
	}
}

// ValidateStructure checks proof metadata without performing any
// circuit verification. It is cheap and runs before the expensive path.
func (p *Proof) ValidateStructure(now time.Time) error {
	if len(p.ProofData) == 0 {
		return fmt.Errorf("%w: empty proof data", ErrProofStructural)
	}
	if min := minProofSize(p.CircuitID); len(p.ProofData) < min {
		return fmt.Errorf("%w: proof data too small: %d < %d", ErrProofStructural, len(p.ProofData), min)
	}
	if want := expectedInputs(p.CircuitID); want > 0 && len(p.PublicInputs) != want {
		return fmt.Errorf("%w: public input count %d != %d", ErrProofStructural, len(p.PublicInputs), want)
	}
	if p.System == "" {
		return fmt.Errorf("%w: missing proof system identifier", ErrProofStructural)
	}
	if p.GeneratedAt > uint64(now.Add(maxClockSkew).Unix()) {
		return fmt.Errorf("%w: timestamp from future", ErrProofStructural)
	}
	if p.VerificationKeyHash == ([32]byte{}) {
		return fmt.Errorf("%w: zero verification key hash", ErrProofStructural)
	}
	return nil
}
