// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package zk

import (
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/luxfi/log"
)

// CircuitStats tracks per-circuit verification activity.
type CircuitStats struct {
	Verifications uint64
	Failures      uint64
	AvgTimeMillis float64
}

// Verifier checks proofs emitted by this adapter. Structural validation
// always runs first and short-circuits the circuit replay.
type Verifier struct {
	mu    sync.Mutex
	log   log.Logger
	stats map[string]*CircuitStats
}

// NewVerifier returns a Verifier.
func NewVerifier(logger log.Logger) *Verifier {
	return &Verifier{
		log:   logger,
		stats: make(map[string]*CircuitStats),
	}
}

// Verify checks a single proof of any supported circuit. The boolean
// reports circuit validity; the error is reserved for structural
// failures and unknown circuits.
func (v *Verifier) Verify(p *Proof) (bool, error) {
	start := time.Now()
	if err := p.ValidateStructure(start); err != nil {
		v.record(p.CircuitID, start, false)
		return false, err
	}

	var ok bool
	switch {
	case strings.HasPrefix(p.CircuitID, "optimized-transaction"):
		ok = v.verifyTransaction(p)
	case strings.HasPrefix(p.CircuitID, "identity_v"):
		ok = v.verifyIdentity(p)
	case strings.HasPrefix(p.CircuitID, "range_v"):
		ok = v.verifyRange(p)
	case strings.HasPrefix(p.CircuitID, "storage_access_v"):
		ok = len(p.PublicInputs) == 1
	case strings.HasPrefix(p.CircuitID, "recursive_"):
		ok = len(p.ProofData) >= minRecursiveProofSize
	default:
		v.record(p.CircuitID, start, false)
		return false, ErrUnsupportedCircuit
	}

	v.record(p.CircuitID, start, ok)
	return ok, nil
}

// BatchVerify verifies a batch of proofs grouped by circuit identifier.
// Results are returned in input order regardless of grouping.
func (v *Verifier) BatchVerify(proofs []*Proof) []bool {
	results := make([]bool, len(proofs))
	groups := make(map[string][]int)
	for i, p := range proofs {
		groups[p.CircuitID] = append(groups[p.CircuitID], i)
	}
	for circuitID, indices := range groups {
		for _, i := range indices {
			ok, err := v.Verify(proofs[i])
			if err != nil {
				v.log.Debug("batch proof rejected", "circuit", circuitID, "err", err)
			}
			results[i] = ok && err == nil
		}
	}
	return results
}

// verifyTransaction replays the balance-conservation circuit.
func (v *Verifier) verifyTransaction(p *Proof) bool {
	var w transactionWitness
	if err := cbor.Unmarshal(p.ProofData, &w); err != nil {
		return false
	}
	if w.SenderBalance < w.Amount+w.Fee {
		return false
	}
	senderCommit := commit("ZHTP_TX_SENDER:", append(uint64le(w.SenderBalance), w.SenderBlind[:]...))
	receiverCommit := commit("ZHTP_TX_RECEIVER:", append(uint64le(w.ReceiverBalance), w.ReceiverBlind[:]...))
	return p.PublicInputs[0] == truncate64(senderCommit) &&
		p.PublicInputs[1] == truncate64(receiverCommit) &&
		p.PublicInputs[2] == truncate64(w.Nullifier)
}

// verifyIdentity replays the credential circuit.
func (v *Verifier) verifyIdentity(p *Proof) bool {
	var w identityWitness
	if err := cbor.Unmarshal(p.ProofData, &w); err != nil {
		return false
	}
	ageValid := w.Age >= w.MinAge
	jurisdictionValid := w.RequiredJurisdiction == 0 || w.Jurisdiction == w.RequiredJurisdiction
	if (p.PublicInputs[0] == 1) != ageValid {
		return false
	}
	if (p.PublicInputs[1] == 1) != jurisdictionValid {
		return false
	}
	// The circuit only attests claims that actually hold.
	return ageValid && jurisdictionValid && p.PublicInputs[2] == w.VerificationLevel
}

// verifyRange replays the bound check against the embedded plaintext
// value.
func (v *Verifier) verifyRange(p *Proof) bool {
	if len(p.ProofData) < 8 {
		return false
	}
	split := len(p.ProofData) - 8
	var w rangeWitness
	if err := cbor.Unmarshal(p.ProofData[:split], &w); err != nil {
		return false
	}
	value := binary.LittleEndian.Uint64(p.ProofData[split:])
	if w.Min != p.PublicInputs[0] || w.Max != p.PublicInputs[1] {
		return false
	}
	if value < w.Min || value > w.Max {
		return false
	}
	valueCommit := commit("ZHTP_RANGE_VALUE:", append(uint64le(value), w.Blind[:]...))
	return valueCommit == w.Value
}

// Stats returns a copy of the per-circuit statistics.
func (v *Verifier) Stats() map[string]CircuitStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]CircuitStats, len(v.stats))
	for id, s := range v.stats {
		out[id] = *s
	}
	return out
}

func (v *Verifier) record(circuitID string, start time.Time, ok bool) {
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	v.mu.Lock()
	defer v.mu.Unlock()
	s, exists := v.stats[circuitID]
	if !exists {
		s = &CircuitStats{}
		v.stats[circuitID] = s
	}
	s.Verifications++
	if !ok {
		s.Failures++
	}
	// Exponential moving average keeps the window cheap.
	if s.AvgTimeMillis == 0 {
		s.AvgTimeMillis = elapsed
	} else {
		s.AvgTimeMillis = 0.9*s.AvgTimeMillis + 0.1*elapsed
	}
}
