// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package zk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/zhtp/go-zhtp/crypto/hashing"
)

// ProofSystem is the identifier stamped on every proof this adapter
// emits.
const ProofSystem = "zhtp-sim-v1"

var (
	// ErrInsufficientBalance is returned when the sender cannot cover
	// amount plus fee.
	ErrInsufficientBalance = errors.New("sender balance below amount plus fee")
	// ErrValueOutOfRange is returned when a range witness falls outside
	// its claimed bounds.
	ErrValueOutOfRange = errors.New("value outside claimed range")
)

// transactionWitness is the plaintext witness of the transaction
// circuit stand-in.
type transactionWitness struct {
	SenderBalance   uint64   `cbor:"1,keyasint"`
	ReceiverBalance uint64   `cbor:"2,keyasint"`
	Amount          uint64   `cbor:"3,keyasint"`
	Fee             uint64   `cbor:"4,keyasint"`
	SenderBlind     [32]byte `cbor:"5,keyasint"`
	ReceiverBlind   [32]byte `cbor:"6,keyasint"`
	Nullifier       [32]byte `cbor:"7,keyasint"`
}

// identityWitness is the plaintext witness of the identity circuit
// stand-in.
type identityWitness struct {
	Secret               [32]byte `cbor:"1,keyasint"`
	Age                  uint64   `cbor:"2,keyasint"`
	Jurisdiction         uint64   `cbor:"3,keyasint"`
	CredentialHash       [32]byte `cbor:"4,keyasint"`
	MinAge               uint64   `cbor:"5,keyasint"`
	RequiredJurisdiction uint64   `cbor:"6,keyasint"`
	VerificationLevel    uint64   `cbor:"7,keyasint"`
}

// rangeWitness is the plaintext witness of the range circuit stand-in.
type rangeWitness struct {
	Value [32]byte `cbor:"1,keyasint"`
	Min   uint64   `cbor:"2,keyasint"`
	Max   uint64   `cbor:"3,keyasint"`
	Blind [32]byte `cbor:"4,keyasint"`
}

// commit folds a domain tag and payload into a 32-byte commitment.
func commit(tag string, payload []byte) [32]byte {
	buf := make([]byte, 0, len(tag)+len(payload))
	buf = append(buf, tag...)
	buf = append(buf, payload...)
	return hashing.Sum256(buf)
}

// truncate64 folds a commitment into a public-input field element.
func truncate64(h [32]byte) uint64 {
	return binary.LittleEndian.Uint64(h[:8])
}

// vkHash derives the per-circuit verification key hash. The stand-in
// has no trusted setup; the hash binds the circuit identifier so
// cross-circuit replay fails structural validation.
func vkHash(circuitID string) [32]byte {
	return commit("ZHTP_VK_V1:", []byte(circuitID))
}

// ProveTransaction builds a balance-conservation proof. The
// side-condition senderBalance >= amount+fee is enforced at proving
// time; the emitted public inputs are the sender commitment, receiver
// commitment, and nullifier field elements.
func ProveTransaction(senderBalance, receiverBalance, amount, fee uint64, senderBlind, receiverBlind, nullifier [32]byte) (*Proof, error) {
	if senderBalance < amount+fee {
		return nil, fmt.Errorf("%w: balance %d, amount %d, fee %d", ErrInsufficientBalance, senderBalance, amount, fee)
	}
	w := transactionWitness{
		SenderBalance:   senderBalance,
		ReceiverBalance: receiverBalance,
		Amount:          amount,
		Fee:             fee,
		SenderBlind:     senderBlind,
		ReceiverBlind:   receiverBlind,
		Nullifier:       nullifier,
	}
	data, err := cbor.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("encode transaction witness: %w", err)
	}
	senderCommit := commit("ZHTP_TX_SENDER:", append(uint64le(senderBalance), senderBlind[:]...))
	receiverCommit := commit("ZHTP_TX_RECEIVER:", append(uint64le(receiverBalance), receiverBlind[:]...))
	return &Proof{
		System:    ProofSystem,
		CircuitID: CircuitTransaction,
		ProofData: data,
		PublicInputs: []uint64{
			truncate64(senderCommit),
			truncate64(receiverCommit),
			truncate64(nullifier),
		},
		VerificationKeyHash: vkHash(CircuitTransaction),
		GeneratedAt:         uint64(time.Now().Unix()),
	}, nil
}

// ProveIdentity builds an age/jurisdiction credential proof. Public
// inputs follow the identity circuit layout: age_valid,
// jurisdiction_valid, verification_level, proof_timestamp.
func ProveIdentity(secret [32]byte, age, jurisdiction uint64, credentialHash [32]byte, minAge, requiredJurisdiction, verificationLevel uint64) (*Proof, error) {
	w := identityWitness{
		Secret:               secret,
		Age:                  age,
		Jurisdiction:         jurisdiction,
		CredentialHash:       credentialHash,
		MinAge:               minAge,
		RequiredJurisdiction: requiredJurisdiction,
		VerificationLevel:    verificationLevel,
	}
	data, err := cbor.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("encode identity witness: %w", err)
	}
	ageValid := uint64(0)
	if age >= minAge {
		ageValid = 1
	}
	jurisdictionValid := uint64(0)
	if requiredJurisdiction == 0 || jurisdiction == requiredJurisdiction {
		jurisdictionValid = 1
	}
	now := uint64(time.Now().Unix())
	return &Proof{
		System:              ProofSystem,
		CircuitID:           CircuitIdentity,
		ProofData:           data,
		PublicInputs:        []uint64{ageValid, jurisdictionValid, verificationLevel, now},
		VerificationKeyHash: vkHash(CircuitIdentity),
		GeneratedAt:         now,
	}, nil
}

// ProveRange builds a bound proof for a committed value.
//
// The bounds are currently leaked as public inputs; the planned
// hardening replaces them with salted commitments keyed by
// identity-scoped material.
func ProveRange(value uint64, min, max uint64, blind [32]byte) (*Proof, error) {
	if value < min || value > max {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrValueOutOfRange, value, min, max)
	}
	valueCommit := commit("ZHTP_RANGE_VALUE:", append(uint64le(value), blind[:]...))
	w := rangeWitness{
		Value: valueCommit,
		Min:   min,
		Max:   max,
		Blind: blind,
	}
	data, err := cbor.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("encode range witness: %w", err)
	}
	// Embed the plaintext value alongside the witness so the stand-in
	// verifier can replay the bound check.
	data = append(data, uint64le(value)...)
	return &Proof{
		System:              ProofSystem,
		CircuitID:           CircuitRange,
		ProofData:           data,
		PublicInputs:        []uint64{min, max},
		VerificationKeyHash: vkHash(CircuitRange),
		GeneratedAt:         uint64(time.Now().Unix()),
	}, nil
}

func uint64le(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:]
}
