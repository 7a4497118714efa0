// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package contracts

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/zhtp/go-zhtp/crypto/hashing"
	"github.com/zhtp/go-zhtp/crypto/pq"
)

var (
	// ErrUnknownWallet is returned when a claim names a wallet with no
	// identity registry entry.
	ErrUnknownWallet = errors.New("claimer wallet not registered")
	// ErrKeyMismatch is returned when a claim signature does not verify
	// under the wallet's registered post-quantum key.
	ErrKeyMismatch = errors.New("signature does not match registered wallet key")
	// ErrUnsigned is returned when a claim carries no signature.
	ErrUnsigned = errors.New("claim transaction is unsigned")
)

// TransactionOutput is a spendable output in the UTXO set.
type TransactionOutput struct {
	Amount          uint64 `json:"amount"`
	RecipientWallet string `json:"recipient_wallet"`
	PublicKey       []byte `json:"public_key"`
}

// ClaimTransaction is the reward-claim transaction emitted by the
// reward processors. The signature binds the claim to the full PQ key
// recorded for the claimer's wallet in the identity registry.
type ClaimTransaction struct {
	ClaimerDID string            `json:"claimer_did"`
	WalletID   string            `json:"wallet_id"`
	Kind       string            `json:"kind"`
	Amount     uint64            `json:"amount"`
	Output     TransactionOutput `json:"output"`
	Timestamp  uint64            `json:"timestamp"`
	Nonce      uint64            `json:"nonce"`
	Signature  []byte            `json:"signature"`
}

// signingBytes returns the canonical encoding covered by the
// signature: the transaction with its signature field empty.
func (tx *ClaimTransaction) signingBytes() ([]byte, error) {
	unsigned := *tx
	unsigned.Signature = nil
	data, err := cbor.Marshal(&unsigned)
	if err != nil {
		return nil, fmt.Errorf("encode claim: %w", err)
	}
	return data, nil
}

// Sign signs the claim with the claimer's Dilithium secret key.
func (tx *ClaimTransaction) Sign(dilithiumSK []byte) error {
	data, err := tx.signingBytes()
	if err != nil {
		return err
	}
	sig, err := pq.Sign(dilithiumSK, data)
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

// Hash returns the outpoint hash of the claim's output.
func (tx *ClaimTransaction) Hash() (string, error) {
	data, err := tx.signingBytes()
	if err != nil {
		return "", err
	}
	h := hashing.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

// VerifyClaim checks a claim transaction against the identity
// registry: the claimer wallet must be registered and the signature
// must verify under the wallet's full PQ public key.
func (s *State) VerifyClaim(tx *ClaimTransaction) error {
	if len(tx.Signature) == 0 {
		return ErrUnsigned
	}
	record, ok := s.Identity(tx.ClaimerDID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWallet, tx.ClaimerDID)
	}
	data, err := tx.signingBytes()
	if err != nil {
		return err
	}
	if !pq.Verify(record.PublicKey, data, tx.Signature) {
		return ErrKeyMismatch
	}
	return nil
}

// ApplyClaim verifies a claim and, on success, adds its output to the
// UTXO set keyed by the outpoint hash.
func (s *State) ApplyClaim(tx *ClaimTransaction) (string, error) {
	if err := s.VerifyClaim(tx); err != nil {
		return "", err
	}
	outpoint, err := tx.Hash()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.utxos[outpoint] = &tx.Output
	s.mu.Unlock()
	if err := s.persist(utxoPrefix, outpoint, &tx.Output); err != nil {
		return "", err
	}
	return outpoint, nil
}

// UTXO looks up an output by outpoint hash.
func (s *State) UTXO(outpoint string) (TransactionOutput, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.utxos[outpoint]
	if !ok {
		return TransactionOutput{}, false
	}
	return *o, true
}

// UTXOCount returns the size of the UTXO set.
func (s *State) UTXOCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.utxos)
}
