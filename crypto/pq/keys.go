// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import "github.com/zhtp/go-zhtp/crypto/hashing"

// PublicKey is the identity-facing public key record. KeyID is the
// BLAKE3 digest of the Dilithium public key and is the value DIDs are
// derived from.
type PublicKey struct {
	Dilithium []byte   `json:"dilithium_pk"`
	Kyber     []byte   `json:"kyber_pk,omitempty"`
	KeyID     [32]byte `json:"key_id"`
}

// PrivateKey is the identity-facing secret key record. It is never
// serialized; consumers hold it in memory only.
type PrivateKey struct {
	Dilithium []byte
	Kyber     []byte
}

// NewPublicKey builds a PublicKey with its KeyID derived from the
// Dilithium key bytes.
func NewPublicKey(dilithiumPK, kyberPK []byte) PublicKey {
	return PublicKey{
		Dilithium: dilithiumPK,
		Kyber:     kyberPK,
		KeyID:     hashing.Sum256(dilithiumPK),
	}
}

// PublicKey returns the keypair's identity-facing public key record.
func (k *Keypair) PublicKey() PublicKey {
	return NewPublicKey(k.Public, k.KEMPublic)
}

// PrivateKey returns the keypair's identity-facing secret key record.
func (k *Keypair) PrivateKey() PrivateKey {
	return PrivateKey{Dilithium: k.Secret, Kyber: k.KEMSecret}
}
