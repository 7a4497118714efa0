// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"github.com/cloudflare/circl/sign/dilithium"

	"github.com/zhtp/go-zhtp/crypto/hashing"
)

// Keypair bundles a node's Dilithium signing keys with an optional
// Kyber512 KEM pair. The secret halves are owned by the local identity
// and must never be written to disk without external encryption.
type Keypair struct {
	Public []byte
	Secret []byte

	KEMPublic []byte
	KEMSecret []byte
}

// GenerateKeypair generates a Dilithium2 keypair with a KEM pair.
func GenerateKeypair() (*Keypair, error) {
	return GenerateKeypairMode(dilithium.Mode2)
}

// GenerateKeypairMode generates a keypair in the given Dilithium mode
// with an accompanying Kyber512 KEM pair.
func GenerateKeypairMode(mode dilithium.Mode) (*Keypair, error) {
	pk, sk, err := GenerateSigningKey(mode)
	if err != nil {
		return nil, err
	}
	kemPK, kemSK, err := GenerateKEMKey()
	if err != nil {
		return nil, err
	}
	return &Keypair{
		Public:    pk,
		Secret:    sk,
		KEMPublic: kemPK,
		KEMSecret: kemSK,
	}, nil
}

// KeyID returns the 32-byte BLAKE3 digest of the public key. It is the
// stable identifier the DID is derived from.
func (k *Keypair) KeyID() [32]byte {
	return hashing.Sum256(k.Public)
}

// Sign signs msg with the keypair's secret key.
func (k *Keypair) Sign(msg []byte) ([]byte, error) {
	return Sign(k.Secret, msg)
}

// Verify reports whether sig is valid for msg under the keypair's
// public key.
func (k *Keypair) Verify(msg, sig []byte) bool {
	return Verify(k.Public, msg, sig)
}
