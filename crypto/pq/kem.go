// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"errors"
	"fmt"

	"github.com/cloudflare/circl/kem/kyber/kyber512"
)

// Kyber512 parameter sizes.
const (
	KyberPublicKeySize  = 800
	KyberSecretKeySize  = 1632
	KyberCiphertextSize = 768
	KyberSharedKeySize  = 32
)

var (
	// ErrMalformedKEMKey is returned for KEM keys of the wrong length.
	ErrMalformedKEMKey = errors.New("malformed Kyber key")
	// ErrMalformedCiphertext is returned for KEM ciphertexts of the
	// wrong length.
	ErrMalformedCiphertext = errors.New("malformed Kyber ciphertext")
)

// Encapsulate runs Kyber512 encapsulation against the peer's public key
// and returns the ciphertext and the 32-byte shared secret.
func Encapsulate(pk []byte) (ct, ss []byte, err error) {
	scheme := kyber512.Scheme()
	if len(pk) != scheme.PublicKeySize() {
		return nil, nil, fmt.Errorf("%w: public key length %d", ErrMalformedKEMKey, len(pk))
	}
	pub, err := scheme.UnmarshalBinaryPublicKey(pk)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedKEMKey, err)
	}
	ct, ss, err = scheme.Encapsulate(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("kyber encapsulate: %w", err)
	}
	return ct, ss, nil
}

// Decapsulate recovers the shared secret from a Kyber512 ciphertext
// using the local secret key.
func Decapsulate(sk, ct []byte) ([]byte, error) {
	scheme := kyber512.Scheme()
	if len(sk) != scheme.PrivateKeySize() {
		return nil, fmt.Errorf("%w: secret key length %d", ErrMalformedKEMKey, len(sk))
	}
	if len(ct) != scheme.CiphertextSize() {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrMalformedCiphertext, len(ct))
	}
	priv, err := scheme.UnmarshalBinaryPrivateKey(sk)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKEMKey, err)
	}
	ss, err := scheme.Decapsulate(priv, ct)
	if err != nil {
		return nil, fmt.Errorf("kyber decapsulate: %w", err)
	}
	return ss, nil
}

// GenerateKEMKey generates a fresh Kyber512 keypair and returns the
// packed public and secret key bytes.
func GenerateKEMKey() (pk, sk []byte, err error) {
	scheme := kyber512.Scheme()
	pub, priv, err := scheme.GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("generate kyber key: %w", err)
	}
	pk, err = pub.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	sk, err = priv.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	return pk, sk, nil
}
