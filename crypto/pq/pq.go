// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pq implements the post-quantum signature and KEM primitives
// used throughout the node: Dilithium2/Dilithium5 for signing and
// Kyber512 for key encapsulation.
package pq

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium"
)

// Dilithium parameter sizes. The signing mode is selected from key
// material lengths, so these are part of the wire contract.
const (
	Dilithium2PublicKeySize = 1312
	Dilithium2SecretKeySize = 2528
	Dilithium2SignatureSize = 2420

	Dilithium5PublicKeySize = 2592
	Dilithium5SecretKeySize = 4864
	Dilithium5SignatureSize = 4595
)

var (
	// ErrMalformedPublicKey is returned when a public key has a length
	// that matches no supported Dilithium mode.
	ErrMalformedPublicKey = errors.New("malformed post-quantum public key")
	// ErrMalformedSecretKey is returned when a secret key has a length
	// that matches no supported Dilithium mode.
	ErrMalformedSecretKey = errors.New("malformed post-quantum secret key")
	// ErrMalformedSignature is returned when a signature has the wrong
	// length for the selected mode.
	ErrMalformedSignature = errors.New("malformed post-quantum signature")
)

// modeForSecretKey maps a secret key length to its Dilithium mode.
func modeForSecretKey(sk []byte) (dilithium.Mode, error) {
	switch len(sk) {
	case Dilithium2SecretKeySize:
		return dilithium.Mode2, nil
	case Dilithium5SecretKeySize:
		return dilithium.Mode5, nil
	default:
		return nil, fmt.Errorf("%w: secret key length %d", ErrMalformedSecretKey, len(sk))
	}
}

// modeForPublicKey maps a public key length to its Dilithium mode.
func modeForPublicKey(pk []byte) (dilithium.Mode, error) {
	switch len(pk) {
	case Dilithium2PublicKeySize:
		return dilithium.Mode2, nil
	case Dilithium5PublicKeySize:
		return dilithium.Mode5, nil
	default:
		return nil, fmt.Errorf("%w: public key length %d", ErrMalformedPublicKey, len(pk))
	}
}

// Sign signs msg with the given Dilithium secret key. The mode is
// selected by secret key length (2528 -> Dilithium2, 4864 -> Dilithium5).
func Sign(sk, msg []byte) ([]byte, error) {
	mode, err := modeForSecretKey(sk)
	if err != nil {
		return nil, err
	}
	return mode.Sign(mode.PrivateKeyFromBytes(sk), msg), nil
}

// Verify reports whether sig is a valid signature of msg under pk. A
// malformed key or signature yields false, never a panic.
func Verify(pk, msg, sig []byte) bool {
	mode, err := modeForPublicKey(pk)
	if err != nil {
		return false
	}
	if len(sig) != mode.SignatureSize() {
		return false
	}
	return mode.Verify(mode.PublicKeyFromBytes(pk), msg, sig)
}

// GenerateSigningKey generates a fresh Dilithium keypair in the given
// mode and returns the packed public and secret key bytes.
func GenerateSigningKey(mode dilithium.Mode) (pk, sk []byte, err error) {
	pub, priv, err := mode.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate %s key: %w", mode.Name(), err)
	}
	return pub.Bytes(), priv.Bytes(), nil
}
