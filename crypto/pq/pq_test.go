// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"testing"

	"github.com/cloudflare/circl/sign/dilithium"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyModes(t *testing.T) {
	for _, tc := range []struct {
		name    string
		mode    dilithium.Mode
		pkSize  int
		skSize  int
		sigSize int
	}{
		{"Dilithium2", dilithium.Mode2, Dilithium2PublicKeySize, Dilithium2SecretKeySize, Dilithium2SignatureSize},
		{"Dilithium5", dilithium.Mode5, Dilithium5PublicKeySize, Dilithium5SecretKeySize, Dilithium5SignatureSize},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require := require.New(t)

			pk, sk, err := GenerateSigningKey(tc.mode)
			require.NoError(err)
			require.Len(pk, tc.pkSize)
			require.Len(sk, tc.skSize)

			msg := []byte("routing table digest")
			sig, err := Sign(sk, msg)
			require.NoError(err)
			require.Len(sig, tc.sigSize)

			require.True(Verify(pk, msg, sig))
			require.False(Verify(pk, []byte("tampered"), sig))

			// Flip one signature byte.
			sig[0] ^= 0xff
			require.False(Verify(pk, msg, sig))
		})
	}
}

func TestSignMalformedSecretKey(t *testing.T) {
	require := require.New(t)

	_, err := Sign(make([]byte, 100), []byte("msg"))
	require.ErrorIs(err, ErrMalformedSecretKey)

	_, err = Sign(nil, []byte("msg"))
	require.ErrorIs(err, ErrMalformedSecretKey)
}

func TestVerifyMalformedInputsReturnFalse(t *testing.T) {
	require := require.New(t)

	pk, sk, err := GenerateSigningKey(dilithium.Mode2)
	require.NoError(err)
	sig, err := Sign(sk, []byte("msg"))
	require.NoError(err)

	// Wrong-length key and signature must fail closed, not panic.
	require.False(Verify(pk[:100], []byte("msg"), sig))
	require.False(Verify(pk, []byte("msg"), sig[:10]))
	require.False(Verify(nil, []byte("msg"), sig))
}

func TestKyberRoundTrip(t *testing.T) {
	require := require.New(t)

	pk, sk, err := GenerateKEMKey()
	require.NoError(err)
	require.Len(pk, KyberPublicKeySize)
	require.Len(sk, KyberSecretKeySize)

	ct, ss, err := Encapsulate(pk)
	require.NoError(err)
	require.Len(ct, KyberCiphertextSize)
	require.Len(ss, KyberSharedKeySize)

	recovered, err := Decapsulate(sk, ct)
	require.NoError(err)
	require.Equal(ss, recovered)
}

func TestKyberMalformedInputs(t *testing.T) {
	require := require.New(t)

	_, _, err := Encapsulate(make([]byte, 10))
	require.ErrorIs(err, ErrMalformedKEMKey)

	_, sk, err := GenerateKEMKey()
	require.NoError(err)

	_, err = Decapsulate(sk, make([]byte, 10))
	require.ErrorIs(err, ErrMalformedCiphertext)

	_, err = Decapsulate(make([]byte, 10), make([]byte, KyberCiphertextSize))
	require.ErrorIs(err, ErrMalformedKEMKey)
}

func TestKeypairKeyID(t *testing.T) {
	require := require.New(t)

	kp, err := GenerateKeypair()
	require.NoError(err)
	require.Len(kp.Public, Dilithium2PublicKeySize)
	require.Len(kp.Secret, Dilithium2SecretKeySize)
	require.Len(kp.KEMPublic, KyberPublicKeySize)

	id := kp.KeyID()
	require.NotEqual([32]byte{}, id)
	// Stable across calls.
	require.Equal(id, kp.KeyID())

	sig, err := kp.Sign([]byte("hello"))
	require.NoError(err)
	require.True(kp.Verify([]byte("hello"), sig))
}
