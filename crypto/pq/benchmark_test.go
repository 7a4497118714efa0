// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package pq

import (
	"testing"

	"github.com/cloudflare/circl/sign/dilithium"
)

func BenchmarkDilithium2Sign(b *testing.B) {
	_, sk, err := GenerateSigningKey(dilithium.Mode2)
	if err != nil {
		b.Fatal(err)
	}
	msg := make([]byte, 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Sign(sk, msg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDilithium2Verify(b *testing.B) {
	pk, sk, err := GenerateSigningKey(dilithium.Mode2)
	if err != nil {
		b.Fatal(err)
	}
	msg := make([]byte, 1024)
	sig, err := Sign(sk, msg)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !Verify(pk, msg, sig) {
			b.Fatal("verify failed")
		}
	}
}

func BenchmarkKyberEncapsulate(b *testing.B) {
	pk, _, err := GenerateKEMKey()
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Encapsulate(pk); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkKyberDecapsulate(b *testing.B) {
	pk, sk, err := GenerateKEMKey()
	if err != nil {
		b.Fatal(err)
	}
	ct, _, err := Encapsulate(pk)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decapsulate(sk, ct); err != nil {
			b.Fatal(err)
		}
	}
}
