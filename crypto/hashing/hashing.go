// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hashing wraps the BLAKE3 hash, its extendable output mode,
// and HKDF expansion behind the small surface the rest of the node
// uses for identifier and key derivation.
package hashing

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"lukechampine.com/blake3"
)

// Sum256 returns the 32-byte BLAKE3 digest of data.
func Sum256(data []byte) [32]byte {
	return blake3.Sum256(data)
}

// XOF returns n bytes of BLAKE3 extendable output over data.
func XOF(data []byte, n int) []byte {
	h := blake3.New(n, nil)
	h.Write(data)
	out := make([]byte, n)
	// The XOF stream is unbounded, so the read cannot come up short.
	io.ReadFull(h.XOF(), out)
	return out
}

// HKDFExpand derives n bytes from ikm bound to the given info string.
func HKDFExpand(ikm, info []byte, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, info), out); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return out, nil
}

// ConstantTimeEq reports whether a and b are equal, comparing in
// constant time. The inputs must be the same length; a length mismatch
// is reported as unequal without inspecting the contents.
func ConstantTimeEq(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
