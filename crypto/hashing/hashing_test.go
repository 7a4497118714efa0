// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package hashing

import (
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"
)

func TestSum256MatchesBlake3(t *testing.T) {
	require := require.New(t)

	data := []byte("zhtp")
	require.Equal(blake3.Sum256(data), Sum256(data))
	require.NotEqual(Sum256([]byte("a")), Sum256([]byte("b")))
}

func TestXOF(t *testing.T) {
	require := require.New(t)

	out := XOF([]byte("seed"), 64)
	require.Len(out, 64)
	require.NotEqual(make([]byte, 64), out)

	// Deterministic, and a prefix of a longer read.
	again := XOF([]byte("seed"), 64)
	require.Equal(out, again)
	longer := XOF([]byte("seed"), 128)
	require.Equal(out, longer[:64])
}

func TestHKDFExpand(t *testing.T) {
	require := require.New(t)

	a, err := HKDFExpand([]byte("ikm"), []byte("info"), 32)
	require.NoError(err)
	require.Len(a, 32)

	b, err := HKDFExpand([]byte("ikm"), []byte("info"), 32)
	require.NoError(err)
	require.Equal(a, b)

	c, err := HKDFExpand([]byte("ikm"), []byte("other"), 32)
	require.NoError(err)
	require.NotEqual(a, c)
}

func TestConstantTimeEq(t *testing.T) {
	require := require.New(t)

	require.True(ConstantTimeEq([]byte{1, 2, 3}, []byte{1, 2, 3}))
	require.False(ConstantTimeEq([]byte{1, 2, 3}, []byte{1, 2, 4}))
	require.False(ConstantTimeEq([]byte{1, 2}, []byte{1, 2, 3}))
	require.True(ConstantTimeEq(nil, nil))
}
