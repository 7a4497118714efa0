// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package identity

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zhtp/go-zhtp/crypto/hashing"
)

// NodeIDLen is the byte length of a NodeID.
const NodeIDLen = 32

var (
	// ErrEmptyDID is returned when a NodeID derivation is attempted
	// without a DID.
	ErrEmptyDID = errors.New("empty did")
	// ErrEmptyDevice is returned when a NodeID derivation is attempted
	// without a device name.
	ErrEmptyDevice = errors.New("empty device name")
)

// NodeID is the per-device 32-byte identifier
// BLAKE3(did || 0x00 || device). It is deterministic, so any third
// party holding (did, device) can recompute and check it.
type NodeID [NodeIDLen]byte

// NodeIDFromDIDDevice derives the NodeID for a device of an identity.
func NodeIDFromDIDDevice(did, device string) (NodeID, error) {
	if did == "" {
		return NodeID{}, ErrEmptyDID
	}
	if device == "" {
		return NodeID{}, ErrEmptyDevice
	}
	buf := make([]byte, 0, len(did)+1+len(device))
	buf = append(buf, did...)
	buf = append(buf, 0)
	buf = append(buf, device...)
	return NodeID(hashing.Sum256(buf)), nil
}

// NodeIDFromBytes converts a 32-byte slice into a NodeID.
func NodeIDFromBytes(b []byte) (NodeID, error) {
	if len(b) != NodeIDLen {
		return NodeID{}, fmt.Errorf("invalid node id length %d", len(b))
	}
	var id NodeID
	copy(id[:], b)
	return id, nil
}

// String returns the lowercase hex representation.
func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the NodeID is unset.
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

// MarshalText implements encoding.TextMarshaler so NodeIDs render as
// hex in JSON maps and values.
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses a lowercase hex NodeID.
func (id *NodeID) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decode node id: %w", err)
	}
	parsed, err := NodeIDFromBytes(b)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
