// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package session establishes authenticated peer sessions: the UHP
// version/capability handshake first, then a Kyber512 encapsulation
// whose shared secret keys the per-stream AEAD channel. Each session
// binds the peer's DID so requests can be stamped with an
// authenticated requester before routing.
package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/zhtp/go-zhtp/crypto/hashing"
	"github.com/zhtp/go-zhtp/crypto/pq"
	"github.com/zhtp/go-zhtp/identity"
)

// HandshakeVersion is the current UHP version.
const HandshakeVersion = 1

// DiscoveredVia encodes how the dialing side found the peer.
const (
	ViaMulticast  uint8 = 0
	ViaBluetooth  uint8 = 1
	ViaWifiDirect uint8 = 2
	ViaManual     uint8 = 3
)

// ackByte is the single-byte handshake acknowledgement. A future
// revision will replace it with a typed ack structure.
const ackByte = 0x01

// AckTimeout is how long the initiator waits for the handshake ack
// before closing the stream.
const AckTimeout = 5 * time.Second

var (
	// ErrHandshakeFailed wraps malformed or incompatible handshakes.
	ErrHandshakeFailed = errors.New("mesh handshake failed")
	// ErrKemFailed wraps key-encapsulation failures.
	ErrKemFailed = errors.New("kyber key encapsulation failed")
)

// HandshakeCapabilities advertises transport upgrades for hybrid
// negotiation.
type HandshakeCapabilities struct {
	SupportsBluetoothClassic bool   `cbor:"1,keyasint"`
	SupportsBluetoothLE      bool   `cbor:"2,keyasint"`
	SupportsWifiDirect       bool   `cbor:"3,keyasint"`
	MaxThroughput            uint32 `cbor:"4,keyasint"`
	PrefersHighThroughput    bool   `cbor:"5,keyasint"`
}

// MeshHandshake is the compact binary handshake exchanged after
// transport dial, length-prefixed by the stream framing.
type MeshHandshake struct {
	Version       uint8                 `cbor:"1,keyasint"`
	NodeID        identity.NodeID       `cbor:"2,keyasint"`
	PublicKey     []byte                `cbor:"3,keyasint"`
	KEMPublicKey  []byte                `cbor:"4,keyasint"`
	MeshPort      uint16                `cbor:"5,keyasint"`
	Protocols     []string              `cbor:"6,keyasint"`
	DiscoveredVia uint8                 `cbor:"7,keyasint"`
	Capabilities  HandshakeCapabilities `cbor:"8,keyasint"`
}

// DID derives the peer DID from the handshake's public key. It is
// recomputable by anyone, so a peer cannot claim an identity its key
// does not hash to.
func (h *MeshHandshake) DID() string {
	keyID := hashing.Sum256(h.PublicKey)
	return "did:zhtp:" + hex.EncodeToString(keyID[:])
}

// validate rejects structurally unusable handshakes before KEM work.
func (h *MeshHandshake) validate() error {
	if h.Version != HandshakeVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrHandshakeFailed, h.Version)
	}
	if h.NodeID.IsZero() {
		return fmt.Errorf("%w: zero node id", ErrHandshakeFailed)
	}
	switch len(h.PublicKey) {
	case pq.Dilithium2PublicKeySize, pq.Dilithium5PublicKeySize:
	default:
		return fmt.Errorf("%w: public key length %d", ErrHandshakeFailed, len(h.PublicKey))
	}
	if len(h.KEMPublicKey) != pq.KyberPublicKeySize {
		return fmt.Errorf("%w: kem public key length %d", ErrHandshakeFailed, len(h.KEMPublicKey))
	}
	if h.DiscoveredVia > ViaManual {
		return fmt.Errorf("%w: unknown discovery origin %d", ErrHandshakeFailed, h.DiscoveredVia)
	}
	return nil
}

// writeHandshake frames one handshake on the stream.
func writeHandshake(w io.Writer, h *MeshHandshake) error {
	payload, err := cbor.Marshal(h)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrHandshakeFailed, err)
	}
	var prefix [2]byte
	prefix[0] = byte(len(payload) >> 8)
	prefix[1] = byte(len(payload))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("%w: write length: %v", ErrHandshakeFailed, err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("%w: write payload: %v", ErrHandshakeFailed, err)
	}
	return nil
}

// readHandshake reads one framed handshake and validates it.
func readHandshake(r io.Reader) (*MeshHandshake, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("%w: read length: %v", ErrHandshakeFailed, err)
	}
	size := int(prefix[0])<<8 | int(prefix[1])
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: read payload: %v", ErrHandshakeFailed, err)
	}
	var h MeshHandshake
	if err := cbor.Unmarshal(payload, &h); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrHandshakeFailed, err)
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

// deadlineReader is satisfied by net.Conn and quic streams alike.
type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// awaitAck waits up to AckTimeout for the one-byte acknowledgement.
func awaitAck(r io.Reader) error {
	if conn, ok := r.(deadlineReader); ok {
		conn.SetReadDeadline(time.Now().Add(AckTimeout))
		defer conn.SetReadDeadline(time.Time{})
	}
	var ack [1]byte
	if _, err := io.ReadFull(r, ack[:]); err != nil {
		return fmt.Errorf("%w: awaiting ack: %v", ErrHandshakeFailed, err)
	}
	return nil
}
