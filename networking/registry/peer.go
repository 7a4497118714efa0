// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/zhtp/go-zhtp/crypto/pq"
	"github.com/zhtp/go-zhtp/identity"
)

// Capabilities describes what a peer can do for the mesh.
type Capabilities struct {
	HasDHT        bool     `cbor:"1,keyasint" json:"has_dht"`
	CanRelay      bool     `cbor:"2,keyasint" json:"can_relay"`
	MaxBandwidth  uint64   `cbor:"3,keyasint" json:"max_bandwidth"`
	Protocols     []string `cbor:"4,keyasint" json:"protocols"`
	QuantumSecure bool     `cbor:"5,keyasint" json:"quantum_secure"`
	Reputation    uint8    `cbor:"6,keyasint" json:"reputation"`
}

// SupportsProtocol reports whether the peer declared a protocol.
func (c *Capabilities) SupportsProtocol(name string) bool {
	for _, p := range c.Protocols {
		if p == name {
			return true
		}
	}
	return false
}

// PeerRecord is the canonical registry entry for one peer device. The
// signature covers the record with its Signature field zeroed and must
// verify under PQPublic.
type PeerRecord struct {
	NodeID          identity.NodeID `cbor:"1,keyasint" json:"node_id"`
	DID             string          `cbor:"2,keyasint" json:"did"`
	DeviceName      string          `cbor:"3,keyasint" json:"device_name"`
	PQPublic        []byte          `cbor:"4,keyasint" json:"pq_public"`
	Addresses       []string        `cbor:"5,keyasint" json:"addresses"`
	Capabilities    Capabilities    `cbor:"6,keyasint" json:"capabilities"`
	ReputationScore float64         `cbor:"7,keyasint" json:"reputation_score"`
	RegisteredAt    uint64          `cbor:"8,keyasint" json:"registered_at"`
	LastSeen        uint64          `cbor:"9,keyasint" json:"last_seen"`
	TTLSecs         uint64          `cbor:"10,keyasint" json:"ttl_secs"`
	Signature       []byte          `cbor:"11,keyasint" json:"signature"`
}

// signingBytes returns the canonical encoding the signature covers.
func (p *PeerRecord) signingBytes() ([]byte, error) {
	unsigned := *p
	unsigned.Signature = nil
	data, err := cbor.Marshal(&unsigned)
	if err != nil {
		return nil, fmt.Errorf("encode peer record: %w", err)
	}
	return data, nil
}

// Sign signs the record with the peer's Dilithium secret key.
func (p *PeerRecord) Sign(dilithiumSK []byte) error {
	data, err := p.signingBytes()
	if err != nil {
		return err
	}
	sig, err := pq.Sign(dilithiumSK, data)
	if err != nil {
		return err
	}
	p.Signature = sig
	return nil
}

// VerifySignature checks the record signature under its own PQPublic.
func (p *PeerRecord) VerifySignature() bool {
	if len(p.Signature) == 0 {
		return false
	}
	data, err := p.signingBytes()
	if err != nil {
		return false
	}
	return pq.Verify(p.PQPublic, data, p.Signature)
}

// IsExpired reports whether the record's TTL has run out.
func (p *PeerRecord) IsExpired(now time.Time) bool {
	return uint64(now.Unix()) > p.RegisteredAt+p.TTLSecs
}

// CapabilityFilter selects peers by declared capability.
type CapabilityFilter struct {
	RequiresDHT          bool
	RequiresRelay        bool
	MinBandwidth         uint64
	MinReputation        float64
	RequiredProtocols    []string
	RequireQuantumSecure bool
	MaxResults           int
}

// matches applies the filter to one record.
func (f *CapabilityFilter) matches(p *PeerRecord) bool {
	if f.RequiresDHT && !p.Capabilities.HasDHT {
		return false
	}
	if f.RequiresRelay && !p.Capabilities.CanRelay {
		return false
	}
	if f.MinBandwidth > 0 && p.Capabilities.MaxBandwidth < f.MinBandwidth {
		return false
	}
	if f.MinReputation > 0 && p.ReputationScore < f.MinReputation {
		return false
	}
	if f.RequireQuantumSecure && !p.Capabilities.QuantumSecure {
		return false
	}
	for _, proto := range f.RequiredProtocols {
		if !p.Capabilities.SupportsProtocol(proto) {
			return false
		}
	}
	return true
}
