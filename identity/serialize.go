// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package identity

import (
	"encoding/json"
	"fmt"

	"github.com/zhtp/go-zhtp/crypto/hashing"
	"github.com/zhtp/go-zhtp/crypto/pq"
	"github.com/zhtp/go-zhtp/zk"
)

// serialized is the public-fields-only wire representation of an
// Identity. It deliberately has no slot for the private key or the
// derived secrets: those are recomputed by FromSerialized.
type serialized struct {
	DID                 string            `json:"did"`
	Kind                Kind              `json:"identity_type"`
	PublicKey           pq.PublicKey      `json:"public_key"`
	PrimaryDevice       string            `json:"primary_device"`
	DeviceNodeIDs       map[string]NodeID `json:"device_node_ids"`
	DAOMemberID         string            `json:"dao_member_id"`
	DAOVotingPower      uint64            `json:"dao_voting_power"`
	CitizenshipVerified bool              `json:"citizenship_verified"`
	Jurisdiction        *string           `json:"jurisdiction,omitempty"`
	Age                 *uint64           `json:"age,omitempty"`
	Reputation          uint64            `json:"reputation"`
	OwnershipProof      *zk.Proof         `json:"ownership_proof,omitempty"`
}

// MarshalJSON serializes the public representation. The private key,
// ZK identity secret, credential hash, and wallet seed are never
// included in any output form.
func (id *Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(serialized{
		DID:                 id.DID,
		Kind:                id.Kind,
		PublicKey:           id.PublicKey,
		PrimaryDevice:       id.PrimaryDevice,
		DeviceNodeIDs:       id.DeviceNodeIDs,
		DAOMemberID:         id.DAOMemberID,
		DAOVotingPower:      id.DAOVotingPower,
		CitizenshipVerified: id.CitizenshipVerified,
		Jurisdiction:        id.Jurisdiction,
		Age:                 id.Age,
		Reputation:          id.Reputation,
		OwnershipProof:      id.OwnershipProof,
	})
}

// UnmarshalJSON always fails. Turning bytes directly into an Identity
// would skip secret re-derivation, so the only import path is
// FromSerialized.
func (id *Identity) UnmarshalJSON([]byte) error {
	return ErrDeserializationForbidden
}

// FromSerialized imports an identity from its public JSON form,
// re-deriving every secret from the supplied private key. The embedded
// DID is cross-checked against the public key so a transplanted key is
// rejected.
func FromSerialized(data []byte, privateKey pq.PrivateKey) (*Identity, error) {
	var s serialized
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}

	id, err := New(
		s.Kind,
		s.PublicKey,
		privateKey,
		s.PrimaryDevice,
		s.Age,
		s.Jurisdiction,
		s.CitizenshipVerified,
		s.OwnershipProof,
	)
	if err != nil {
		return nil, err
	}

	if s.DID != "" && s.DID != id.DID {
		return nil, fmt.Errorf("did mismatch: serialized %q, derived %q", s.DID, id.DID)
	}

	// Re-derive every claimed device; an entry that disagrees with the
	// derivation is dropped rather than trusted.
	for device := range s.DeviceNodeIDs {
		if _, err := id.AddDevice(device); err != nil {
			return nil, err
		}
	}
	id.Reputation = s.Reputation
	return id, nil
}

// Fingerprint returns a short hex digest of the public serialized
// form, used for audit logs.
func (id *Identity) Fingerprint() (string, error) {
	data, err := id.MarshalJSON()
	if err != nil {
		return "", err
	}
	h := hashing.Sum256(data)
	return fmt.Sprintf("%x", h[:8]), nil
}
