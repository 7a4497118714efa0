// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

// Package identity implements the sovereign identity record and every
// derivation hanging off a post-quantum keypair: the DID, per-device
// node ids, the ZK identity secret and credential hash, the wallet
// master seed, and DAO membership.
//
// Secrets are derived, never stored: an identity that reaches this
// process over any serialized form is rebuilt through New so the
// derived fields are recomputed from the supplied private key.
package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/zhtp/go-zhtp/crypto/hashing"
	"github.com/zhtp/go-zhtp/crypto/pq"
	"github.com/zhtp/go-zhtp/zk"
)

// DID layout constants.
const (
	DIDPrefix = "did:zhtp:"
	DIDLength = len(DIDPrefix) + 64
)

// Derivation domain tags. Changing any of these is a hard fork of every
// identity in the network.
const (
	zkSecretTag   = "ZHTP_ZK_SECRET_V1:"
	credentialTag = "ZHTP_CREDENTIAL_V1:"
	walletSeedTag = "ZHTP_WALLET_SEED_V1:"
	daoMemberTag  = "DAO:"
)

// Kind classifies what an identity represents.
type Kind string

// Identity kinds.
const (
	KindHuman        Kind = "Human"
	KindAgent        Kind = "Agent"
	KindContract     Kind = "Contract"
	KindOrganization Kind = "Organization"
	KindDevice       Kind = "Device"
)

var (
	// ErrSecretsNotDerived is returned when an operation needs derived
	// secrets but the identity carries all-zero secret material.
	ErrSecretsNotDerived = errors.New("identity secrets not derived")
	// ErrDeserializationForbidden is returned by any path that would
	// turn raw bytes into an Identity without re-derivation.
	ErrDeserializationForbidden = errors.New("direct identity deserialization is forbidden: use FromSerialized")
	// ErrMissingPrivateKey is returned when a construction path is
	// given no usable private key.
	ErrMissingPrivateKey = errors.New("missing private key")
)

// jurisdictionCodes maps ISO 3166-1 alpha-2 jurisdictions to their
// numeric codes. Unknown jurisdictions derive with code 0.
var jurisdictionCodes = map[string]uint64{
	"US": 840,
	"GB": 826,
	"UK": 826,
	"DE": 276,
	"CA": 124,
	"JP": 392,
	"AU": 36,
	"FR": 250,
	"IT": 380,
}

// JurisdictionCode returns the numeric code for a jurisdiction string,
// or 0 when absent or unknown.
func JurisdictionCode(jurisdiction *string) uint64 {
	if jurisdiction == nil {
		return 0
	}
	return jurisdictionCodes[strings.ToUpper(*jurisdiction)]
}

// Identity is the canonical identity record. The private key and the
// derived secret fields never appear in serialized output; see
// MarshalJSON.
type Identity struct {
	DID           string
	Kind          Kind
	PublicKey     pq.PublicKey
	privateKey    *pq.PrivateKey
	PrimaryDevice string
	DeviceNodeIDs map[string]NodeID

	ZKIdentitySecret [32]byte
	ZKCredentialHash [32]byte
	WalletMasterSeed [64]byte

	DAOMemberID    string
	DAOVotingPower uint64

	CitizenshipVerified bool
	Jurisdiction        *string
	Age                 *uint64
	Reputation          uint64

	OwnershipProof *zk.Proof
}

// New derives a complete Identity from a keypair. This is the only
// construction path; every import route funnels through it so the
// derived fields always match the supplied key material.
func New(
	kind Kind,
	publicKey pq.PublicKey,
	privateKey pq.PrivateKey,
	device string,
	age *uint64,
	jurisdiction *string,
	citizenshipVerified bool,
	ownershipProof *zk.Proof,
) (*Identity, error) {
	if len(privateKey.Dilithium) == 0 {
		return nil, ErrMissingPrivateKey
	}
	if device == "" {
		return nil, ErrEmptyDevice
	}

	did := DIDPrefix + hex.EncodeToString(publicKey.KeyID[:])

	zkSecret := deriveZKSecret(privateKey.Dilithium)
	credHash := deriveCredentialHash(zkSecret, age, jurisdiction)
	walletSeed := deriveWalletSeed(privateKey.Dilithium)
	daoMember := deriveDAOMemberID(did)

	nodeID, err := NodeIDFromDIDDevice(did, device)
	if err != nil {
		return nil, fmt.Errorf("derive node id: %w", err)
	}

	id := &Identity{
		DID:                 did,
		Kind:                kind,
		PublicKey:           publicKey,
		privateKey:          &privateKey,
		PrimaryDevice:       device,
		DeviceNodeIDs:       map[string]NodeID{device: nodeID},
		ZKIdentitySecret:    zkSecret,
		ZKCredentialHash:    credHash,
		WalletMasterSeed:    walletSeed,
		DAOMemberID:         daoMember,
		DAOVotingPower:      votingPower(kind, citizenshipVerified),
		CitizenshipVerified: citizenshipVerified,
		Jurisdiction:        jurisdiction,
		Age:                 age,
		OwnershipProof:      ownershipProof,
	}
	return id, nil
}

// deriveZKSecret computes BLAKE3(tag || secret key).
func deriveZKSecret(dilithiumSK []byte) [32]byte {
	buf := make([]byte, 0, len(zkSecretTag)+len(dilithiumSK))
	buf = append(buf, zkSecretTag...)
	buf = append(buf, dilithiumSK...)
	return hashing.Sum256(buf)
}

// deriveCredentialHash binds the ZK secret to the claimed age and
// jurisdiction. Absent claims derive with value 0.
func deriveCredentialHash(zkSecret [32]byte, age *uint64, jurisdiction *string) [32]byte {
	var ageVal uint64
	if age != nil {
		ageVal = *age
	}
	jurisVal := JurisdictionCode(jurisdiction)

	buf := make([]byte, 0, len(credentialTag)+32+16)
	buf = append(buf, credentialTag...)
	buf = append(buf, zkSecret[:]...)
	buf = appendUint64LE(buf, ageVal)
	buf = appendUint64LE(buf, jurisVal)
	return hashing.Sum256(buf)
}

// deriveWalletSeed computes 64 bytes of BLAKE3 XOF output over the
// tagged secret key.
func deriveWalletSeed(dilithiumSK []byte) [64]byte {
	buf := make([]byte, 0, len(walletSeedTag)+len(dilithiumSK))
	buf = append(buf, walletSeedTag...)
	buf = append(buf, dilithiumSK...)
	var seed [64]byte
	copy(seed[:], hashing.XOF(buf, 64))
	return seed
}

// deriveDAOMemberID computes hex(BLAKE3("DAO:" || did)).
func deriveDAOMemberID(did string) string {
	h := hashing.Sum256([]byte(daoMemberTag + did))
	return hex.EncodeToString(h[:])
}

// votingPower applies the DAO voting rule: verified human citizens get
// 10, unverified humans 1, everything else 0.
func votingPower(kind Kind, citizenshipVerified bool) uint64 {
	if kind != KindHuman {
		return 0
	}
	if citizenshipVerified {
		return 10
	}
	return 1
}

// PrivateKey returns the in-memory private key, or nil for a
// public-only view.
func (id *Identity) PrivateKey() *pq.PrivateKey {
	return id.privateKey
}

// PrimaryNodeID returns the NodeID of the primary device.
func (id *Identity) PrimaryNodeID() NodeID {
	return id.DeviceNodeIDs[id.PrimaryDevice]
}

// AddDevice derives and records the NodeID for an additional device.
func (id *Identity) AddDevice(device string) (NodeID, error) {
	nodeID, err := NodeIDFromDIDDevice(id.DID, device)
	if err != nil {
		return NodeID{}, err
	}
	id.DeviceNodeIDs[device] = nodeID
	return nodeID, nil
}

// IsSecretsDerived reports whether every derived secret is non-zero.
func (id *Identity) IsSecretsDerived() bool {
	return id.ZKIdentitySecret != [32]byte{} &&
		id.ZKCredentialHash != [32]byte{} &&
		id.WalletMasterSeed != [64]byte{}
}

// ValidateSecretsDerived gates operations that consume a secret. An
// all-zero secret means the identity was never run through New.
func (id *Identity) ValidateSecretsDerived() error {
	if !id.IsSecretsDerived() {
		return ErrSecretsNotDerived
	}
	return nil
}

// Sign signs msg with the identity's Dilithium secret key.
func (id *Identity) Sign(msg []byte) ([]byte, error) {
	if id.privateKey == nil {
		return nil, ErrMissingPrivateKey
	}
	if err := id.ValidateSecretsDerived(); err != nil {
		return nil, err
	}
	return pq.Sign(id.privateKey.Dilithium, msg)
}

func appendUint64LE(buf []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(v>>(8*i)))
	}
	return buf
}
