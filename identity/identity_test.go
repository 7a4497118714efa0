// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package identity

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhtp/go-zhtp/crypto/hashing"
	"github.com/zhtp/go-zhtp/crypto/pq"
)

func zeroKeys() (pq.PublicKey, pq.PrivateKey) {
	pk := pq.PublicKey{
		Dilithium: make([]byte, pq.Dilithium2PublicKeySize),
		KeyID:     [32]byte{},
	}
	sk := pq.PrivateKey{
		Dilithium: make([]byte, pq.Dilithium2SecretKeySize),
	}
	return pk, sk
}

func strPtr(s string) *string { return &s }
func u64Ptr(v uint64) *uint64 { return &v }

func newTestIdentity(t *testing.T) *Identity {
	t.Helper()
	pk, sk := zeroKeys()
	id, err := New(KindHuman, pk, sk, "laptop", u64Ptr(30), strPtr("US"), true, nil)
	require.NoError(t, err)
	return id
}

func TestGoldenDIDVector(t *testing.T) {
	require := require.New(t)

	id := newTestIdentity(t)

	require.Equal("did:zhtp:0000000000000000000000000000000000000000000000000000000000000000", id.DID)
	require.Len(id.DID, DIDLength)
	require.Equal(uint64(10), id.DAOVotingPower)

	// Wallet seed is the XOF of the tagged zero secret key.
	seedInput := append([]byte("ZHTP_WALLET_SEED_V1:"), make([]byte, pq.Dilithium2SecretKeySize)...)
	require.Equal(hashing.XOF(seedInput, 64), id.WalletMasterSeed[:])

	// ZK secret is the tagged hash of the zero secret key.
	secretInput := append([]byte("ZHTP_ZK_SECRET_V1:"), make([]byte, pq.Dilithium2SecretKeySize)...)
	require.Equal(hashing.Sum256(secretInput), id.ZKIdentitySecret)

	// Credential hash binds age 30 and jurisdiction code 840 (US).
	credInput := append([]byte("ZHTP_CREDENTIAL_V1:"), id.ZKIdentitySecret[:]...)
	credInput = append(credInput, 30, 0, 0, 0, 0, 0, 0, 0)
	credInput = append(credInput, 0x48, 0x03, 0, 0, 0, 0, 0, 0) // 840 LE
	require.Equal(hashing.Sum256(credInput), id.ZKCredentialHash)

	// DAO member id is hex(BLAKE3("DAO:" + did)).
	daoHash := hashing.Sum256([]byte("DAO:" + id.DID))
	require.Equal(hex.EncodeToString(daoHash[:]), id.DAOMemberID)
}

func TestDerivationDeterminism(t *testing.T) {
	require := require.New(t)

	pk := pq.PublicKey{Dilithium: patternBytes(0xab, pq.Dilithium2PublicKeySize), KeyID: [32]byte{0xcd}}
	sk := pq.PrivateKey{Dilithium: patternBytes(0xef, pq.Dilithium2SecretKeySize)}

	a, err := New(KindHuman, pk, sk, "laptop", u64Ptr(30), strPtr("US"), true, nil)
	require.NoError(err)
	b, err := New(KindHuman, pk, sk, "laptop", u64Ptr(30), strPtr("US"), true, nil)
	require.NoError(err)

	require.Equal(a.DID, b.DID)
	require.Equal(a.ZKIdentitySecret, b.ZKIdentitySecret)
	require.Equal(a.ZKCredentialHash, b.ZKCredentialHash)
	require.Equal(a.WalletMasterSeed, b.WalletMasterSeed)
	require.Equal(a.DAOMemberID, b.DAOMemberID)

	// Different key material diverges.
	zero := newTestIdentity(t)
	require.NotEqual(a.DID, zero.DID)
	require.NotEqual(a.ZKIdentitySecret, zero.ZKIdentitySecret)
}

func TestVotingPowerRule(t *testing.T) {
	require := require.New(t)
	pk, sk := zeroKeys()

	for _, tc := range []struct {
		kind     Kind
		verified bool
		want     uint64
	}{
		{KindHuman, true, 10},
		{KindHuman, false, 1},
		{KindDevice, true, 0},
		{KindAgent, false, 0},
		{KindContract, true, 0},
		{KindOrganization, false, 0},
	} {
		id, err := New(tc.kind, pk, sk, "laptop", nil, nil, tc.verified, nil)
		require.NoError(err)
		require.Equal(tc.want, id.DAOVotingPower, "kind=%s verified=%v", tc.kind, tc.verified)
	}
}

func TestSecretsDerived(t *testing.T) {
	require := require.New(t)

	id := newTestIdentity(t)
	require.True(id.IsSecretsDerived())
	require.NoError(id.ValidateSecretsDerived())
	require.NotEqual([32]byte{}, id.ZKIdentitySecret)
	require.NotEqual([32]byte{}, id.ZKCredentialHash)
	require.NotEqual([64]byte{}, id.WalletMasterSeed)

	// A hollow identity fails the gate.
	var hollow Identity
	require.False(hollow.IsSecretsDerived())
	require.ErrorIs(hollow.ValidateSecretsDerived(), ErrSecretsNotDerived)
}

func TestPrivateKeyNeverSerialized(t *testing.T) {
	require := require.New(t)

	id := newTestIdentity(t)
	data, err := json.Marshal(id)
	require.NoError(err)

	js := string(data)
	require.NotContains(js, "private_key")
	require.NotContains(js, "zk_identity_secret")
	require.NotContains(js, "wallet_master_seed")
	require.Contains(js, "did:zhtp:")
}

func TestDirectDeserializationForbidden(t *testing.T) {
	require := require.New(t)

	id := newTestIdentity(t)
	data, err := json.Marshal(id)
	require.NoError(err)

	var direct Identity
	err = json.Unmarshal(data, &direct)
	require.Error(err)
	require.Contains(err.Error(), "forbidden")

	// Smuggling a private_key field in changes nothing.
	smuggled := strings.Replace(string(data), "{", `{"private_key":"deadbeef",`, 1)
	err = json.Unmarshal([]byte(smuggled), &direct)
	require.Error(err)
	require.Contains(err.Error(), "forbidden")
}

func TestFromSerializedRoundTrip(t *testing.T) {
	require := require.New(t)

	orig := newTestIdentity(t)
	orig.Reputation = 1000
	_, err := orig.AddDevice("phone")
	require.NoError(err)

	data, err := json.Marshal(orig)
	require.NoError(err)

	_, sk := zeroKeys()
	restored, err := FromSerialized(data, sk)
	require.NoError(err)

	require.Equal(orig.DID, restored.DID)
	require.Equal(orig.ZKIdentitySecret, restored.ZKIdentitySecret)
	require.Equal(orig.ZKCredentialHash, restored.ZKCredentialHash)
	require.Equal(orig.WalletMasterSeed, restored.WalletMasterSeed)
	require.Equal(orig.DAOMemberID, restored.DAOMemberID)
	require.Equal(orig.DAOVotingPower, restored.DAOVotingPower)
	require.Equal(orig.Reputation, restored.Reputation)
	require.Equal(orig.DeviceNodeIDs, restored.DeviceNodeIDs)
	require.True(restored.IsSecretsDerived())
}

func TestFromSerializedRejectsMismatchedKey(t *testing.T) {
	require := require.New(t)

	orig := newTestIdentity(t)
	data, err := json.Marshal(orig)
	require.NoError(err)

	// A different private key still derives, but the DID embedded in
	// the serialized form no longer matches a transplanted public key.
	var tampered map[string]any
	require.NoError(json.Unmarshal(data, &tampered))
	tampered["did"] = "did:zhtp:" + strings.Repeat("ff", 32)
	retagged, err := json.Marshal(tampered)
	require.NoError(err)

	_, sk := zeroKeys()
	_, err = FromSerialized(retagged, sk)
	require.ErrorContains(err, "did mismatch")
}

func TestNodeIDDerivation(t *testing.T) {
	require := require.New(t)

	did := "did:zhtp:" + strings.Repeat("00", 32)
	nodeID, err := NodeIDFromDIDDevice(did, "laptop")
	require.NoError(err)

	// NodeID == BLAKE3(did || 0x00 || device), 32 bytes.
	buf := append([]byte(did), 0)
	buf = append(buf, []byte("laptop")...)
	require.Equal(NodeID(hashing.Sum256(buf)), nodeID)
	require.Len(nodeID[:], 32)

	// Distinct devices get distinct node ids.
	other, err := NodeIDFromDIDDevice(did, "phone")
	require.NoError(err)
	require.NotEqual(nodeID, other)

	_, err = NodeIDFromDIDDevice("", "laptop")
	require.ErrorIs(err, ErrEmptyDID)
	_, err = NodeIDFromDIDDevice(did, "")
	require.ErrorIs(err, ErrEmptyDevice)

	// Text round-trip is lowercase hex.
	text, err := nodeID.MarshalText()
	require.NoError(err)
	require.Equal(strings.ToLower(string(text)), string(text))
	var parsed NodeID
	require.NoError(parsed.UnmarshalText(text))
	require.Equal(nodeID, parsed)
}

func TestJurisdictionCodes(t *testing.T) {
	require := require.New(t)

	require.Equal(uint64(840), JurisdictionCode(strPtr("US")))
	require.Equal(uint64(826), JurisdictionCode(strPtr("GB")))
	require.Equal(uint64(276), JurisdictionCode(strPtr("de")))
	require.Equal(uint64(0), JurisdictionCode(strPtr("XX")))
	require.Equal(uint64(0), JurisdictionCode(nil))
}

func TestNewRequiresKeyAndDevice(t *testing.T) {
	require := require.New(t)
	pk, sk := zeroKeys()

	_, err := New(KindHuman, pk, pq.PrivateKey{}, "laptop", nil, nil, false, nil)
	require.ErrorIs(err, ErrMissingPrivateKey)

	_, err = New(KindHuman, pk, sk, "", nil, nil, false, nil)
	require.ErrorIs(err, ErrEmptyDevice)
}

func patternBytes(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
