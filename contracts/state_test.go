// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package contracts

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/zhtp/go-zhtp/crypto/pq"
)

func TestDomainRegistryLookup(t *testing.T) {
	require := require.New(t)
	s := NewState(log.NewNoOpLogger())

	record := DomainRecord{
		Domain:          "MyApp.zhtp",
		ContentMappings: map[string]string{"/": "hash_root"},
		Metadata:        DomainMetadata{Category: "app", Public: true},
		ExpiresAt:       uint64(time.Now().Add(24 * time.Hour).Unix()),
	}
	require.NoError(s.RegisterDomain(record))
	require.Equal(1, s.DomainCount())

	// Lookup is case-insensitive via normalization.
	lookup, err := s.LookupDomain(context.Background(), "myapp.zhtp")
	require.NoError(err)
	require.True(lookup.Found)
	require.Equal("myapp.zhtp", lookup.Record.Domain)
	require.Equal("hash_root", lookup.Record.ContentMappings["/"])

	lookup, err = s.LookupDomain(context.Background(), "missing.zhtp")
	require.NoError(err)
	require.False(lookup.Found)

	removed, err := s.RemoveDomain("myapp.zhtp")
	require.NoError(err)
	require.True(removed)
	require.Equal(0, s.DomainCount())
}

func TestDomainRegistryRejectsForeignTLD(t *testing.T) {
	require := require.New(t)
	s := NewState(log.NewNoOpLogger())

	err := s.RegisterDomain(DomainRecord{Domain: "myapp.com"})
	require.ErrorIs(err, ErrUnsupportedTLD)
}

func TestValidatorRegistry(t *testing.T) {
	require := require.New(t)
	s := NewState(log.NewNoOpLogger())

	err := s.RegisterValidator("abc", ValidatorInfo{CommissionRate: 101})
	require.ErrorIs(err, ErrCommissionOutOfRange)

	require.NoError(s.RegisterValidator("abc", ValidatorInfo{
		Stake:          2_000_000,
		CommissionRate: 10,
		Status:         ValidatorActive,
	}))
	v, ok := s.Validator("abc")
	require.True(ok)
	require.Equal(uint64(2_000_000), v.Stake)
	require.NotZero(v.RegisteredAt)

	score, ok := s.TrustScore("abc")
	require.True(ok)
	require.Equal(1.0, score)

	require.NoError(s.RegisterValidator("slashed", ValidatorInfo{Status: ValidatorSlashed}))
	score, ok = s.TrustScore("slashed")
	require.True(ok)
	require.Zero(score)

	_, ok = s.TrustScore("unknown")
	require.False(ok)
}

func TestContributionAccounting(t *testing.T) {
	require := require.New(t)
	s := NewState(log.NewNoOpLogger())

	s.AddRoutingContribution("did:zhtp:aa", 150)
	s.AddStorageContribution("did:zhtp:aa", 50)

	require.Equal(uint64(150), s.PendingRoutingRewards("did:zhtp:aa"))
	require.Equal(uint64(50), s.PendingStorageRewards("did:zhtp:aa"))

	// Debits cap at the pending total and the pipelines are
	// independent of each other.
	require.Equal(uint64(100), s.DebitRoutingRewards("did:zhtp:aa", 100))
	require.Equal(uint64(50), s.PendingRoutingRewards("did:zhtp:aa"))
	require.Equal(uint64(50), s.PendingStorageRewards("did:zhtp:aa"))
	require.Equal(uint64(50), s.DebitStorageRewards("did:zhtp:aa", 1000))
	require.Zero(s.PendingStorageRewards("did:zhtp:aa"))
}

func TestClaimSignatureBinding(t *testing.T) {
	require := require.New(t)
	s := NewState(log.NewNoOpLogger())

	kp, err := pq.GenerateKeypair()
	require.NoError(err)

	did := "did:zhtp:claimer"
	require.NoError(s.RegisterIdentity(IdentityRecord{
		DID:          did,
		IdentityType: "Human",
		OwnedWallets: []string{"wallet-1"},
		PublicKey:    kp.Public,
	}))

	tx := &ClaimTransaction{
		ClaimerDID: did,
		WalletID:   "wallet-1",
		Kind:       "routing",
		Amount:     500,
		Output:     TransactionOutput{Amount: 500, RecipientWallet: "wallet-1", PublicKey: kp.Public},
		Timestamp:  uint64(time.Now().Unix()),
		Nonce:      1,
	}

	require.ErrorIs(s.VerifyClaim(tx), ErrUnsigned)

	require.NoError(tx.Sign(kp.Secret))
	require.NoError(s.VerifyClaim(tx))

	outpoint, err := s.ApplyClaim(tx)
	require.NoError(err)
	out, ok := s.UTXO(outpoint)
	require.True(ok)
	require.Equal(uint64(500), out.Amount)

	// A claim signed by a different key fails against the registered
	// wallet key.
	other, err := pq.GenerateKeypair()
	require.NoError(err)
	tx2 := *tx
	tx2.Nonce = 2
	require.NoError(tx2.Sign(other.Secret))
	require.ErrorIs(s.VerifyClaim(&tx2), ErrKeyMismatch)

	// Unknown claimer.
	tx3 := *tx
	tx3.ClaimerDID = "did:zhtp:ghost"
	require.NoError(tx3.Sign(kp.Secret))
	require.ErrorIs(s.VerifyClaim(&tx3), ErrUnknownWallet)
}

func TestLevelDBPersistence(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	s, err := OpenState(dir, log.NewNoOpLogger())
	require.NoError(err)

	require.NoError(s.RegisterDomain(DomainRecord{
		Domain:          "persist.sov",
		ContentMappings: map[string]string{"/": "h"},
		Metadata:        DomainMetadata{Category: "static", Public: true},
		ExpiresAt:       uint64(time.Now().Add(time.Hour).Unix()),
	}))
	require.NoError(s.RegisterValidator("val", ValidatorInfo{Stake: 10, Status: ValidatorActive}))
	require.NoError(s.Close())

	reopened, err := OpenState(dir, log.NewNoOpLogger())
	require.NoError(err)
	defer reopened.Close()

	lookup, err := reopened.LookupDomain(context.Background(), "persist.sov")
	require.NoError(err)
	require.True(lookup.Found)
	require.Equal("static", lookup.Record.Metadata.Category)

	_, ok := reopened.Validator("val")
	require.True(ok)
}
