// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/zhtp/go-zhtp/crypto/pq"
	"github.com/zhtp/go-zhtp/identity"
)

// testPeer builds a correctly derived, signed peer record.
func testPeer(t *testing.T, device string, mutate func(*PeerRecord)) (*PeerRecord, *pq.Keypair) {
	t.Helper()
	require := require.New(t)

	kp, err := pq.GenerateKeypair()
	require.NoError(err)

	keyID := kp.KeyID()
	did := "did:zhtp:" + hex.EncodeToString(keyID[:])
	nodeID, err := identity.NodeIDFromDIDDevice(did, device)
	require.NoError(err)

	peer := &PeerRecord{
		NodeID:     nodeID,
		DID:        did,
		DeviceName: device,
		PQPublic:   kp.Public,
		Addresses:  []string{"192.168.1.10:9443"},
		Capabilities: Capabilities{
			HasDHT:        true,
			CanRelay:      false,
			MaxBandwidth:  1 << 20,
			Protocols:     []string{"zhtp/1", "tcp"},
			QuantumSecure: true,
			Reputation:    100,
		},
		ReputationScore: 0.5,
		RegisteredAt:    uint64(time.Now().Unix()),
		TTLSecs:         300,
	}
	if mutate != nil {
		mutate(peer)
	}
	require.NoError(peer.Sign(kp.Secret))
	return peer, kp
}

func TestRegisterAndGet(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	peer, _ := testPeer(t, "laptop", nil)
	require.NoError(r.Register(peer))
	require.Equal(1, r.PeerCount())

	got, ok := r.Get(peer.NodeID)
	require.True(ok)
	require.Equal(peer.DID, got.DID)
	require.NotZero(got.LastSeen)

	_, ok = r.Get(identity.NodeID{1})
	require.False(ok)
}

func TestRegisterRejectsBadSignature(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	peer, _ := testPeer(t, "laptop", nil)
	peer.Signature[0] ^= 0xff
	require.ErrorIs(r.Register(peer), ErrInvalidSignature)

	peer.Signature = nil
	require.ErrorIs(r.Register(peer), ErrInvalidSignature)
}

func TestRegisterRejectsTamperedRecord(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	// Mutating any signed field after signing invalidates the record.
	peer, _ := testPeer(t, "laptop", nil)
	peer.Addresses = []string{"10.0.0.1:1"}
	require.ErrorIs(r.Register(peer), ErrInvalidSignature)
}

func TestRegisterRejectsNodeIDMismatch(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	peer, _ := testPeer(t, "laptop", func(p *PeerRecord) {
		p.NodeID[0] ^= 0xff
	})
	require.ErrorIs(r.Register(peer), ErrNodeIDMismatch)
}

func TestRegisterRejectsExpired(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	peer, _ := testPeer(t, "laptop", func(p *PeerRecord) {
		p.RegisteredAt = uint64(time.Now().Add(-10 * time.Minute).Unix())
		p.TTLSecs = 60
	})
	require.ErrorIs(r.Register(peer), ErrPeerExpired)
}

func TestReRegistrationReplaces(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	peer, kp := testPeer(t, "laptop", nil)
	require.NoError(r.Register(peer))

	// Same node id, fresh addresses: replaces rather than duplicates.
	peer.Addresses = []string{"172.16.0.2:9443"}
	require.NoError(peer.Sign(kp.Secret))
	require.NoError(r.Register(peer))
	require.Equal(1, r.PeerCount())

	got, ok := r.Get(peer.NodeID)
	require.True(ok)
	require.Equal([]string{"172.16.0.2:9443"}, got.Addresses)
}

func TestExpiryLifecycle(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	peer, _ := testPeer(t, "laptop", func(p *PeerRecord) {
		p.TTLSecs = 1
	})
	require.NoError(r.Register(peer))

	time.Sleep(2100 * time.Millisecond)

	// Expired peers are invisible to Find and removed by cleanup.
	require.Empty(r.Find(CapabilityFilter{}))
	require.Equal(1, r.CleanupExpired())
	_, ok := r.Get(peer.NodeID)
	require.False(ok)
	require.Zero(r.PeerCount())
}

func TestFindFilterAndOrdering(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	scores := []float64{0.2, 0.9, 0.5}
	for i, score := range scores {
		peer, _ := testPeer(t, fmt.Sprintf("device-%d", i), func(p *PeerRecord) {
			p.ReputationScore = score
			p.Capabilities.CanRelay = i == 1
		})
		require.NoError(r.Register(peer))
	}

	// Ordering is reputation descending.
	found := r.Find(CapabilityFilter{})
	require.Len(found, 3)
	require.Equal(0.9, found[0].ReputationScore)
	require.Equal(0.5, found[1].ReputationScore)
	require.Equal(0.2, found[2].ReputationScore)

	// Capability and reputation filters narrow the set.
	found = r.Find(CapabilityFilter{RequiresRelay: true})
	require.Len(found, 1)
	require.Equal(0.9, found[0].ReputationScore)

	found = r.Find(CapabilityFilter{MinReputation: 0.4})
	require.Len(found, 2)

	found = r.Find(CapabilityFilter{RequiredProtocols: []string{"zhtp/1"}})
	require.Len(found, 3)
	found = r.Find(CapabilityFilter{RequiredProtocols: []string{"bluetooth"}})
	require.Empty(found)

	// MaxResults caps the set.
	found = r.Find(CapabilityFilter{MaxResults: 2})
	require.Len(found, 2)
}

func TestFindHardCap(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	for i := 0; i < 25; i++ {
		peer, _ := testPeer(t, fmt.Sprintf("device-%d", i), nil)
		require.NoError(r.Register(peer))
	}
	// Requests above the hard cap still return at most 20.
	require.Len(r.Find(CapabilityFilter{MaxResults: 100}), 20)
	require.Len(r.Find(CapabilityFilter{}), 20)
}

func TestUpdateReputationClamps(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	peer, _ := testPeer(t, "laptop", nil)
	require.NoError(r.Register(peer))

	require.True(r.UpdateReputation(peer.NodeID, 1.7))
	got, _ := r.Get(peer.NodeID)
	require.Equal(1.0, got.ReputationScore)

	require.True(r.UpdateReputation(peer.NodeID, -0.3))
	got, _ = r.Get(peer.NodeID)
	require.Zero(got.ReputationScore)

	require.False(r.UpdateReputation(identity.NodeID{9}, 0.5))
}

func TestRecordFailureHalvesReputation(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	peer, _ := testPeer(t, "laptop", func(p *PeerRecord) { p.ReputationScore = 0.8 })
	require.NoError(r.Register(peer))

	r.RecordFailure(peer.NodeID)
	got, _ := r.Get(peer.NodeID)
	require.Equal(0.4, got.ReputationScore)
}

func TestRemove(t *testing.T) {
	require := require.New(t)
	r := New(log.NewNoOpLogger())

	peer, _ := testPeer(t, "laptop", nil)
	require.NoError(r.Register(peer))
	require.True(r.Remove(peer.NodeID))
	require.False(r.Remove(peer.NodeID))
	require.Zero(r.PeerCount())
}
