// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"encoding/hex"
	"time"

	"github.com/zhtp/go-zhtp/crypto/pq"
	"github.com/zhtp/go-zhtp/identity"
)

// DefaultRecordTTL is how long a self-record stays live without
// re-registration.
const DefaultRecordTTL = 300

// BuildSelfRecord derives and signs this node's own peer record for
// exchange with other registries.
func BuildSelfRecord(
	kp *pq.Keypair,
	device string,
	addresses []string,
	capabilities Capabilities,
	ttlSecs uint64,
) (*PeerRecord, error) {
	keyID := kp.KeyID()
	did := "did:zhtp:" + hex.EncodeToString(keyID[:])
	nodeID, err := identity.NodeIDFromDIDDevice(did, device)
	if err != nil {
		return nil, err
	}
	if ttlSecs == 0 {
		ttlSecs = DefaultRecordTTL
	}
	record := &PeerRecord{
		NodeID:       nodeID,
		DID:          did,
		DeviceName:   device,
		PQPublic:     kp.Public,
		Addresses:    addresses,
		Capabilities: capabilities,
		// A fresh record starts at neutral reputation.
		ReputationScore: 0.5,
		RegisteredAt:    uint64(time.Now().Unix()),
		TTLSecs:         ttlSecs,
	}
	if err := record.Sign(kp.Secret); err != nil {
		return nil, err
	}
	return record, nil
}
