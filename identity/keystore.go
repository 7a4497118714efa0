// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package identity

import (
	"errors"

	"github.com/zhtp/go-zhtp/crypto/hashing"
	"github.com/zhtp/go-zhtp/crypto/pq"
)

// keystoreKeyInfo scopes the password-derived unlock key to this use.
const keystoreKeyInfo = "ZHTP_KEYSTORE_KEY_V1"

// ErrKeystoreLocked is returned when an unlock attempt fails.
var ErrKeystoreLocked = errors.New("keystore locked: wrong password")

// Keystore is the external key storage boundary. The format of the
// stored blob is the keystore's concern; this core only requires that
// a correct password yields the keypair whose derivations rebuild the
// identity.
type Keystore interface {
	// Unlock returns the stored keypair given the unlock key derived
	// by DeriveUnlockKey.
	Unlock(unlockKey []byte) (pq.PublicKey, pq.PrivateKey, error)
}

// DeriveUnlockKey expands a password into the 32-byte keystore unlock
// key, bound to the DID so one password cannot unlock another
// identity's store. The caller must zeroize the password buffer with
// Zeroize once the key is derived.
func DeriveUnlockKey(password []byte, did string) ([]byte, error) {
	return hashing.HKDFExpand(password, []byte(keystoreKeyInfo+":"+did), 32)
}

// Zeroize overwrites sensitive material in place. Password buffers
// must pass through here before being dropped.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// LoadIdentity unlocks the keystore and rebuilds the identity through
// the canonical construction path.
func LoadIdentity(
	ks Keystore,
	password []byte,
	did string,
	kind Kind,
	device string,
	age *uint64,
	jurisdiction *string,
	citizenshipVerified bool,
) (*Identity, error) {
	unlockKey, err := DeriveUnlockKey(password, did)
	Zeroize(password)
	if err != nil {
		return nil, err
	}
	defer Zeroize(unlockKey)

	publicKey, privateKey, err := ks.Unlock(unlockKey)
	if err != nil {
		return nil, err
	}
	id, err := New(kind, publicKey, privateKey, device, age, jurisdiction, citizenshipVerified, nil)
	if err != nil {
		return nil, err
	}
	if did != "" && id.DID != did {
		return nil, errors.New("keystore yielded keys for a different identity")
	}
	return id, nil
}
