// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package identity

import (
	"errors"
	"sync"

	"github.com/luxfi/log"

	"github.com/zhtp/go-zhtp/crypto/pq"
)

var (
	// ErrIdentityExists is returned when creating a DID already held.
	ErrIdentityExists = errors.New("identity already exists")
	// ErrIdentityNotFound is returned for unknown DIDs.
	ErrIdentityNotFound = errors.New("identity not found")
)

// Manager holds this device's identities. The first identity created
// becomes the primary one.
type Manager struct {
	mu         sync.RWMutex
	log        log.Logger
	identities map[string]*Identity
	primary    string
}

// NewManager returns an empty Manager.
func NewManager(logger log.Logger) *Manager {
	return &Manager{
		log:        logger,
		identities: make(map[string]*Identity),
	}
}

// Create generates a fresh keypair and derives a new identity from it.
func (m *Manager) Create(kind Kind, device string, age *uint64, jurisdiction *string, citizenshipVerified bool) (*Identity, error) {
	kp, err := pq.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	id, err := New(kind, kp.PublicKey(), kp.PrivateKey(), device, age, jurisdiction, citizenshipVerified, nil)
	if err != nil {
		return nil, err
	}
	if err := m.Add(id); err != nil {
		return nil, err
	}
	m.log.Info("identity created",
		"did", id.DID,
		"kind", id.Kind,
		"device", device,
		"voting_power", id.DAOVotingPower)
	return id, nil
}

// Add stores an identity built elsewhere (keystore load, import). The
// identity must have derived secrets.
func (m *Manager) Add(id *Identity) error {
	if err := id.ValidateSecretsDerived(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.identities[id.DID]; exists {
		return ErrIdentityExists
	}
	m.identities[id.DID] = id
	if m.primary == "" {
		m.primary = id.DID
	}
	return nil
}

// Get returns an identity by DID.
func (m *Manager) Get(did string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.identities[did]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return id, nil
}

// Primary returns the primary identity, if any.
func (m *Manager) Primary() (*Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.identities[m.primary]
	return id, ok
}

// SetPrimary switches the primary identity.
func (m *Manager) SetPrimary(did string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[did]; !ok {
		return ErrIdentityNotFound
	}
	m.primary = did
	return nil
}

// List returns the held DIDs.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dids := make([]string, 0, len(m.identities))
	for did := range m.identities {
		dids = append(dids, did)
	}
	return dids
}

// Remove forgets an identity. Removing the primary clears it.
func (m *Manager) Remove(did string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.identities[did]
	delete(m.identities, did)
	if m.primary == did {
		m.primary = ""
		for remaining := range m.identities {
			m.primary = remaining
			break
		}
	}
	return ok
}
