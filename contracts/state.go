// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package contracts

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/luxfi/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Key prefixes in the backing store.
const (
	validatorPrefix = "v/"
	domainPrefix    = "d/"
	identityPrefix  = "i/"
	utxoPrefix      = "u/"
)

// IdentityRecord is one identity registry entry: the public linkage
// between a DID and the nodes and wallets it controls.
type IdentityRecord struct {
	DID             string   `json:"did"`
	IdentityType    string   `json:"identity_type"`
	ControlledNodes []string `json:"controlled_nodes"`
	OwnedWallets    []string `json:"owned_wallets"`
	PublicKey       []byte   `json:"public_key"`
	RegisteredAt    uint64   `json:"registered_at"`
}

// State is the addressable contract state. All maps are guarded by one
// read-mostly lock; the lock is never held across store I/O beyond the
// synchronous leveldb calls that back mutation.
type State struct {
	mu         sync.RWMutex
	log        log.Logger
	validators map[string]*ValidatorInfo
	domains    map[string]*DomainRecord
	identities map[string]*IdentityRecord
	utxos      map[string]*TransactionOutput

	// Contribution counters consumed by the reward pipelines, keyed by
	// node DID.
	routingContributions map[string]uint64
	storageContributions map[string]uint64

	db *leveldb.DB
}

// NewState returns an empty in-memory state.
func NewState(logger log.Logger) *State {
	return &State{
		log:                  logger,
		validators:           make(map[string]*ValidatorInfo),
		domains:              make(map[string]*DomainRecord),
		identities:           make(map[string]*IdentityRecord),
		utxos:                make(map[string]*TransactionOutput),
		routingContributions: make(map[string]uint64),
		storageContributions: make(map[string]uint64),
	}
}

// OpenState opens (or creates) a leveldb-backed state at path and
// loads every persisted record into memory.
func OpenState(path string, logger log.Logger) (*State, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	s := NewState(logger)
	s.db = db
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("contract state loaded",
		"validators", len(s.validators),
		"domains", len(s.domains),
		"identities", len(s.identities),
		"utxos", len(s.utxos))
	return s, nil
}

// Close releases the backing store, if any.
func (s *State) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RegisterIdentity inserts or replaces an identity registry entry.
func (s *State) RegisterIdentity(record IdentityRecord) error {
	s.mu.Lock()
	s.identities[record.DID] = &record
	s.mu.Unlock()
	return s.persist(identityPrefix, record.DID, &record)
}

// Identity looks up an identity registry entry by DID.
func (s *State) Identity(did string) (IdentityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.identities[did]
	if !ok {
		return IdentityRecord{}, false
	}
	return *r, true
}

// AddRoutingContribution credits routed traffic to a node.
func (s *State) AddRoutingContribution(did string, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routingContributions[did] += amount
}

// AddStorageContribution credits proven storage to a node.
func (s *State) AddStorageContribution(did string, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storageContributions[did] += amount
}

// PendingRoutingRewards returns the uncollected routing contribution
// total for a node.
func (s *State) PendingRoutingRewards(did string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.routingContributions[did]
}

// PendingStorageRewards returns the uncollected storage contribution
// total for a node.
func (s *State) PendingStorageRewards(did string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storageContributions[did]
}

// DebitRoutingRewards removes up to amount from a node's pending
// routing total, returning the amount actually debited.
func (s *State) DebitRoutingRewards(did string, amount uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return debit(s.routingContributions, did, amount)
}

// DebitStorageRewards removes up to amount from a node's pending
// storage total, returning the amount actually debited.
func (s *State) DebitStorageRewards(did string, amount uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return debit(s.storageContributions, did, amount)
}

func debit(m map[string]uint64, did string, amount uint64) uint64 {
	pending := m[did]
	if amount > pending {
		amount = pending
	}
	m[did] = pending - amount
	return amount
}

// persist writes a record through to the backing store when one is
// attached.
func (s *State) persist(prefix, key string, value any) error {
	if s.db == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s%s: %w", prefix, key, err)
	}
	if err := s.db.Put([]byte(prefix+key), data, nil); err != nil {
		return fmt.Errorf("persist %s%s: %w", prefix, key, err)
	}
	return nil
}

// remove deletes a record from the backing store when one is attached.
func (s *State) remove(prefix, key string) error {
	if s.db == nil {
		return nil
	}
	return s.db.Delete([]byte(prefix+key), nil)
}

// load replays the backing store into the in-memory maps.
func (s *State) load() error {
	for _, part := range []struct {
		prefix string
		insert func(key string, data []byte) error
	}{
		{validatorPrefix, func(key string, data []byte) error {
			var v ValidatorInfo
			if err := json.Unmarshal(data, &v); err != nil {
				return err
			}
			s.validators[key] = &v
			return nil
		}},
		{domainPrefix, func(key string, data []byte) error {
			var d DomainRecord
			if err := json.Unmarshal(data, &d); err != nil {
				return err
			}
			s.domains[key] = &d
			return nil
		}},
		{identityPrefix, func(key string, data []byte) error {
			var r IdentityRecord
			if err := json.Unmarshal(data, &r); err != nil {
				return err
			}
			s.identities[key] = &r
			return nil
		}},
		{utxoPrefix, func(key string, data []byte) error {
			var o TransactionOutput
			if err := json.Unmarshal(data, &o); err != nil {
				return err
			}
			s.utxos[key] = &o
			return nil
		}},
	} {
		iter := s.db.NewIterator(util.BytesPrefix([]byte(part.prefix)), nil)
		for iter.Next() {
			key := string(iter.Key())[len(part.prefix):]
			if err := part.insert(key, iter.Value()); err != nil {
				iter.Release()
				return fmt.Errorf("load %s%s: %w", part.prefix, key, err)
			}
		}
		err := iter.Error()
		iter.Release()
		if err != nil {
			return fmt.Errorf("iterate %s: %w", part.prefix, err)
		}
	}
	return nil
}
