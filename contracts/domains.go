// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package contracts

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrUnsupportedTLD is returned when a domain registration targets a
// TLD outside the sovereign namespaces.
var ErrUnsupportedTLD = errors.New("unsupported tld: only .zhtp and .sov resolve")

// SovereignTLDs are the only namespaces the domain registry accepts.
var SovereignTLDs = []string{".zhtp", ".sov"}

// DomainMetadata carries serving hints attached at registration time.
type DomainMetadata struct {
	Category string `json:"category"`
	Public   bool   `json:"public"`
}

// DomainRecord is one domain registry entry.
type DomainRecord struct {
	Domain          string            `json:"domain"`
	OwnerHash       [32]byte          `json:"owner_hash"`
	ContentMappings map[string]string `json:"content_mappings"`
	Metadata        DomainMetadata    `json:"metadata"`
	RegisteredAt    uint64            `json:"registered_at"`
	ExpiresAt       uint64            `json:"expires_at"`
}

// IsExpired reports whether the record's registration has lapsed.
func (r *DomainRecord) IsExpired(now time.Time) bool {
	return r.ExpiresAt < uint64(now.Unix())
}

// HasSovereignTLD reports whether domain ends in a sovereign TLD.
func HasSovereignTLD(domain string) bool {
	for _, tld := range SovereignTLDs {
		if strings.HasSuffix(domain, tld) {
			return true
		}
	}
	return false
}

// DomainLookup is the result of a registry lookup.
type DomainLookup struct {
	Found  bool
	Record *DomainRecord
}

// RegisterDomain inserts or replaces a domain record.
func (s *State) RegisterDomain(record DomainRecord) error {
	record.Domain = strings.ToLower(strings.TrimSpace(record.Domain))
	if !HasSovereignTLD(record.Domain) {
		return ErrUnsupportedTLD
	}
	if record.RegisteredAt == 0 {
		record.RegisteredAt = uint64(time.Now().Unix())
	}
	s.mu.Lock()
	s.domains[record.Domain] = &record
	s.mu.Unlock()
	return s.persist(domainPrefix, record.Domain, &record)
}

// LookupDomain resolves a domain record by exact name. The context is
// accepted for parity with networked registry backends; the in-memory
// path never blocks on it.
func (s *State) LookupDomain(ctx context.Context, domain string) (DomainLookup, error) {
	if err := ctx.Err(); err != nil {
		return DomainLookup{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.domains[strings.ToLower(strings.TrimSpace(domain))]
	if !ok {
		return DomainLookup{Found: false}, nil
	}
	copied := *record
	return DomainLookup{Found: true, Record: &copied}, nil
}

// RemoveDomain deletes a domain record, returning whether it existed.
func (s *State) RemoveDomain(domain string) (bool, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	s.mu.Lock()
	_, existed := s.domains[domain]
	delete(s.domains, domain)
	s.mu.Unlock()
	if !existed {
		return false, nil
	}
	return true, s.remove(domainPrefix, domain)
}

// DomainCount returns the number of registered domains.
func (s *State) DomainCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.domains)
}
