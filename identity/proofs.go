// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package identity

import (
	"github.com/zhtp/go-zhtp/zk"
)

// ProveCredential builds a zero-knowledge credential proof from the
// identity's derived secret and claims. The identity must have been
// built through New; a hollow identity cannot prove anything.
func (id *Identity) ProveCredential(minAge, requiredJurisdiction, verificationLevel uint64) (*zk.Proof, error) {
	if err := id.ValidateSecretsDerived(); err != nil {
		return nil, err
	}
	var age uint64
	if id.Age != nil {
		age = *id.Age
	}
	return zk.ProveIdentity(
		id.ZKIdentitySecret,
		age,
		JurisdictionCode(id.Jurisdiction),
		id.ZKCredentialHash,
		minAge,
		requiredJurisdiction,
		verificationLevel,
	)
}

// ProveOwnership builds a range proof over the DAO voting power as a
// lightweight liveness statement for registration flows: it shows the
// identity's voting power lies in the valid range without restating
// the citizenship claims.
func (id *Identity) ProveOwnership() (*zk.Proof, error) {
	if err := id.ValidateSecretsDerived(); err != nil {
		return nil, err
	}
	return zk.ProveRange(id.DAOVotingPower, 0, 10, id.ZKIdentitySecret)
}
