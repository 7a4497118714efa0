// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package zdns

import "errors"

var (
	// ErrInvalidDomain is returned for names outside the sovereign
	// namespaces or violating DNS label rules.
	ErrInvalidDomain = errors.New("invalid domain")
	// ErrDomainNotFound is returned (and negatively cached) when the
	// registry has no record.
	ErrDomainNotFound = errors.New("domain not found")
	// ErrDomainExpired is returned when the registration has lapsed.
	ErrDomainExpired = errors.New("domain expired")
	// ErrRegistry wraps registry backend failures. These are never
	// cached.
	ErrRegistry = errors.New("registry error")
)
