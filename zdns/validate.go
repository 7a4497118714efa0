// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package zdns

import "strings"

// Maximum lengths per DNS convention.
const (
	maxDomainLength = 253
	maxLabelLength  = 63
)

// IsValidDomain reports whether name is a well-formed sovereign
// domain: DNS-compliant labels (alphanumeric plus interior hyphen, no
// underscores), bounded lengths, and a .zhtp or .sov suffix.
func IsValidDomain(name string) bool {
	if name == "" || len(name) > maxDomainLength {
		return false
	}

	var tld string
	for _, candidate := range []string{".zhtp", ".sov"} {
		if strings.HasSuffix(name, candidate) {
			tld = candidate
			break
		}
	}
	if tld == "" {
		return false
	}

	// Validate every label left of the TLD.
	body := name[:len(name)-len(tld)]
	if body == "" {
		return false
	}
	for _, label := range strings.Split(body, ".") {
		if !isValidLabel(label) {
			return false
		}
	}
	return true
}

// isValidLabel checks one dot-separated label.
func isValidLabel(label string) bool {
	if label == "" || len(label) > maxLabelLength {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}
