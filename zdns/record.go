// Copyright (C) 2024-2026, The ZHTP developers. All rights reserved.
// See the file LICENSE for licensing terms.

package zdns

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/zhtp/go-zhtp/contracts"
)

// ContentMode selects how a domain's content is served.
type ContentMode string

// Content modes.
const (
	ContentStatic ContentMode = "static"
	ContentSpa    ContentMode = "spa"
)

// Capability is the serving capability granted to a resolved domain.
type Capability string

// Capabilities.
const (
	// DownloadOnly restricts non-public domains to raw content fetch.
	DownloadOnly Capability = "download_only"
	// HttpServe serves static public content path-by-path.
	HttpServe Capability = "http_serve"
	// SpaServe serves a single-entry application with asset-prefix
	// bypass.
	SpaServe Capability = "spa_serve"
)

// DefaultSpaEntry is the fallback document for SPA domains.
const DefaultSpaEntry = "index.html"

// DefaultAssetPrefixes never fall through to the SPA entry.
var DefaultAssetPrefixes = []string{"/assets/", "/static/", "/js/", "/css/", "/images/"}

// maxRecordTTL caps how long a resolved record may be cached.
const maxRecordTTL = 3600 * time.Second

// Web4Record is the resolver's view of a registered domain.
type Web4Record struct {
	Domain          string            `json:"domain"`
	Owner           string            `json:"owner"`
	ContentMappings map[string]string `json:"content_mappings"`
	ContentMode     ContentMode       `json:"content_mode"`
	SpaEntry        string            `json:"spa_entry"`
	AssetPrefixes   []string          `json:"asset_prefixes"`
	Capability      Capability        `json:"capability"`
	TTL             time.Duration     `json:"ttl_secs"`
	RegisteredAt    uint64            `json:"registered_at"`
	ExpiresAt       uint64            `json:"expires_at"`
}

// HasContent reports whether the domain maps any paths.
func (r *Web4Record) HasContent() bool {
	return len(r.ContentMappings) > 0
}

// recordFromDomain maps a registry DomainRecord to a Web4Record. The
// TTL is the time until domain expiry capped at one hour; the owner is
// exposed as a truncated hash for privacy.
func recordFromDomain(d *contracts.DomainRecord, now time.Time) Web4Record {
	mode := ContentSpa
	if strings.ToLower(d.Metadata.Category) == "static" {
		mode = ContentStatic
	}

	capability := SpaServe
	switch {
	case !d.Metadata.Public:
		capability = DownloadOnly
	case mode == ContentStatic:
		capability = HttpServe
	}

	ttl := maxRecordTTL
	if until := time.Duration(int64(d.ExpiresAt)-now.Unix()) * time.Second; until < ttl {
		ttl = until
	}

	return Web4Record{
		Domain:          d.Domain,
		Owner:           hex.EncodeToString(d.OwnerHash[:16]),
		ContentMappings: d.ContentMappings,
		ContentMode:     mode,
		SpaEntry:        DefaultSpaEntry,
		AssetPrefixes:   DefaultAssetPrefixes,
		Capability:      capability,
		TTL:             ttl,
		RegisteredAt:    d.RegisteredAt,
		ExpiresAt:       d.ExpiresAt,
	}
}

// cachedRecord wraps a resolution result for the LRU. A nil record is
// a negative entry.
type cachedRecord struct {
	record   *Web4Record
	cachedAt time.Time
	ttl      time.Duration
}

// isExpired reports whether the cache entry has aged out.
func (c *cachedRecord) isExpired(now time.Time) bool {
	return now.Sub(c.cachedAt) >= c.ttl
}
