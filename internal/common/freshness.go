// Package common provides shared utilities for xapiport
package common

import "time"

// Freshness TTLs for cached artifacts
const (
	// FreshnessDefinitions bounds the age of the compiled endpoint
	// definitions before the PBX spec is fetched and recompiled.
	FreshnessDefinitions = 24 * time.Hour

	// FreshnessExportFile bounds how long a generated export file stays
	// downloadable before its token expires and the file is removed.
	FreshnessExportFile = 1 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
