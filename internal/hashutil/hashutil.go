// Package hashutil computes the short content hash used throughout
// wikitool for change detection between the wiki, the database, and
// the local filesystem.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashPrefixLen is the number of hex characters kept from the full
// SHA-256 digest (16 hex chars = 64 bits).
const hashPrefixLen = 16

// Content returns the first 16 hex characters of SHA-256(content).
// Deterministic and endian-agnostic: identical bytes always produce
// the identical hash, on any platform. Empty content hashes to the
// truncated SHA-256 of the empty string, not a sentinel value.
func Content(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:hashPrefixLen]
}

// ContentString is a convenience wrapper over Content for string input.
func ContentString(content string) string {
	return Content([]byte(content))
}

// Migration returns a short hash identifying a migration's SQL body,
// used to detect hand-edited or corrupted migrations at startup.
func Migration(sql string) string {
	return ContentString(sql)
}
