package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashIdentity returns the deterministic one-way digest of a user identifier.
// The digest is the join key used by every trust, verification and audit
// table; the raw identifier is never stored alongside searchable fields.
func HashIdentity(id string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(id)))
	return hex.EncodeToString(sum[:])
}

// HashLookupValue returns the deterministic digest of an already-normalized
// value (e.g. a lowercased email or a client signal). It exists because the
// encrypted copy of the same value is non-deterministic and cannot be indexed
// or compared.
func HashLookupValue(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizeEmail canonicalizes an email address before hashing or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
