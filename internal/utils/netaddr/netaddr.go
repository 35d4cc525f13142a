// Package netaddr holds the single origin-normalization routine used by every
// path that stores or compares a network origin. The system previously had two
// slightly different copies of this logic; trust rows written through one copy
// could never be matched by reads through the other, so there must be exactly
// one implementation.
package netaddr

import (
	"regexp"
	"strings"
)

var ipv4Mapped = regexp.MustCompile(`^::ffff:(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})$`)

// Normalize canonicalizes a network origin for storage and comparison.
// Transformations, in order: trim whitespace, strip the IPv4-mapped IPv6
// prefix ("::ffff:203.0.113.5" becomes "203.0.113.5"), map the IPv6 loopback
// literal "::1" to "localhost", lowercase. Idempotent.
func Normalize(origin string) string {
	normalized := strings.TrimSpace(origin)
	normalized = strings.ToLower(normalized)

	if m := ipv4Mapped.FindStringSubmatch(normalized); m != nil {
		normalized = m[1]
	}
	if normalized == "::1" {
		normalized = "localhost"
	}
	return normalized
}
