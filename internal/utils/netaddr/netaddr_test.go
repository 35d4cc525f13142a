package netaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain ipv4", "203.0.113.5", "203.0.113.5"},
		{"ipv4 mapped ipv6", "::ffff:203.0.113.5", "203.0.113.5"},
		{"ipv4 mapped ipv6 uppercase prefix", "::FFFF:203.0.113.5", "203.0.113.5"},
		{"ipv6 loopback", "::1", "localhost"},
		{"ipv4 loopback untouched", "127.0.0.1", "127.0.0.1"},
		{"surrounding whitespace", "  198.51.100.7  ", "198.51.100.7"},
		{"ipv6 lowercased", "2001:DB8::8a2e:370:7334", "2001:db8::8a2e:370:7334"},
		{"hostname lowercased", "Localhost", "localhost"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"203.0.113.5",
		"::ffff:203.0.113.5",
		"::1",
		" 2001:DB8::1 ",
		"localhost",
		"",
		"::ffff:10.0.0.1",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize must be a fixed point on its own output: %q", in)
	}
}

func TestNormalizeLoopbackFormsConverge(t *testing.T) {
	// The IPv6 loopback and the "localhost" token must land on the same value,
	// otherwise trust rows written from one form never match the other.
	assert.Equal(t, Normalize("localhost"), Normalize("::1"))
	assert.Equal(t, Normalize("203.0.113.5"), Normalize("::ffff:203.0.113.5"))
}
