package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
)

var codeFormat = regexp.MustCompile(`^\d{6}$`)

// GenerateNumericCode returns a uniformly random 6-digit code, always
// zero-padded ("000000"–"999999").
func GenerateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ValidateCodeFormat reports whether code is exactly 6 ASCII digits.
// Pure function, independent of storage.
func ValidateCodeFormat(code string) bool {
	return codeFormat.MatchString(code)
}

// HashCode returns the digest under which a verification code is stored.
// Codes are never persisted in the clear.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
