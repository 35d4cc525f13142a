package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
)

// EncryptionService defines methods for encrypting and decrypting data at rest.
// Ciphertext is non-deterministic: two encryptions of the same plaintext
// differ, so equality checks must go through Decrypt or a parallel hash
// column, never through ciphertext comparison.
type EncryptionService interface {
	Encrypt(plainText string) (string, error)
	Decrypt(cipherTextBase64 string) (string, error)
}

// aesGCMEncryptionService implements EncryptionService using AES-256-GCM.
// The key is process-wide configuration, loaded once at startup.
type aesGCMEncryptionService struct {
	key []byte
}

// NewAESGCMEncryptionService creates an EncryptionService from a hex-encoded
// 32-byte key (64 characters).
func NewAESGCMEncryptionService(keyHex string) (EncryptionService, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("invalid key length: must be 32 bytes for AES-256")
	}
	return &aesGCMEncryptionService{key: key}, nil
}

// Encrypt encrypts plaintext with a random nonce. Output is base64 of
// nonce + ciphertext + tag.
func (s *aesGCMEncryptionService) Encrypt(plainText string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	cipherText := gcm.Seal(nil, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, cipherText...)), nil
}

// Decrypt decrypts base64-encoded (nonce + ciphertext + tag). Any failure —
// wrong key after rotation, tampered or corrupt data — surfaces as
// ErrDecryptionFailed so callers can treat the field as absent.
func (s *aesGCMEncryptionService) Decrypt(cipherTextBase64 string) (string, error) {
	nonceAndCiphertext, err := base64.StdEncoding.DecodeString(cipherTextBase64)
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode base64 ciphertext: %v", domainErrors.ErrDecryptionFailed, err)
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(nonceAndCiphertext) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short to contain nonce", domainErrors.ErrDecryptionFailed)
	}

	nonce, actualCiphertext := nonceAndCiphertext[:nonceSize], nonceAndCiphertext[nonceSize:]

	plainTextBytes, err := gcm.Open(nil, nonce, actualCiphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainErrors.ErrDecryptionFailed, err)
	}

	return string(plainTextBytes), nil
}

var _ EncryptionService = (*aesGCMEncryptionService)(nil)
