package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/starshippsychics/trust-engine/internal/config"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/security"
)

const testEncryptionKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestEncryptor(t *testing.T) security.EncryptionService {
	t.Helper()
	enc, err := security.NewAESGCMEncryptionService(testEncryptionKeyHex)
	require.NoError(t, err)
	return enc
}

func newTestPasswordService(t *testing.T) security.PasswordService {
	t.Helper()
	// Minimal parameters keep the tests fast; strength is not under test.
	svc, err := security.NewArgon2idPasswordService(security.Argon2idParams{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)
	return svc
}

// newTestAudit returns an audit service backed by a permissive mock store.
func newTestAudit(t *testing.T) (*AuditLogService, *MockAuditLogRepository) {
	t.Helper()
	repo := new(MockAuditLogRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Maybe()
	return NewAuditLogService(repo, newTestEncryptor(t), nil, zap.NewNop()), repo
}

func testLockoutConfig() config.LockoutConfig {
	return config.LockoutConfig{
		MaxFailedAttempts: 5,
		FailureWindow:     60 * time.Minute,
		LockoutDuration:   30 * time.Minute,
	}
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "trust-engine-test",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   24 * time.Hour,
		ChallengeTokenTTL: 10 * time.Minute,
	}
}

func encryptValue(t *testing.T, enc security.EncryptionService, plain string) string {
	t.Helper()
	out, err := enc.Encrypt(plain)
	require.NoError(t, err)
	return out
}
