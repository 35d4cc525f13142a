package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
	"github.com/starshippsychics/trust-engine/internal/events/kafka"
)

type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}
func (m *MockCredentialRepository) FindByEmailHash(ctx context.Context, emailHash string) (*models.Credential, error) {
	args := m.Called(ctx, emailHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Credential), args.Error(1)
}
func (m *MockCredentialRepository) FindByIdentityHash(ctx context.Context, identityHash string) (*models.Credential, error) {
	args := m.Called(ctx, identityHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Credential), args.Error(1)
}
func (m *MockCredentialRepository) UpdatePasswordHash(ctx context.Context, identityHash, passwordHash string) error {
	args := m.Called(ctx, identityHash, passwordHash)
	return args.Error(0)
}
func (m *MockCredentialRepository) SetEmailVerified(ctx context.Context, identityHash string, verified bool) error {
	args := m.Called(ctx, identityHash, verified)
	return args.Error(0)
}

type MockVerificationCodeRepository struct {
	mock.Mock
}

func (m *MockVerificationCodeRepository) Create(ctx context.Context, vc *models.VerificationCode) error {
	args := m.Called(ctx, vc)
	return args.Error(0)
}
func (m *MockVerificationCodeRepository) FindActiveByCodeHash(ctx context.Context, identityHash, codeHash string, purpose models.CodePurpose) (*models.VerificationCode, error) {
	args := m.Called(ctx, identityHash, codeHash, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerificationCode), args.Error(1)
}
func (m *MockVerificationCodeRepository) HasRecentUnconsumed(ctx context.Context, identityHash string, purpose models.CodePurpose, channel models.Channel, createdAfter time.Time) (bool, error) {
	args := m.Called(ctx, identityHash, purpose, channel, createdAfter)
	return args.Bool(0), args.Error(1)
}
func (m *MockVerificationCodeRepository) MarkConsumed(ctx context.Context, id uuid.UUID, consumedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, consumedAt)
	return args.Bool(0), args.Error(1)
}
func (m *MockVerificationCodeRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockTrustedDeviceRepository struct {
	mock.Mock
}

func (m *MockTrustedDeviceRepository) FindBySignalHash(ctx context.Context, identityHash, signalHash string) (*models.TrustedDevice, error) {
	args := m.Called(ctx, identityHash, signalHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrustedDevice), args.Error(1)
}
func (m *MockTrustedDeviceRepository) Upsert(ctx context.Context, device *models.TrustedDevice) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}
func (m *MockTrustedDeviceRepository) RevokeByID(ctx context.Context, identityHash string, id uuid.UUID) error {
	args := m.Called(ctx, identityHash, id)
	return args.Error(0)
}
func (m *MockTrustedDeviceRepository) RevokeAll(ctx context.Context, identityHash string) (int64, error) {
	args := m.Called(ctx, identityHash)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockTrustedDeviceRepository) RevokeBySignalHash(ctx context.Context, identityHash, signalHash string) (bool, error) {
	args := m.Called(ctx, identityHash, signalHash)
	return args.Bool(0), args.Error(1)
}
func (m *MockTrustedDeviceRepository) ListTrusted(ctx context.Context, identityHash string) ([]*models.TrustedDevice, error) {
	args := m.Called(ctx, identityHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TrustedDevice), args.Error(1)
}
func (m *MockTrustedDeviceRepository) ListAll(ctx context.Context, identityHash string) ([]*models.TrustedDevice, error) {
	args := m.Called(ctx, identityHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TrustedDevice), args.Error(1)
}
func (m *MockTrustedDeviceRepository) TouchLastActive(ctx context.Context, identityHash, signalHash string) error {
	args := m.Called(ctx, identityHash, signalHash)
	return args.Error(0)
}

type MockAdminTrustedIPRepository struct {
	mock.Mock
}

func (m *MockAdminTrustedIPRepository) FindTrustedByOriginHash(ctx context.Context, identityHash, originHash string) (*models.AdminTrustedIP, error) {
	args := m.Called(ctx, identityHash, originHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminTrustedIP), args.Error(1)
}
func (m *MockAdminTrustedIPRepository) Upsert(ctx context.Context, rec *models.AdminTrustedIP) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
func (m *MockAdminTrustedIPRepository) RevokeByID(ctx context.Context, identityHash string, id uuid.UUID) error {
	args := m.Called(ctx, identityHash, id)
	return args.Error(0)
}
func (m *MockAdminTrustedIPRepository) ListAll(ctx context.Context, identityHash string) ([]*models.AdminTrustedIP, error) {
	args := m.Called(ctx, identityHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AdminTrustedIP), args.Error(1)
}

type MockAdminLoginAttemptRepository struct {
	mock.Mock
}

func (m *MockAdminLoginAttemptRepository) Create(ctx context.Context, attempt *models.AdminLoginAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}
func (m *MockAdminLoginAttemptRepository) HasAttemptSince(ctx context.Context, identityHash string, since time.Time) (bool, error) {
	args := m.Called(ctx, identityHash, since)
	return args.Bool(0), args.Error(1)
}

type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
func (m *MockAuditLogRepository) List(ctx context.Context, params repository.ListAuditLogParams) ([]*models.AuditLog, int, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.AuditLog), args.Int(1), args.Error(2)
}

type MockTwoFactorSettingsRepository struct {
	mock.Mock
}

func (m *MockTwoFactorSettingsRepository) Find(ctx context.Context, identityHash string) (*models.TwoFactorSettings, error) {
	args := m.Called(ctx, identityHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TwoFactorSettings), args.Error(1)
}
func (m *MockTwoFactorSettingsRepository) Upsert(ctx context.Context, settings *models.TwoFactorSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

type MockLoginAttemptRepository struct {
	mock.Mock
}

func (m *MockLoginAttemptRepository) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}
func (m *MockLoginAttemptRepository) CountRecentFailures(ctx context.Context, identityHash string, windowStart time.Time) (int, error) {
	args := m.Called(ctx, identityHash, windowStart)
	return args.Int(0), args.Error(1)
}

type MockLockoutRepository struct {
	mock.Mock
}

func (m *MockLockoutRepository) FindActive(ctx context.Context, identityHash string) (*models.AccountLockout, error) {
	args := m.Called(ctx, identityHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountLockout), args.Error(1)
}
func (m *MockLockoutRepository) Upsert(ctx context.Context, lockout *models.AccountLockout) error {
	args := m.Called(ctx, lockout)
	return args.Error(0)
}
func (m *MockLockoutRepository) Delete(ctx context.Context, identityHash string) (bool, error) {
	args := m.Called(ctx, identityHash)
	return args.Bool(0), args.Error(1)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

type MockSMSVerifier struct {
	mock.Mock
}

func (m *MockSMSVerifier) StartVerification(ctx context.Context, phoneNumber string) error {
	args := m.Called(ctx, phoneNumber)
	return args.Error(0)
}
func (m *MockSMSVerifier) CheckVerification(ctx context.Context, phoneNumber, code string) (bool, error) {
	args := m.Called(ctx, phoneNumber, code)
	return args.Bool(0), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishSecurityEvent(eventType kafka.EventType, subject *string, dataPayload interface{}) error {
	args := m.Called(eventType, subject, dataPayload)
	return args.Error(0)
}
