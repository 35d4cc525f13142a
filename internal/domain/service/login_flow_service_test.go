package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/starshippsychics/trust-engine/internal/config"
	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/security"
)

const (
	testUserEmail    = "user@example.com"
	testAdminEmail   = "admin@example.com"
	testUserPassword = "correct horse battery staple"
)

type loginFlowFixture struct {
	svc *LoginFlowService

	credRepo         *MockCredentialRepository
	codeRepo         *MockVerificationCodeRepository
	deviceRepo       *MockTrustedDeviceRepository
	adminIPRepo      *MockAdminTrustedIPRepository
	adminAttemptRepo *MockAdminLoginAttemptRepository
	settingsRepo     *MockTwoFactorSettingsRepository
	attemptRepo      *MockLoginAttemptRepository
	lockoutRepo      *MockLockoutRepository
	emailSender      *MockEmailSender
	smsVerifier      *MockSMSVerifier

	enc    security.EncryptionService
	tokens *TokenService
}

func newLoginFlowFixture(t *testing.T) *loginFlowFixture {
	t.Helper()
	f := &loginFlowFixture{
		credRepo:         new(MockCredentialRepository),
		codeRepo:         new(MockVerificationCodeRepository),
		deviceRepo:       new(MockTrustedDeviceRepository),
		adminIPRepo:      new(MockAdminTrustedIPRepository),
		adminAttemptRepo: new(MockAdminLoginAttemptRepository),
		settingsRepo:     new(MockTwoFactorSettingsRepository),
		attemptRepo:      new(MockLoginAttemptRepository),
		lockoutRepo:      new(MockLockoutRepository),
		emailSender:      new(MockEmailSender),
		smsVerifier:      new(MockSMSVerifier),
	}
	f.enc = newTestEncryptor(t)
	passwords := newTestPasswordService(t)
	f.tokens = NewTokenService(testJWTConfig())

	log := zap.NewNop()
	audit, _ := newTestAudit(t)
	verification := NewVerificationService(f.codeRepo, f.emailSender, f.smsVerifier, f.enc,
		config.VerificationConfig{CodeTTL: 10 * time.Minute, PasswordResetTTL: 15 * time.Minute}, log)
	deviceTrust := NewDeviceTrustService(f.deviceRepo, f.enc, 30*24*time.Hour, log)
	adminTrust := NewAdminIPTrustService(f.adminIPRepo, f.adminAttemptRepo, f.enc, log)
	lockout := NewLockoutService(f.attemptRepo, f.lockoutRepo, audit, testLockoutConfig(), log)
	settings := NewTwoFactorSettingsService(f.settingsRepo, f.enc, audit, log)

	securityCfg := config.SecurityConfig{
		AdminEmails:         []string{testAdminEmail},
		DeviceTrustDuration: 30 * 24 * time.Hour,
		Lockout:             testLockoutConfig(),
	}
	f.svc = NewLoginFlowService(
		f.credRepo, passwords, f.tokens, verification, deviceTrust, adminTrust,
		lockout, settings, audit, f.enc, securityCfg, log,
	)
	return f
}

func (f *loginFlowFixture) credential(t *testing.T, email string) *models.Credential {
	t.Helper()
	passwords := newTestPasswordService(t)
	hash, err := passwords.HashPassword(testUserPassword)
	require.NoError(t, err)
	return &models.Credential{
		IdentityHash:   "identity-" + security.HashLookupValue(email)[:8],
		EmailEncrypted: encryptValue(t, f.enc, email),
		EmailHash:      security.HashLookupValue(security.NormalizeEmail(email)),
		PasswordHash:   hash,
		EmailVerified:  true,
	}
}

func (f *loginFlowFixture) expectNotLocked(identityHash string) {
	f.lockoutRepo.On("FindActive", mock.Anything, identityHash).Return(nil, domainErrors.ErrNotFound)
}

func (f *loginFlowFixture) expectSettings(identityHash string, settings *models.TwoFactorSettings) {
	if settings == nil {
		f.settingsRepo.On("Find", mock.Anything, identityHash).Return(nil, domainErrors.ErrNotFound)
		return
	}
	f.settingsRepo.On("Find", mock.Anything, identityHash).Return(settings, nil)
}

func (f *loginFlowFixture) expectSuccessRecorded(identityHash string) {
	f.attemptRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *models.LoginAttempt) bool {
		return a.Success && a.IdentityHash == identityHash
	})).Return(nil).Once()
	f.lockoutRepo.On("Delete", mock.Anything, identityHash).Return(true, nil).Once()
}

var testReqCtx = models.RequestContext{
	IPAddress: "203.0.113.7",
	UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/117.0",
	DeviceID:  "device-abc-123",
}

func TestLoginFlow_UnknownEmail(t *testing.T) {
	f := newLoginFlowFixture(t)

	f.credRepo.On("FindByEmailHash", mock.Anything, mock.Anything).Return(nil, domainErrors.ErrNotFound).Once()

	_, err := f.svc.Login(context.Background(), "nobody@example.com", "whatever", testReqCtx)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCredentials)
	// No identity was resolved, so nothing reaches the attempt trail.
	f.attemptRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoginFlow_LockedAccountBlockedBeforePasswordCheck(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testUserEmail)

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.lockoutRepo.On("FindActive", mock.Anything, cred.IdentityHash).Return(&models.AccountLockout{
		IdentityHash: cred.IdentityHash,
		UnlockAt:     time.Now().UTC().Add(25 * time.Minute),
	}, nil).Once()

	_, err := f.svc.Login(context.Background(), testUserEmail, testUserPassword, testReqCtx)

	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.True(t, locked.Status.Locked)
	assert.ErrorIs(t, err, domainErrors.ErrAccountLocked)
}

func TestLoginFlow_WrongPasswordCountsFailure(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testUserEmail)

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.attemptRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *models.LoginAttempt) bool {
		return !a.Success && a.Reason == "invalid_password"
	})).Return(nil).Once()
	f.attemptRepo.On("CountRecentFailures", mock.Anything, cred.IdentityHash, mock.Anything).Return(1, nil).Once()

	_, err := f.svc.Login(context.Background(), testUserEmail, "wrong password", testReqCtx)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCredentials)
	f.attemptRepo.AssertExpectations(t)
}

func TestLoginFlow_FifthFailureLocksAccount(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testUserEmail)

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.attemptRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.attemptRepo.On("CountRecentFailures", mock.Anything, cred.IdentityHash, mock.Anything).Return(5, nil).Once()
	f.lockoutRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.Login(context.Background(), testUserEmail, "wrong password", testReqCtx)

	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 30, locked.Status.MinutesRemaining)
}

func TestLoginFlow_DisabledSecondFactorAuthenticatesDirectly(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testUserEmail)

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.expectSettings(cred.IdentityHash, &models.TwoFactorSettings{
		IdentityHash: cred.IdentityHash,
		Enabled:      false,
		Method:       models.ChannelEmail,
	})
	f.expectSuccessRecorded(cred.IdentityHash)

	result, err := f.svc.Login(context.Background(), testUserEmail, testUserPassword, testReqCtx)
	require.NoError(t, err)
	require.NotNil(t, result.Tokens)
	assert.Nil(t, result.Challenge)

	subject, err := f.tokens.VerifyAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, cred.IdentityHash, subject)
}

func TestLoginFlow_TrustedDeviceSkipsChallenge(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testUserEmail)
	expiry := time.Now().UTC().Add(time.Hour)
	signalHash := security.HashLookupValue(testReqCtx.DeviceID)

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.expectSettings(cred.IdentityHash, nil) // defaults: enabled, email
	f.deviceRepo.On("FindBySignalHash", mock.Anything, cred.IdentityHash, signalHash).
		Return(&models.TrustedDevice{
			IdentityHash:          cred.IdentityHash,
			ClientSignalEncrypted: encryptValue(t, f.enc, testReqCtx.DeviceID),
			ClientSignalHash:      signalHash,
			Trusted:               true,
			TrustExpiry:           &expiry,
		}, nil).Once()
	f.deviceRepo.On("TouchLastActive", mock.Anything, cred.IdentityHash, signalHash).Return(nil).Once()
	f.expectSuccessRecorded(cred.IdentityHash)

	result, err := f.svc.Login(context.Background(), testUserEmail, testUserPassword, testReqCtx)
	require.NoError(t, err)
	require.NotNil(t, result.Tokens)

	// No challenge was dispatched.
	f.codeRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.emailSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginFlow_UntrustedDeviceGetsEmailChallenge(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testUserEmail)

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.expectSettings(cred.IdentityHash, nil)
	f.deviceRepo.On("FindBySignalHash", mock.Anything, cred.IdentityHash, mock.Anything).
		Return(nil, domainErrors.ErrNotFound).Once()
	f.codeRepo.On("HasRecentUnconsumed", mock.Anything, cred.IdentityHash, models.CodePurposeLogin, models.ChannelEmail, mock.Anything).
		Return(false, nil).Once()
	f.codeRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.emailSender.On("Send", mock.Anything, testUserEmail, mock.Anything, mock.Anything).Return(nil).Once()

	result, err := f.svc.Login(context.Background(), testUserEmail, testUserPassword, testReqCtx)
	require.NoError(t, err)
	assert.Nil(t, result.Tokens)
	require.NotNil(t, result.Challenge)
	assert.True(t, result.Challenge.Requires2FA)
	assert.Equal(t, models.ChannelEmail, result.Challenge.Method)

	// The temp token resolves to the identity but cannot act as a session.
	subject, err := f.tokens.VerifyChallengeToken(result.Challenge.TempToken)
	require.NoError(t, err)
	assert.Equal(t, cred.IdentityHash, subject)
	_, err = f.tokens.VerifyAccessToken(result.Challenge.TempToken)
	assert.Error(t, err)

	// Password was right, but no success is recorded until the code passes.
	f.lockoutRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestLoginFlow_SMSPreferenceRoutesToProvider(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testUserEmail)
	phoneEncrypted := encryptValue(t, f.enc, "+15551230000")

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.expectSettings(cred.IdentityHash, &models.TwoFactorSettings{
		IdentityHash:         cred.IdentityHash,
		Enabled:              true,
		Method:               models.ChannelSMS,
		PhoneNumberEncrypted: &phoneEncrypted,
	})
	f.deviceRepo.On("FindBySignalHash", mock.Anything, cred.IdentityHash, mock.Anything).
		Return(nil, domainErrors.ErrNotFound).Once()
	f.codeRepo.On("HasRecentUnconsumed", mock.Anything, cred.IdentityHash, models.CodePurposeLogin, models.ChannelSMS, mock.Anything).
		Return(false, nil).Once()
	f.smsVerifier.On("StartVerification", mock.Anything, "+15551230000").Return(nil).Once()

	result, err := f.svc.Login(context.Background(), testUserEmail, testUserPassword, testReqCtx)
	require.NoError(t, err)
	require.NotNil(t, result.Challenge)
	assert.Equal(t, models.ChannelSMS, result.Challenge.Method)
	f.smsVerifier.AssertExpectations(t)
}

func TestLoginFlow_SMSPreferenceWithoutPhoneFailsActionably(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testUserEmail)

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.expectSettings(cred.IdentityHash, &models.TwoFactorSettings{
		IdentityHash: cred.IdentityHash,
		Enabled:      true,
		Method:       models.ChannelSMS,
	})
	f.deviceRepo.On("FindBySignalHash", mock.Anything, cred.IdentityHash, mock.Anything).
		Return(nil, domainErrors.ErrNotFound).Once()

	_, err := f.svc.Login(context.Background(), testUserEmail, testUserPassword, testReqCtx)
	assert.ErrorIs(t, err, domainErrors.ErrPhoneUnavailable)

	// No silent rerouting: neither channel dispatched anything.
	f.emailSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.smsVerifier.AssertNotCalled(t, "StartVerification", mock.Anything, mock.Anything)
	f.codeRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoginFlow_SMSPreferenceWithUnreadablePhoneFailsActionably(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testUserEmail)
	corrupted := "not-a-valid-ciphertext"

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.expectSettings(cred.IdentityHash, &models.TwoFactorSettings{
		IdentityHash:         cred.IdentityHash,
		Enabled:              true,
		Method:               models.ChannelSMS,
		PhoneNumberEncrypted: &corrupted,
	})
	f.deviceRepo.On("FindBySignalHash", mock.Anything, cred.IdentityHash, mock.Anything).
		Return(nil, domainErrors.ErrNotFound).Once()

	_, err := f.svc.Login(context.Background(), testUserEmail, testUserPassword, testReqCtx)
	assert.ErrorIs(t, err, domainErrors.ErrPhoneUnavailable)
	f.smsVerifier.AssertNotCalled(t, "StartVerification", mock.Anything, mock.Anything)
}

func TestLoginFlow_VerifyTwoFactor_SuccessTrustsDevice(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testUserEmail)
	code := "042517"

	tempToken, err := f.tokens.IssueChallengeToken(cred.IdentityHash)
	require.NoError(t, err)

	f.credRepo.On("FindByIdentityHash", mock.Anything, cred.IdentityHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.expectSettings(cred.IdentityHash, nil)

	storedCode := &models.VerificationCode{
		IdentityHash: cred.IdentityHash,
		Purpose:      models.CodePurposeLogin,
		Channel:      models.ChannelEmail,
		CodeHash:     security.HashCode(code),
		ExpiresAt:    time.Now().UTC().Add(5 * time.Minute),
	}
	f.codeRepo.On("FindActiveByCodeHash", mock.Anything, cred.IdentityHash, security.HashCode(code), models.CodePurposeLogin).
		Return(storedCode, nil).Once()
	f.codeRepo.On("MarkConsumed", mock.Anything, storedCode.ID, mock.Anything).Return(false, nil).Once()
	f.expectSuccessRecorded(cred.IdentityHash)
	f.deviceRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(d *models.TrustedDevice) bool {
		return d.Trusted && d.IdentityHash == cred.IdentityHash
	})).Return(nil).Once()

	result, err := f.svc.VerifyTwoFactor(context.Background(), tempToken, code, true, testReqCtx)
	require.NoError(t, err)
	assert.True(t, result.DeviceTrusted)
	require.NotNil(t, result.Tokens)

	subject, err := f.tokens.VerifyAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, cred.IdentityHash, subject)
}

func TestLoginFlow_VerifyTwoFactor_WrongCodeCountsFailure(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testUserEmail)

	tempToken, err := f.tokens.IssueChallengeToken(cred.IdentityHash)
	require.NoError(t, err)

	f.credRepo.On("FindByIdentityHash", mock.Anything, cred.IdentityHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.expectSettings(cred.IdentityHash, nil)
	f.codeRepo.On("FindActiveByCodeHash", mock.Anything, cred.IdentityHash, mock.Anything, models.CodePurposeLogin).
		Return(nil, domainErrors.ErrNotFound).Once()
	f.attemptRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *models.LoginAttempt) bool {
		return !a.Success && a.Reason == "invalid_2fa_code"
	})).Return(nil).Once()
	f.attemptRepo.On("CountRecentFailures", mock.Anything, cred.IdentityHash, mock.Anything).Return(2, nil).Once()

	_, err = f.svc.VerifyTwoFactor(context.Background(), tempToken, "999999", false, testReqCtx)
	assert.ErrorIs(t, err, domainErrors.ErrInvalid2FACode)
	f.attemptRepo.AssertExpectations(t)
}

func TestLoginFlow_VerifyTwoFactor_GarbageTokenRejected(t *testing.T) {
	f := newLoginFlowFixture(t)

	_, err := f.svc.VerifyTwoFactor(context.Background(), "not-a-token", "123456", false, testReqCtx)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCredentials)
	f.credRepo.AssertNotCalled(t, "FindByIdentityHash", mock.Anything, mock.Anything)
}

func TestLoginFlow_AdminTrustedOriginBypasses(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testAdminEmail)
	originHash := security.HashLookupValue(testReqCtx.IPAddress)

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.adminIPRepo.On("FindTrustedByOriginHash", mock.Anything, cred.IdentityHash, originHash).
		Return(&models.AdminTrustedIP{
			IdentityHash:  cred.IdentityHash,
			IPAddressHash: originHash,
			Trusted:       true,
		}, nil).Once()
	f.adminIPRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()
	f.adminAttemptRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.expectSuccessRecorded(cred.IdentityHash)

	result, err := f.svc.Login(context.Background(), testAdminEmail, testUserPassword, testReqCtx)
	require.NoError(t, err)
	require.NotNil(t, result.Tokens)
	assert.Nil(t, result.Challenge)

	// The per-user settings are irrelevant for the privileged path.
	f.settingsRepo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
}

func TestLoginFlow_AdminNewOriginForcesChallengeWithAlert(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testAdminEmail)

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.adminIPRepo.On("FindTrustedByOriginHash", mock.Anything, cred.IdentityHash, mock.Anything).
		Return(nil, domainErrors.ErrNotFound).Once()
	f.adminAttemptRepo.On("HasAttemptSince", mock.Anything, cred.IdentityHash, mock.Anything).Return(false, nil).Once()
	f.adminAttemptRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.codeRepo.On("HasRecentUnconsumed", mock.Anything, cred.IdentityHash, models.CodePurposeLogin, models.ChannelEmail, mock.Anything).
		Return(false, nil).Once()
	f.codeRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	var subject string
	f.emailSender.On("Send", mock.Anything, testAdminEmail, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { subject = args.String(2) }).Return(nil).Once()

	result, err := f.svc.Login(context.Background(), testAdminEmail, testUserPassword, testReqCtx)
	require.NoError(t, err)
	require.NotNil(t, result.Challenge)
	assert.True(t, result.Challenge.Requires2FA)
	assert.True(t, result.Challenge.AdminNewIP)
	assert.Equal(t, models.ChannelEmail, result.Challenge.Method)
	assert.Contains(t, subject, "Security alert")
}

func TestLoginFlow_AdminRepeatedNewOriginSkipsAlert(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testAdminEmail)

	f.credRepo.On("FindByEmailHash", mock.Anything, cred.EmailHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)
	f.adminIPRepo.On("FindTrustedByOriginHash", mock.Anything, cred.IdentityHash, mock.Anything).
		Return(nil, domainErrors.ErrNotFound).Once()
	// A detection landed moments ago: re-challenge, do not re-alert.
	f.adminAttemptRepo.On("HasAttemptSince", mock.Anything, cred.IdentityHash, mock.Anything).Return(true, nil).Once()
	f.adminAttemptRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.codeRepo.On("HasRecentUnconsumed", mock.Anything, cred.IdentityHash, models.CodePurposeLogin, models.ChannelEmail, mock.Anything).
		Return(false, nil).Once()
	f.codeRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	var subject string
	f.emailSender.On("Send", mock.Anything, testAdminEmail, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { subject = args.String(2) }).Return(nil).Once()

	result, err := f.svc.Login(context.Background(), testAdminEmail, testUserPassword, testReqCtx)
	require.NoError(t, err)
	require.NotNil(t, result.Challenge)
	assert.NotContains(t, subject, "Security alert")
}

func (f *loginFlowFixture) expectAdminChallengePending(t *testing.T, cred *models.Credential, code string) {
	t.Helper()
	f.credRepo.On("FindByIdentityHash", mock.Anything, cred.IdentityHash).Return(cred, nil).Once()
	f.expectNotLocked(cred.IdentityHash)

	storedCode := &models.VerificationCode{
		IdentityHash: cred.IdentityHash,
		Purpose:      models.CodePurposeLogin,
		Channel:      models.ChannelEmail,
		CodeHash:     security.HashCode(code),
		ExpiresAt:    time.Now().UTC().Add(5 * time.Minute),
	}
	f.codeRepo.On("FindActiveByCodeHash", mock.Anything, cred.IdentityHash, security.HashCode(code), models.CodePurposeLogin).
		Return(storedCode, nil).Once()
	f.codeRepo.On("MarkConsumed", mock.Anything, storedCode.ID, mock.Anything).Return(false, nil).Once()
	f.expectSuccessRecorded(cred.IdentityHash)
}

func TestLoginFlow_AdminVerifyWithTrustRecordsTrustedOrigin(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testAdminEmail)
	code := "042517"

	tempToken, err := f.tokens.IssueChallengeToken(cred.IdentityHash)
	require.NoError(t, err)
	f.expectAdminChallengePending(t, cred, code)

	f.adminIPRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(rec *models.AdminTrustedIP) bool {
		return rec.Trusted && rec.IPAddressHash == security.HashLookupValue(testReqCtx.IPAddress)
	})).Return(nil).Once()
	f.adminAttemptRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *models.AdminLoginAttempt) bool {
		return a.Status == models.AdminLogin2FAPassed
	})).Return(nil).Once()

	result, err := f.svc.VerifyTwoFactor(context.Background(), tempToken, code, true, testReqCtx)
	require.NoError(t, err)
	require.NotNil(t, result.Tokens)
	assert.True(t, result.DeviceTrusted)
	f.adminIPRepo.AssertExpectations(t)
	// Admin trust lives in the origin store, never the device store.
	f.deviceRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestLoginFlow_AdminVerifyWithoutTrustLeavesOriginUntrusted(t *testing.T) {
	f := newLoginFlowFixture(t)
	cred := f.credential(t, testAdminEmail)
	code := "042517"

	tempToken, err := f.tokens.IssueChallengeToken(cred.IdentityHash)
	require.NoError(t, err)
	f.expectAdminChallengePending(t, cred, code)

	f.adminAttemptRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *models.AdminLoginAttempt) bool {
		return a.Status == models.AdminLogin2FAPassed
	})).Return(nil).Once()

	result, err := f.svc.VerifyTwoFactor(context.Background(), tempToken, code, false, testReqCtx)
	require.NoError(t, err)
	require.NotNil(t, result.Tokens)
	assert.False(t, result.DeviceTrusted)

	// Passing the challenge alone grants nothing durable: the next login from
	// this origin must challenge again.
	f.adminIPRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.deviceRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.adminAttemptRepo.AssertExpectations(t)
}
