package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/starshippsychics/trust-engine/internal/config"
	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
	"github.com/starshippsychics/trust-engine/internal/events/kafka"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/security"
	"github.com/starshippsychics/trust-engine/internal/utils/metrics"
)

// AccountLockedError carries the lockout state alongside the sentinel so
// handlers can tell the caller when to retry.
type AccountLockedError struct {
	Status models.LockStatus
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry in %d minutes", e.Status.MinutesRemaining)
}

func (e *AccountLockedError) Unwrap() error {
	return domainErrors.ErrAccountLocked
}

// LoginFlowService orchestrates the password login, the trust decision and
// the second-factor verification. Per attempt it resolves exactly one of
// three outcomes: blocked (locked account), direct authentication (trusted
// device, trusted origin or disabled second factor), or a dispatched
// challenge that must be answered before tokens are issued.
type LoginFlowService struct {
	credentials  repository.CredentialRepository
	passwords    security.PasswordService
	tokens       *TokenService
	verification *VerificationService
	deviceTrust  *DeviceTrustService
	adminTrust   *AdminIPTrustService
	lockout      *LockoutService
	settings     *TwoFactorSettingsService
	audit        *AuditLogService
	encryptor    security.EncryptionService
	adminHashes  map[string]struct{}
	logger       *zap.Logger
}

func NewLoginFlowService(
	credentials repository.CredentialRepository,
	passwords security.PasswordService,
	tokens *TokenService,
	verification *VerificationService,
	deviceTrust *DeviceTrustService,
	adminTrust *AdminIPTrustService,
	lockout *LockoutService,
	settings *TwoFactorSettingsService,
	audit *AuditLogService,
	encryptor security.EncryptionService,
	securityCfg config.SecurityConfig,
	logger *zap.Logger,
) *LoginFlowService {
	adminHashes := make(map[string]struct{}, len(securityCfg.AdminEmails))
	for _, email := range securityCfg.AdminEmails {
		adminHashes[security.HashLookupValue(security.NormalizeEmail(email))] = struct{}{}
	}
	return &LoginFlowService{
		credentials:  credentials,
		passwords:    passwords,
		tokens:       tokens,
		verification: verification,
		deviceTrust:  deviceTrust,
		adminTrust:   adminTrust,
		lockout:      lockout,
		settings:     settings,
		audit:        audit,
		encryptor:    encryptor,
		adminHashes:  adminHashes,
		logger:       logger,
	}
}

// Login authenticates the password and runs the trust decision. On direct
// authentication the result carries tokens; otherwise it carries the
// challenge descriptor with a temporary token.
func (s *LoginFlowService) Login(ctx context.Context, email, password string, reqCtx models.RequestContext) (*models.LoginResult, error) {
	emailHash := security.HashLookupValue(security.NormalizeEmail(email))
	cred, err := s.credentials.FindByEmailHash(ctx, emailHash)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			// No resolved identity, so no lockout bookkeeping is possible.
			s.audit.Record(ctx, AuditEntry{
				Action:  models.AuditActionLoginFailed,
				Status:  models.AuditStatusFailure,
				Request: &reqCtx,
				Details: map[string]interface{}{"reason": "unknown_email"},
			})
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, domainErrors.ErrInvalidCredentials
		}
		return nil, err
	}
	identityHash := cred.IdentityHash

	if err := s.rejectIfLocked(ctx, identityHash, reqCtx); err != nil {
		return nil, err
	}

	match, err := s.passwords.CheckPasswordHash(password, cred.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, s.failAttempt(ctx, identityHash, "invalid_password", models.AuditActionLoginFailed, reqCtx)
	}

	challenge, err := s.decide(ctx, cred, reqCtx)
	if err != nil {
		return nil, err
	}

	if !challenge.Requires2FA {
		if err := s.lockout.RecordSuccess(ctx, identityHash, reqCtx); err != nil {
			return nil, err
		}
		tokens, err := s.tokens.IssueTokenPair(identityHash)
		if err != nil {
			return nil, err
		}
		metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
		return &models.LoginResult{Identity: identityHash, Tokens: tokens}, nil
	}

	metrics.LoginAttemptsTotal.WithLabelValues("challenge_issued").Inc()
	return &models.LoginResult{Identity: identityHash, Challenge: challenge}, nil
}

// CheckTwoFactor re-runs the trust decision for an already-authenticated
// identity, e.g. when a client re-opens a pending login.
func (s *LoginFlowService) CheckTwoFactor(ctx context.Context, identityHash string, reqCtx models.RequestContext) (*models.CheckTwoFactorResult, error) {
	cred, err := s.credentials.FindByIdentityHash(ctx, identityHash)
	if err != nil {
		return nil, err
	}
	if err := s.rejectIfLocked(ctx, identityHash, reqCtx); err != nil {
		return nil, err
	}
	return s.decide(ctx, cred, reqCtx)
}

// VerifyTwoFactor validates the submitted code against the pending challenge
// identified by the temporary token. On success it issues the session tokens
// and records the origin or device trust the caller asked for.
func (s *LoginFlowService) VerifyTwoFactor(
	ctx context.Context, tempToken, code string, trustDevice bool, reqCtx models.RequestContext,
) (*models.VerifyTwoFactorResult, error) {
	identityHash, err := s.tokens.VerifyChallengeToken(tempToken)
	if err != nil {
		return nil, err
	}
	cred, err := s.credentials.FindByIdentityHash(ctx, identityHash)
	if err != nil {
		return nil, err
	}
	if err := s.rejectIfLocked(ctx, identityHash, reqCtx); err != nil {
		return nil, err
	}

	channel, destination, err := s.challengeRoute(ctx, cred)
	if err != nil {
		return nil, err
	}

	if err := s.verification.Validate(ctx, identityHash, destination, code, models.CodePurposeLogin, channel); err != nil {
		if errors.Is(err, domainErrors.ErrInvalid2FACode) || errors.Is(err, domainErrors.ErrCodeAlreadyUsed) {
			s.audit.PublishEvent(kafka.EventTypeChallengeFailed, identityHash, nil)
			return nil, s.failAttempt(ctx, identityHash, "invalid_2fa_code", models.AuditAction2FAFailed, reqCtx)
		}
		return nil, err
	}

	if err := s.lockout.RecordSuccess(ctx, identityHash, reqCtx); err != nil {
		return nil, err
	}

	// The trust grant goes to the store the bypass check reads: origin trust
	// for privileged identities, device trust otherwise. Without an explicit
	// request nothing durable is written and the next login from this
	// origin/device challenges again.
	deviceTrusted := false
	if s.isPrivileged(cred) {
		if trustDevice {
			if err := s.adminTrust.RecordTrustedOrigin(ctx, identityHash, reqCtx); err != nil {
				s.logger.Warn("failed to record trusted origin after verification", zap.Error(err))
			} else {
				deviceTrusted = true
			}
		} else {
			s.adminTrust.MarkChallengePassed(ctx, identityHash, reqCtx)
		}
	} else if trustDevice {
		if err := s.deviceTrust.Trust(ctx, identityHash, reqCtx); err != nil {
			s.logger.Warn("failed to trust device after verification", zap.Error(err))
		} else {
			deviceTrusted = true
		}
	}

	s.audit.Record(ctx, AuditEntry{
		IdentityHash: identityHash,
		Action:       models.AuditAction2FAVerified,
		Status:       models.AuditStatusSuccess,
		Request:      &reqCtx,
		Details:      map[string]interface{}{"channel": channel, "deviceTrusted": deviceTrusted},
	})
	s.audit.PublishEvent(kafka.EventTypeChallengePassed, identityHash, map[string]interface{}{"channel": channel})

	tokens, err := s.tokens.IssueTokenPair(identityHash)
	if err != nil {
		return nil, err
	}
	return &models.VerifyTwoFactorResult{DeviceTrusted: deviceTrusted, Tokens: tokens}, nil
}

// decide runs the trust decision and, when a second factor is required,
// dispatches the challenge and mints the temporary token.
func (s *LoginFlowService) decide(ctx context.Context, cred *models.Credential, reqCtx models.RequestContext) (*models.CheckTwoFactorResult, error) {
	identityHash := cred.IdentityHash

	if s.isPrivileged(cred) {
		return s.decidePrivileged(ctx, cred, reqCtx)
	}

	settings, err := s.settings.Effective(ctx, identityHash)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return &models.CheckTwoFactorResult{Requires2FA: false}, nil
	}

	trusted, err := s.deviceTrust.CheckTrust(ctx, identityHash, reqCtx)
	if err != nil {
		return nil, err
	}
	if trusted {
		metrics.TrustBypassTotal.WithLabelValues("device").Inc()
		s.audit.Record(ctx, AuditEntry{
			IdentityHash: identityHash,
			Action:       models.AuditAction2FASkippedTrusted,
			Status:       models.AuditStatusSuccess,
			Request:      &reqCtx,
		})
		return &models.CheckTwoFactorResult{Requires2FA: false, TrustedDevice: true}, nil
	}

	channel, destination, err := s.challengeRoute(ctx, cred)
	if err != nil {
		return nil, err
	}
	if _, err := s.verification.Issue(ctx, identityHash, destination, models.CodePurposeLogin, channel); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		IdentityHash: identityHash,
		Action:       models.AuditAction2FARequested,
		Status:       models.AuditStatusSuccess,
		Request:      &reqCtx,
		Details:      map[string]interface{}{"channel": channel},
	})
	s.audit.PublishEvent(kafka.EventTypeChallengeIssued, identityHash, map[string]interface{}{"channel": channel})

	tempToken, err := s.tokens.IssueChallengeToken(identityHash)
	if err != nil {
		return nil, err
	}
	return &models.CheckTwoFactorResult{
		Requires2FA: true,
		TempToken:   tempToken,
		Method:      channel,
	}, nil
}

// decidePrivileged applies the origin-based policy for privileged accounts:
// a recognized origin bypasses the second factor, anything else forces an
// email challenge and raises a security alert (deduplicated per identity).
func (s *LoginFlowService) decidePrivileged(ctx context.Context, cred *models.Credential, reqCtx models.RequestContext) (*models.CheckTwoFactorResult, error) {
	identityHash := cred.IdentityHash

	trusted, err := s.adminTrust.CheckTrustedOrigin(ctx, identityHash, reqCtx)
	if err != nil {
		return nil, err
	}
	if trusted {
		metrics.TrustBypassTotal.WithLabelValues("admin_ip").Inc()
		s.audit.Record(ctx, AuditEntry{
			IdentityHash: identityHash,
			Action:       models.AuditAction2FASkippedTrusted,
			Status:       models.AuditStatusSuccess,
			Request:      &reqCtx,
			Details:      map[string]interface{}{"source": "trusted_origin"},
		})
		return &models.CheckTwoFactorResult{Requires2FA: false, AdminTrustedIP: true}, nil
	}

	email, err := s.encryptor.Decrypt(cred.EmailEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt account email: %w", err)
	}

	sendAlert, err := s.adminTrust.ShouldSendAlert(ctx, identityHash, reqCtx)
	if err != nil {
		return nil, err
	}
	if sendAlert {
		result, err := s.verification.IssueSecurityAlert(ctx, identityHash, email, deviceLabel(reqCtx.UserAgent), reqCtx.IPAddress)
		if err != nil {
			return nil, err
		}
		if !result.Reused {
			s.adminTrust.MarkAlertSent(ctx, identityHash, reqCtx)
		}
	} else {
		if _, err := s.verification.Issue(ctx, identityHash, email, models.CodePurposeLogin, models.ChannelEmail); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, AuditEntry{
		IdentityHash: identityHash,
		Action:       models.AuditAction2FARequestedAdminNewIP,
		Status:       models.AuditStatusSuccess,
		Request:      &reqCtx,
		Details:      map[string]interface{}{"alertSent": sendAlert},
	})
	s.audit.PublishEvent(kafka.EventTypeAdminNewOrigin, identityHash, nil)

	tempToken, err := s.tokens.IssueChallengeToken(identityHash)
	if err != nil {
		return nil, err
	}
	return &models.CheckTwoFactorResult{
		Requires2FA: true,
		TempToken:   tempToken,
		Method:      models.ChannelEmail,
		AdminNewIP:  true,
	}, nil
}

// challengeRoute resolves the delivery channel and destination for the
// identity's challenge. Privileged accounts always challenge over email; an
// SMS preference without a reachable phone number fails the request with
// ErrPhoneUnavailable.
func (s *LoginFlowService) challengeRoute(ctx context.Context, cred *models.Credential) (models.Channel, string, error) {
	email, err := s.encryptor.Decrypt(cred.EmailEncrypted)
	if err != nil {
		return "", "", fmt.Errorf("failed to decrypt account email: %w", err)
	}
	if s.isPrivileged(cred) {
		return models.ChannelEmail, email, nil
	}

	settings, err := s.settings.Effective(ctx, cred.IdentityHash)
	if err != nil {
		return "", "", err
	}
	if settings.Method == models.ChannelSMS {
		// An SMS preference without a reachable phone number fails the
		// request outright; the caller is told to switch the method to email
		// rather than being silently rerouted.
		phone, err := s.settings.PhoneNumber(ctx, settings)
		if err != nil {
			return "", "", err
		}
		return models.ChannelSMS, phone, nil
	}
	return models.ChannelEmail, email, nil
}

func (s *LoginFlowService) isPrivileged(cred *models.Credential) bool {
	_, ok := s.adminHashes[cred.EmailHash]
	return ok
}

// rejectIfLocked returns AccountLockedError when the identity is locked and
// records the blocked attempt.
func (s *LoginFlowService) rejectIfLocked(ctx context.Context, identityHash string, reqCtx models.RequestContext) error {
	status, err := s.lockout.Status(ctx, identityHash)
	if err != nil {
		return err
	}
	if !status.Locked {
		return nil
	}
	metrics.LoginAttemptsTotal.WithLabelValues("locked").Inc()
	s.audit.Record(ctx, AuditEntry{
		IdentityHash: identityHash,
		Action:       models.AuditActionLoginBlockedLocked,
		Status:       models.AuditStatusBlocked,
		Request:      &reqCtx,
		Details:      map[string]interface{}{"minutesRemaining": status.MinutesRemaining},
	})
	s.audit.PublishEvent(kafka.EventTypeLoginBlocked, identityHash, map[string]interface{}{
		"minutesRemaining": status.MinutesRemaining,
	})
	return &AccountLockedError{Status: status}
}

// failAttempt records the failure in the lockout guard and the audit trail,
// returning AccountLockedError when this failure tripped the threshold and
// the credential sentinel otherwise.
func (s *LoginFlowService) failAttempt(ctx context.Context, identityHash, reason, auditAction string, reqCtx models.RequestContext) error {
	status, err := s.lockout.RecordFailure(ctx, identityHash, reason, reqCtx)
	if err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{
		IdentityHash: identityHash,
		Action:       auditAction,
		Status:       models.AuditStatusFailure,
		Request:      &reqCtx,
		Details:      map[string]interface{}{"reason": reason},
	})
	metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
	if status.Locked {
		return &AccountLockedError{Status: status}
	}
	if auditAction == models.AuditAction2FAFailed {
		return domainErrors.ErrInvalid2FACode
	}
	return domainErrors.ErrInvalidCredentials
}
