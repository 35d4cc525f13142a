package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/starshippsychics/trust-engine/internal/config"
	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/interfaces"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/security"
	"github.com/starshippsychics/trust-engine/internal/utils/metrics"
)

// dedupWindow is how long after a dispatch a repeated issue request for the
// same identity+purpose+channel reuses the in-flight challenge instead of
// sending again.
const dedupWindow = 60 * time.Second

// IssueResult reports how an issue request was satisfied.
type IssueResult struct {
	Channel models.Channel
	// Reused is true when an in-flight challenge absorbed the request and no
	// new dispatch happened.
	Reused bool
}

// challengeBackend is one delivery channel's issue/check strategy. The email
// backend stores a hashed code locally and sends it; the SMS backend delegates
// both generation and checking to the managed provider and stores nothing.
type challengeBackend interface {
	issue(ctx context.Context, identityHash, destination string, purpose models.CodePurpose) error
	check(ctx context.Context, identityHash, destination, code string, purpose models.CodePurpose) error
}

// VerificationService issues and validates one-time verification challenges
// across delivery channels.
type VerificationService struct {
	codeRepo repository.VerificationCodeRepository
	email    *storedCodeBackend
	sms      challengeBackend
	logger   *zap.Logger
}

func NewVerificationService(
	codeRepo repository.VerificationCodeRepository,
	emailSender interfaces.EmailSender,
	smsVerifier interfaces.SMSVerifier,
	encryptor security.EncryptionService,
	cfg config.VerificationConfig,
	logger *zap.Logger,
) *VerificationService {
	return &VerificationService{
		codeRepo: codeRepo,
		email: &storedCodeBackend{
			codeRepo:  codeRepo,
			sender:    emailSender,
			encryptor: encryptor,
			cfg:       cfg,
		},
		sms:    &providerManagedBackend{verifier: smsVerifier},
		logger: logger,
	}
}

// Issue dispatches a verification challenge to the destination, unless an
// unconsumed challenge for the same identity+purpose+channel was dispatched
// within the dedup window, in which case the in-flight one is reused and
// nothing is sent.
func (s *VerificationService) Issue(
	ctx context.Context, identityHash, destination string,
	purpose models.CodePurpose, channel models.Channel,
) (*IssueResult, error) {
	recent, err := s.codeRepo.HasRecentUnconsumed(ctx, identityHash, purpose, channel, time.Now().UTC().Add(-dedupWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to check for in-flight challenge: %w", err)
	}
	if recent {
		metrics.ChallengeDedupHitsTotal.Inc()
		s.logger.Debug("challenge request deduplicated",
			zap.String("purpose", string(purpose)),
			zap.String("channel", string(channel)),
		)
		return &IssueResult{Channel: channel, Reused: true}, nil
	}

	backend, err := s.backendFor(channel)
	if err != nil {
		return nil, err
	}
	if err := backend.issue(ctx, identityHash, destination, purpose); err != nil {
		return nil, err
	}

	metrics.ChallengesIssuedTotal.WithLabelValues(string(channel)).Inc()
	return &IssueResult{Channel: channel}, nil
}

// Validate checks a submitted code and consumes it on success. A consumed or
// expired code fails with ErrInvalid2FACode; success is single-use.
func (s *VerificationService) Validate(
	ctx context.Context, identityHash, destination, code string,
	purpose models.CodePurpose, channel models.Channel,
) error {
	if !security.ValidateCodeFormat(code) {
		metrics.ChallengeValidationsTotal.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: malformed code", domainErrors.ErrInvalid2FACode)
	}

	backend, err := s.backendFor(channel)
	if err != nil {
		return err
	}
	if err := backend.check(ctx, identityHash, destination, code, purpose); err != nil {
		metrics.ChallengeValidationsTotal.WithLabelValues("invalid").Inc()
		return err
	}
	metrics.ChallengeValidationsTotal.WithLabelValues("valid").Inc()
	return nil
}

// IssueSecurityAlert dispatches a login challenge whose email carries a
// new-location security alert alongside the code, in a single message. Used
// for privileged accounts signing in from an unrecognized origin. The same
// dedup window applies as for plain challenges.
func (s *VerificationService) IssueSecurityAlert(
	ctx context.Context, identityHash, email, deviceName, origin string,
) (*IssueResult, error) {
	recent, err := s.codeRepo.HasRecentUnconsumed(ctx, identityHash, models.CodePurposeLogin, models.ChannelEmail, time.Now().UTC().Add(-dedupWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to check for in-flight challenge: %w", err)
	}
	if recent {
		metrics.ChallengeDedupHitsTotal.Inc()
		return &IssueResult{Channel: models.ChannelEmail, Reused: true}, nil
	}

	content := func(code string, ttl time.Duration) (string, string) {
		body := fmt.Sprintf(
			"<p>A sign-in to your account was attempted from a new location.</p>"+
				"<p>Device: %s<br>Address: %s</p>"+
				"<p>If this was you, enter this verification code to continue:</p><h2>%s</h2>"+
				"<p>The code expires in %d minutes. If this was not you, change your password immediately.</p>",
			deviceName, origin, code, int(ttl.Minutes()),
		)
		return "Security alert: sign-in from a new location", body
	}
	if err := s.email.issueWithContent(ctx, identityHash, email, models.CodePurposeLogin, content); err != nil {
		return nil, err
	}

	metrics.ChallengesIssuedTotal.WithLabelValues(string(models.ChannelEmail)).Inc()
	return &IssueResult{Channel: models.ChannelEmail}, nil
}

// PurgeExpired garbage-collects codes expired before the cutoff.
func (s *VerificationService) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.codeRepo.DeleteExpiredBefore(ctx, cutoff)
}

func (s *VerificationService) backendFor(channel models.Channel) (challengeBackend, error) {
	switch channel {
	case models.ChannelEmail:
		return s.email, nil
	case models.ChannelSMS:
		return s.sms, nil
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", domainErrors.ErrValidation, channel)
	}
}

// storedCodeBackend generates a code locally, stores its hash and sends it
// to the destination email.
type storedCodeBackend struct {
	codeRepo  repository.VerificationCodeRepository
	sender    interfaces.EmailSender
	encryptor security.EncryptionService
	cfg       config.VerificationConfig
}

func (b *storedCodeBackend) issue(ctx context.Context, identityHash, destination string, purpose models.CodePurpose) error {
	return b.issueWithContent(ctx, identityHash, destination, purpose, func(code string, ttl time.Duration) (string, string) {
		return emailContent(purpose, code, ttl)
	})
}

func (b *storedCodeBackend) issueWithContent(
	ctx context.Context, identityHash, destination string, purpose models.CodePurpose,
	content func(code string, ttl time.Duration) (subject, body string),
) error {
	code, err := security.GenerateNumericCode()
	if err != nil {
		return err
	}
	destinationEncrypted, err := b.encryptor.Encrypt(destination)
	if err != nil {
		return fmt.Errorf("failed to encrypt challenge destination: %w", err)
	}

	now := time.Now().UTC()
	vc := &models.VerificationCode{
		ID:                   uuid.New(),
		IdentityHash:         identityHash,
		DestinationEncrypted: destinationEncrypted,
		Purpose:              purpose,
		Channel:              models.ChannelEmail,
		CodeHash:             security.HashCode(code),
		CreatedAt:            now,
		ExpiresAt:            now.Add(b.ttlFor(purpose)),
	}
	if err := b.codeRepo.Create(ctx, vc); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	subject, body := content(code, vc.ExpiresAt.Sub(now))
	if err := b.sender.Send(ctx, destination, subject, body); err != nil {
		return err
	}
	return nil
}

func (b *storedCodeBackend) check(ctx context.Context, identityHash, _ string, code string, purpose models.CodePurpose) error {
	vc, err := b.codeRepo.FindActiveByCodeHash(ctx, identityHash, security.HashCode(code), purpose)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return domainErrors.ErrInvalid2FACode
		}
		return err
	}

	alreadyConsumed, err := b.codeRepo.MarkConsumed(ctx, vc.ID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}
	if alreadyConsumed {
		// Lost a race with a concurrent submission of the same code.
		return domainErrors.ErrCodeAlreadyUsed
	}
	return nil
}

func (b *storedCodeBackend) ttlFor(purpose models.CodePurpose) time.Duration {
	if purpose == models.CodePurposePasswordReset {
		return b.cfg.PasswordResetTTL
	}
	return b.cfg.CodeTTL
}

// providerManagedBackend delegates the whole challenge lifecycle to the
// managed SMS verification provider. No local verification_codes row exists
// for this channel; single use and expiry are the provider's contract.
type providerManagedBackend struct {
	verifier interfaces.SMSVerifier
}

func (b *providerManagedBackend) issue(ctx context.Context, _, destination string, _ models.CodePurpose) error {
	if destination == "" {
		return domainErrors.ErrPhoneUnavailable
	}
	return b.verifier.StartVerification(ctx, destination)
}

func (b *providerManagedBackend) check(ctx context.Context, _, destination, code string, _ models.CodePurpose) error {
	if destination == "" {
		return domainErrors.ErrPhoneUnavailable
	}
	approved, err := b.verifier.CheckVerification(ctx, destination, code)
	if err != nil {
		return fmt.Errorf("failed to check verification with provider: %w", err)
	}
	if !approved {
		return domainErrors.ErrInvalid2FACode
	}
	return nil
}

func emailContent(purpose models.CodePurpose, code string, ttl time.Duration) (subject, body string) {
	minutes := int(ttl.Minutes())
	switch purpose {
	case models.CodePurposePasswordReset:
		subject = "Your password reset code"
	case models.CodePurposeEmailVerification:
		subject = "Confirm your email address"
	default:
		subject = "Your sign-in verification code"
	}
	body = fmt.Sprintf(
		"<p>Your verification code is:</p><h2>%s</h2><p>This code expires in %d minutes. If you did not request it, you can ignore this email.</p>",
		code, minutes,
	)
	return subject, body
}
