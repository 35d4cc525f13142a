package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/security"
	"github.com/starshippsychics/trust-engine/internal/utils/netaddr"
)

// alertDedupWindow suppresses repeated new-origin alerts for the same
// identity within this interval.
const alertDedupWindow = 60 * time.Second

// AdminIPTrustService manages trusted network origins for privileged
// identities. Privileged accounts bypass the second factor only from an
// origin they have previously verified; an unrecognized origin triggers a
// mandatory challenge plus a security alert.
type AdminIPTrustService struct {
	ipRepo      repository.AdminTrustedIPRepository
	attemptRepo repository.AdminLoginAttemptRepository
	encryptor   security.EncryptionService
	logger      *zap.Logger
}

func NewAdminIPTrustService(
	ipRepo repository.AdminTrustedIPRepository,
	attemptRepo repository.AdminLoginAttemptRepository,
	encryptor security.EncryptionService,
	logger *zap.Logger,
) *AdminIPTrustService {
	return &AdminIPTrustService{
		ipRepo:      ipRepo,
		attemptRepo: attemptRepo,
		encryptor:   encryptor,
		logger:      logger,
	}
}

// CheckTrustedOrigin reports whether the request's origin is a trusted one
// for the identity. On a hit the record's last_seen is refreshed and a
// success row is appended to the attempt trail.
func (s *AdminIPTrustService) CheckTrustedOrigin(ctx context.Context, identityHash string, reqCtx models.RequestContext) (bool, error) {
	origin := netaddr.Normalize(reqCtx.IPAddress)
	if origin == "" {
		return false, nil
	}
	originHash := security.HashLookupValue(origin)

	rec, err := s.ipRepo.FindTrustedByOriginHash(ctx, identityHash, originHash)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up trusted origin: %w", err)
	}

	now := time.Now().UTC()
	rec.LastSeen = now
	if err := s.ipRepo.Upsert(ctx, rec); err != nil {
		s.logger.Warn("failed to refresh trusted origin last_seen", zap.Error(err))
	}
	s.appendAttempt(ctx, identityHash, reqCtx, models.AdminLoginSuccess, false)
	return true, nil
}

// ShouldSendAlert records the new-origin detection in the attempt trail and
// reports whether an alert should go out now. Detections for the same
// identity inside the dedup window are recorded but do not re-alert.
func (s *AdminIPTrustService) ShouldSendAlert(ctx context.Context, identityHash string, reqCtx models.RequestContext) (bool, error) {
	recent, err := s.attemptRepo.HasAttemptSince(ctx, identityHash, time.Now().UTC().Add(-alertDedupWindow))
	if err != nil {
		return false, fmt.Errorf("failed to check recent admin attempts: %w", err)
	}
	s.appendAttempt(ctx, identityHash, reqCtx, models.AdminLoginNewIPDetected, false)
	return !recent, nil
}

// MarkAlertSent appends the alert_sent row after the alert email went out.
func (s *AdminIPTrustService) MarkAlertSent(ctx context.Context, identityHash string, reqCtx models.RequestContext) {
	s.appendAttempt(ctx, identityHash, reqCtx, models.AdminLoginAlertSent, true)
}

// RecordTrustedOrigin marks the request's origin as trusted after the
// identity passed the challenge from it, and appends the 2fa_passed row.
func (s *AdminIPTrustService) RecordTrustedOrigin(ctx context.Context, identityHash string, reqCtx models.RequestContext) error {
	origin := netaddr.Normalize(reqCtx.IPAddress)
	if origin == "" {
		return fmt.Errorf("%w: no origin to trust", domainErrors.ErrValidation)
	}

	originEncrypted, err := s.encryptor.Encrypt(origin)
	if err != nil {
		return fmt.Errorf("failed to encrypt origin: %w", err)
	}

	now := time.Now().UTC()
	rec := &models.AdminTrustedIP{
		ID:                 uuid.New(),
		IdentityHash:       identityHash,
		IPAddressEncrypted: originEncrypted,
		IPAddressHash:      security.HashLookupValue(origin),
		DeviceName:         deviceLabel(reqCtx.UserAgent),
		BrowserInfo:        reqCtx.UserAgent,
		Trusted:            true,
		FirstSeen:          now,
		LastSeen:           now,
	}
	if err := s.ipRepo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("failed to store trusted origin: %w", err)
	}
	s.appendAttempt(ctx, identityHash, reqCtx, models.AdminLogin2FAPassed, false)
	return nil
}

// MarkChallengePassed appends the 2fa_passed row without granting origin
// trust. Passing the challenge alone never trusts the origin; the grant is a
// separate, explicit request.
func (s *AdminIPTrustService) MarkChallengePassed(ctx context.Context, identityHash string, reqCtx models.RequestContext) {
	s.appendAttempt(ctx, identityHash, reqCtx, models.AdminLogin2FAPassed, false)
}

// RevokeOrigin withdraws trust from one origin record, keeping the row.
func (s *AdminIPTrustService) RevokeOrigin(ctx context.Context, identityHash string, id uuid.UUID) error {
	return s.ipRepo.RevokeByID(ctx, identityHash, id)
}

// ListOrigins returns every origin record for the identity.
func (s *AdminIPTrustService) ListOrigins(ctx context.Context, identityHash string) ([]*models.AdminTrustedIP, error) {
	return s.ipRepo.ListAll(ctx, identityHash)
}

// appendAttempt writes to the attempt trail best effort; a full trail is
// diagnostic, not load-bearing for the trust decision.
func (s *AdminIPTrustService) appendAttempt(ctx context.Context, identityHash string, reqCtx models.RequestContext, status models.AdminLoginStatus, alertSent bool) {
	originEncrypted := ""
	if origin := netaddr.Normalize(reqCtx.IPAddress); origin != "" {
		if encrypted, err := s.encryptor.Encrypt(origin); err == nil {
			originEncrypted = encrypted
		}
	}
	attempt := &models.AdminLoginAttempt{
		ID:                 uuid.New(),
		IdentityHash:       identityHash,
		IPAddressEncrypted: originEncrypted,
		DeviceName:         deviceLabel(reqCtx.UserAgent),
		Status:             status,
		AlertSent:          alertSent,
		AttemptedAt:        time.Now().UTC(),
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		s.logger.Warn("failed to record admin login attempt",
			zap.Error(err), zap.String("status", string(status)))
	}
}
