package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/starshippsychics/trust-engine/internal/config"
	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
	"github.com/starshippsychics/trust-engine/internal/events/kafka"
	"github.com/starshippsychics/trust-engine/internal/utils/metrics"
)

// LockoutService guards accounts against credential guessing. Every attempt
// lands in the append-only trail; the failure count is derived from the trail
// inside the failure window, and crossing the threshold installs a lockout
// row that blocks logins until it expires.
type LockoutService struct {
	attemptRepo repository.LoginAttemptRepository
	lockoutRepo repository.LockoutRepository
	audit       *AuditLogService
	cfg         config.LockoutConfig
	logger      *zap.Logger
}

func NewLockoutService(
	attemptRepo repository.LoginAttemptRepository,
	lockoutRepo repository.LockoutRepository,
	audit *AuditLogService,
	cfg config.LockoutConfig,
	logger *zap.Logger,
) *LockoutService {
	return &LockoutService{
		attemptRepo: attemptRepo,
		lockoutRepo: lockoutRepo,
		audit:       audit,
		cfg:         cfg,
		logger:      logger,
	}
}

// Status returns the current lockout state for the identity.
func (s *LockoutService) Status(ctx context.Context, identityHash string) (models.LockStatus, error) {
	lockout, err := s.lockoutRepo.FindActive(ctx, identityHash)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return models.LockStatus{}, nil
		}
		return models.LockStatus{}, fmt.Errorf("failed to check lockout: %w", err)
	}
	unlockAt := lockout.UnlockAt
	remaining := int(math.Ceil(time.Until(unlockAt).Minutes()))
	if remaining < 1 {
		remaining = 1
	}
	return models.LockStatus{
		Locked:           true,
		UnlockAt:         &unlockAt,
		MinutesRemaining: remaining,
	}, nil
}

// RecordFailure appends a failed attempt and, when the failure count inside
// the window reaches the threshold, installs (or refreshes) the lockout.
// Returns the post-failure lockout state.
func (s *LockoutService) RecordFailure(ctx context.Context, identityHash, reason string, reqCtx models.RequestContext) (models.LockStatus, error) {
	if err := s.appendAttempt(ctx, identityHash, false, reason, reqCtx); err != nil {
		return models.LockStatus{}, err
	}

	windowStart := time.Now().UTC().Add(-s.cfg.FailureWindow)
	failures, err := s.attemptRepo.CountRecentFailures(ctx, identityHash, windowStart)
	if err != nil {
		return models.LockStatus{}, fmt.Errorf("failed to count login failures: %w", err)
	}
	if failures < s.cfg.MaxFailedAttempts {
		return models.LockStatus{}, nil
	}

	now := time.Now().UTC()
	lockout := &models.AccountLockout{
		IdentityHash:   identityHash,
		FailedAttempts: failures,
		UnlockAt:       now.Add(s.cfg.LockoutDuration),
		CreatedAt:      now,
	}
	if err := s.lockoutRepo.Upsert(ctx, lockout); err != nil {
		return models.LockStatus{}, fmt.Errorf("failed to install lockout: %w", err)
	}

	metrics.LockoutsTriggeredTotal.Inc()
	s.logger.Info("account locked after repeated failures",
		zap.Int("failed_attempts", failures),
		zap.Time("unlock_at", lockout.UnlockAt),
	)
	s.audit.Record(ctx, AuditEntry{
		IdentityHash: identityHash,
		Action:       models.AuditActionAccountLockedAuto,
		Status:       models.AuditStatusBlocked,
		Request:      &reqCtx,
		Details: map[string]interface{}{
			"failedAttempts": failures,
			"unlockAt":       lockout.UnlockAt,
		},
	})
	s.audit.PublishEvent(kafka.EventTypeAccountLocked, identityHash, map[string]interface{}{
		"failedAttempts": failures,
		"unlockAt":       lockout.UnlockAt,
	})

	unlockAt := lockout.UnlockAt
	return models.LockStatus{
		Locked:           true,
		UnlockAt:         &unlockAt,
		MinutesRemaining: int(math.Ceil(s.cfg.LockoutDuration.Minutes())),
	}, nil
}

// RecordSuccess appends a successful attempt and clears any lockout row.
// A success resets the derived failure count.
func (s *LockoutService) RecordSuccess(ctx context.Context, identityHash string, reqCtx models.RequestContext) error {
	if err := s.appendAttempt(ctx, identityHash, true, "", reqCtx); err != nil {
		return err
	}
	if _, err := s.lockoutRepo.Delete(ctx, identityHash); err != nil {
		return fmt.Errorf("failed to clear lockout: %w", err)
	}
	return nil
}

func (s *LockoutService) appendAttempt(ctx context.Context, identityHash string, success bool, reason string, reqCtx models.RequestContext) error {
	attempt := &models.LoginAttempt{
		ID:           uuid.New(),
		IdentityHash: identityHash,
		IPAddress:    reqCtx.IPAddress,
		UserAgent:    reqCtx.UserAgent,
		Success:      success,
		Reason:       reason,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}
