package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
)

// VerificationCodeRepository persists one-time verification codes.
type VerificationCodeRepository interface {
	Create(ctx context.Context, vc *models.VerificationCode) error

	// FindActiveByCodeHash returns the newest unconsumed, unexpired code for
	// identityHash+codeHash+purpose, or ErrNotFound. Expiry is strict:
	// expires_at must be after now.
	FindActiveByCodeHash(ctx context.Context, identityHash, codeHash string, purpose models.CodePurpose) (*models.VerificationCode, error)

	// HasRecentUnconsumed reports whether an unconsumed, unexpired code for
	// identityHash+purpose+channel was created after the given instant. It
	// backs the dedup window that guards against duplicate sends.
	HasRecentUnconsumed(ctx context.Context, identityHash string, purpose models.CodePurpose, channel models.Channel, createdAfter time.Time) (bool, error)

	// MarkConsumed sets consumed_at if it is still null. Idempotent: marking
	// an already-consumed code reports alreadyConsumed=true, not an error.
	MarkConsumed(ctx context.Context, id uuid.UUID, consumedAt time.Time) (alreadyConsumed bool, err error)

	// DeleteExpiredBefore garbage-collects codes whose expiry predates cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
