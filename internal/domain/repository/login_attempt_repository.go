package repository

import (
	"context"
	"time"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
)

// LoginAttemptRepository appends to the login attempt trail and derives
// failure counts from it. Counting is a SQL aggregate over append-only rows,
// never an in-memory read-modify-write, so concurrent failures cannot
// under-count.
type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt *models.LoginAttempt) error

	// CountRecentFailures counts failed attempts for the identity created
	// after windowStart and after the identity's most recent successful
	// attempt (a success resets the effective count to zero).
	CountRecentFailures(ctx context.Context, identityHash string, windowStart time.Time) (int, error)
}

// LockoutRepository persists the active lockout row per identity.
type LockoutRepository interface {
	// FindActive returns the lockout whose unlock_at is still in the future,
	// or ErrNotFound.
	FindActive(ctx context.Context, identityHash string) (*models.AccountLockout, error)

	// Upsert atomically inserts or refreshes the lockout row keyed on
	// identity_hash.
	Upsert(ctx context.Context, lockout *models.AccountLockout) error

	// Delete removes the lockout row. Reports whether a row existed.
	Delete(ctx context.Context, identityHash string) (bool, error)
}
