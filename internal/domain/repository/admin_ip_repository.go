package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
)

// AdminTrustedIPRepository persists trusted network origins for privileged
// identities. Callers must pass origins through netaddr.Normalize before
// hashing; the repository only sees normalized values.
type AdminTrustedIPRepository interface {
	// FindTrustedByOriginHash returns the trusted record for
	// identityHash+originHash, or ErrNotFound. Soft-revoked rows do not match.
	FindTrustedByOriginHash(ctx context.Context, identityHash, originHash string) (*models.AdminTrustedIP, error)

	// Upsert atomically inserts or updates keyed on
	// (identity_hash, ip_address_hash): refreshes last_seen, re-marks trusted.
	Upsert(ctx context.Context, rec *models.AdminTrustedIP) error

	// RevokeByID soft-revokes one record with ownership enforced by the
	// identity hash. The row is retained for history.
	RevokeByID(ctx context.Context, identityHash string, id uuid.UUID) error

	// ListAll returns every origin record for the identity, trusted and
	// revoked, most recently seen first.
	ListAll(ctx context.Context, identityHash string) ([]*models.AdminTrustedIP, error)
}

// AdminLoginAttemptRepository appends to the privileged-login attempt trail.
type AdminLoginAttemptRepository interface {
	Create(ctx context.Context, attempt *models.AdminLoginAttempt) error

	// HasAttemptSince reports whether any attempt for the identity was
	// recorded after the given instant. Backs the alert dedup window.
	HasAttemptSince(ctx context.Context, identityHash string, since time.Time) (bool, error)
}
