package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
)

// TrustedDeviceRepository persists per-identity device trust grants.
type TrustedDeviceRepository interface {
	// FindBySignalHash returns the record for identityHash+signalHash
	// regardless of trust state, or ErrNotFound.
	FindBySignalHash(ctx context.Context, identityHash, signalHash string) (*models.TrustedDevice, error)

	// Upsert atomically inserts or updates the record keyed on
	// (identity_hash, client_signal_hash). Concurrent upserts for the same
	// key converge on the last writer; both writers intend the same outcome.
	Upsert(ctx context.Context, device *models.TrustedDevice) error

	// RevokeByID soft-revokes one record (trusted=false, expiry cleared),
	// with ownership enforced by the identity hash. Returns ErrNotFound when
	// no row matches.
	RevokeByID(ctx context.Context, identityHash string, id uuid.UUID) error

	// RevokeAll soft-revokes every record for the identity and returns the
	// number of rows touched.
	RevokeAll(ctx context.Context, identityHash string) (int64, error)

	// RevokeBySignalHash soft-revokes the record matching the signal hash.
	// Reports whether a row was updated.
	RevokeBySignalHash(ctx context.Context, identityHash, signalHash string) (bool, error)

	// ListTrusted returns records with live trust (trusted and expiry
	// strictly in the future), most recently active first.
	ListTrusted(ctx context.Context, identityHash string) ([]*models.TrustedDevice, error)

	// ListAll returns every record for the identity, revoked rows included,
	// most recently active first.
	ListAll(ctx context.Context, identityHash string) ([]*models.TrustedDevice, error)

	// TouchLastActive refreshes last_active for the record matching the
	// signal hash.
	TouchLastActive(ctx context.Context, identityHash, signalHash string) error
}
