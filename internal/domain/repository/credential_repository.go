package repository

import (
	"context"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
)

// CredentialRepository persists the one-per-identity credential record.
type CredentialRepository interface {
	Create(ctx context.Context, cred *models.Credential) error

	// FindByEmailHash looks up by the deterministic hash of the normalized
	// email. Returns ErrNotFound when no credential matches.
	FindByEmailHash(ctx context.Context, emailHash string) (*models.Credential, error)

	FindByIdentityHash(ctx context.Context, identityHash string) (*models.Credential, error)

	UpdatePasswordHash(ctx context.Context, identityHash, passwordHash string) error

	SetEmailVerified(ctx context.Context, identityHash string, verified bool) error
}
