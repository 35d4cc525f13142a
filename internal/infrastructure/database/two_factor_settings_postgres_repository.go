package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
)

type pgxTwoFactorSettingsRepository struct {
	db *pgxpool.Pool
}

// NewPgxTwoFactorSettingsRepository creates a new instance of pgxTwoFactorSettingsRepository.
func NewPgxTwoFactorSettingsRepository(db *pgxpool.Pool) repository.TwoFactorSettingsRepository {
	return &pgxTwoFactorSettingsRepository{db: db}
}

func (r *pgxTwoFactorSettingsRepository) Find(ctx context.Context, identityHash string) (*models.TwoFactorSettings, error) {
	query := `
		SELECT identity_hash, enabled, method, phone_number_encrypted, persistent_session, created_at, updated_at
		FROM two_factor_settings
		WHERE identity_hash = $1`
	s := &models.TwoFactorSettings{}
	err := r.db.QueryRow(ctx, query, identityHash).Scan(
		&s.IdentityHash, &s.Enabled, &s.Method, &s.PhoneNumberEncrypted,
		&s.PersistentSession, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find two-factor settings: %w", err)
	}
	return s, nil
}

func (r *pgxTwoFactorSettingsRepository) Upsert(ctx context.Context, settings *models.TwoFactorSettings) error {
	query := `
		INSERT INTO two_factor_settings (identity_hash, enabled, method, phone_number_encrypted, persistent_session, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (identity_hash) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			method = EXCLUDED.method,
			phone_number_encrypted = EXCLUDED.phone_number_encrypted,
			persistent_session = EXCLUDED.persistent_session,
			updated_at = NOW()`
	_, err := r.db.Exec(ctx, query,
		settings.IdentityHash, settings.Enabled, settings.Method,
		settings.PhoneNumberEncrypted, settings.PersistentSession,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert two-factor settings: %w", err)
	}
	return nil
}

var _ repository.TwoFactorSettingsRepository = (*pgxTwoFactorSettingsRepository)(nil)
