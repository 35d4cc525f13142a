package repository

import (
	"context"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
)

// TwoFactorSettingsRepository persists per-identity second-factor settings.
type TwoFactorSettingsRepository interface {
	// Find returns the settings row or ErrNotFound; callers fall back to
	// models.DefaultTwoFactorSettings when absent.
	Find(ctx context.Context, identityHash string) (*models.TwoFactorSettings, error)

	// Upsert lazily creates or replaces the settings row in one atomic
	// statement keyed on identity_hash.
	Upsert(ctx context.Context, settings *models.TwoFactorSettings) error
}
