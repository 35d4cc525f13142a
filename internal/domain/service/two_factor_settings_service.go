package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/security"
)

// TwoFactorSettingsView is the decrypted settings representation returned to
// the settings surface. The phone number is masked down to its tail.
type TwoFactorSettingsView struct {
	Enabled           bool           `json:"enabled"`
	Method            models.Channel `json:"method"`
	PhoneNumber       *string        `json:"phoneNumber,omitempty"`
	PersistentSession bool           `json:"persistentSession"`
}

// TwoFactorSettingsService reads and updates the per-identity second-factor
// configuration. An identity with no stored row reads as the defaults
// (enabled, email channel).
type TwoFactorSettingsService struct {
	repo      repository.TwoFactorSettingsRepository
	encryptor security.EncryptionService
	audit     *AuditLogService
	logger    *zap.Logger
}

func NewTwoFactorSettingsService(
	repo repository.TwoFactorSettingsRepository,
	encryptor security.EncryptionService,
	audit *AuditLogService,
	logger *zap.Logger,
) *TwoFactorSettingsService {
	return &TwoFactorSettingsService{
		repo:      repo,
		encryptor: encryptor,
		audit:     audit,
		logger:    logger,
	}
}

// Effective returns the stored settings or the defaults when no row exists.
func (s *TwoFactorSettingsService) Effective(ctx context.Context, identityHash string) (*models.TwoFactorSettings, error) {
	settings, err := s.repo.Find(ctx, identityHash)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return models.DefaultTwoFactorSettings(identityHash), nil
		}
		return nil, fmt.Errorf("failed to load two-factor settings: %w", err)
	}
	return settings, nil
}

// PhoneNumber returns the decrypted phone number for the identity, or
// ErrPhoneUnavailable when none is configured or the stored value cannot be
// decrypted. Both cases are the caller's 400, not a server fault: the number
// is unusable and the account should switch its method to email.
func (s *TwoFactorSettingsService) PhoneNumber(ctx context.Context, settings *models.TwoFactorSettings) (string, error) {
	if settings.PhoneNumberEncrypted == nil || *settings.PhoneNumberEncrypted == "" {
		return "", domainErrors.ErrPhoneUnavailable
	}
	phone, err := s.encryptor.Decrypt(*settings.PhoneNumberEncrypted)
	if err != nil {
		s.logger.Warn("stored phone number could not be decrypted", zap.Error(err))
		return "", fmt.Errorf("%w: stored phone number unreadable", domainErrors.ErrPhoneUnavailable)
	}
	return phone, nil
}

// Get returns the settings view for the identity.
func (s *TwoFactorSettingsService) Get(ctx context.Context, identityHash string) (*TwoFactorSettingsView, error) {
	settings, err := s.Effective(ctx, identityHash)
	if err != nil {
		return nil, err
	}
	return s.toView(settings), nil
}

// Update applies a partial update to the settings. Nil fields stay unchanged;
// a row is created lazily when none exists. Switching the method to SMS
// without a phone number on record fails validation.
func (s *TwoFactorSettingsService) Update(
	ctx context.Context, identityHash string,
	update models.TwoFactorSettingsUpdate, reqCtx models.RequestContext,
) (*TwoFactorSettingsView, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: no settings fields to update", domainErrors.ErrValidation)
	}
	if update.Method != nil && *update.Method != models.ChannelEmail && *update.Method != models.ChannelSMS {
		return nil, fmt.Errorf("%w: unknown method %q", domainErrors.ErrValidation, *update.Method)
	}

	settings, err := s.Effective(ctx, identityHash)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0, 4)
	if update.Enabled != nil {
		settings.Enabled = *update.Enabled
		changed = append(changed, "enabled")
	}
	if update.Method != nil {
		settings.Method = *update.Method
		changed = append(changed, "method")
	}
	if update.PhoneNumber != nil {
		encrypted, err := s.encryptor.Encrypt(*update.PhoneNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt phone number: %w", err)
		}
		settings.PhoneNumberEncrypted = &encrypted
		changed = append(changed, "phoneNumber")
	}
	if update.PersistentSession != nil {
		settings.PersistentSession = *update.PersistentSession
		changed = append(changed, "persistentSession")
	}

	if settings.Method == models.ChannelSMS && (settings.PhoneNumberEncrypted == nil || *settings.PhoneNumberEncrypted == "") {
		return nil, fmt.Errorf("%w: SMS delivery requires a phone number", domainErrors.ErrValidation)
	}

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save two-factor settings: %w", err)
	}

	s.audit.Record(ctx, AuditEntry{
		IdentityHash: identityHash,
		Action:       models.AuditAction2FASettingsUpdated,
		Status:       models.AuditStatusSuccess,
		Request:      &reqCtx,
		Details:      map[string]interface{}{"changedFields": changed},
	})
	return s.toView(settings), nil
}

func (s *TwoFactorSettingsService) toView(settings *models.TwoFactorSettings) *TwoFactorSettingsView {
	view := &TwoFactorSettingsView{
		Enabled:           settings.Enabled,
		Method:            settings.Method,
		PersistentSession: settings.PersistentSession,
	}
	if settings.PhoneNumberEncrypted != nil && *settings.PhoneNumberEncrypted != "" {
		if phone, err := s.encryptor.Decrypt(*settings.PhoneNumberEncrypted); err == nil {
			masked := maskPhone(phone)
			view.PhoneNumber = &masked
		} else {
			s.logger.Warn("failed to decrypt phone number for settings view", zap.Error(err))
		}
	}
	return view
}

// maskPhone keeps the last two digits of a phone number visible.
func maskPhone(phone string) string {
	runes := []rune(phone)
	if len(runes) <= 2 {
		return phone
	}
	masked := make([]rune, len(runes))
	for i, r := range runes {
		if i < len(runes)-2 && r >= '0' && r <= '9' {
			masked[i] = '*'
		} else {
			masked[i] = r
		}
	}
	return string(masked)
}
