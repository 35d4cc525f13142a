package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/user_agent"
	"go.uber.org/zap"

	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
	"github.com/starshippsychics/trust-engine/internal/infrastructure/security"
)

// DeviceTrustService manages per-identity device trust grants. A device is
// identified by its client signal (persistent device ID, or User-Agent as
// fallback); lookup goes through the deterministic signal hash, then the
// decrypted stored signal is compared against the presented one before any
// trust is honored.
type DeviceTrustService struct {
	repo          repository.TrustedDeviceRepository
	encryptor     security.EncryptionService
	trustDuration time.Duration
	logger        *zap.Logger
}

func NewDeviceTrustService(
	repo repository.TrustedDeviceRepository,
	encryptor security.EncryptionService,
	trustDuration time.Duration,
	logger *zap.Logger,
) *DeviceTrustService {
	return &DeviceTrustService{
		repo:          repo,
		encryptor:     encryptor,
		trustDuration: trustDuration,
		logger:        logger,
	}
}

// CheckTrust reports whether the presenting device holds live trust for the
// identity. On a hit, the record's last_active is refreshed.
func (s *DeviceTrustService) CheckTrust(ctx context.Context, identityHash string, reqCtx models.RequestContext) (bool, error) {
	signal := reqCtx.ClientSignal()
	if signal == "" {
		return false, nil
	}
	signalHash := security.HashLookupValue(signal)

	device, err := s.repo.FindBySignalHash(ctx, identityHash, signalHash)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up device trust: %w", err)
	}

	// The hash column is a lookup index, not the trust decision. Confirm the
	// stored signal matches the presented one after decryption.
	storedSignal, err := s.encryptor.Decrypt(device.ClientSignalEncrypted)
	if err != nil {
		s.logger.Warn("stored client signal could not be decrypted, treating device as untrusted",
			zap.Error(err), zap.String("device_id", device.ID.String()))
		return false, nil
	}
	if storedSignal != signal {
		return false, nil
	}
	if !device.TrustValidAt(time.Now().UTC()) {
		return false, nil
	}

	if err := s.repo.TouchLastActive(ctx, identityHash, signalHash); err != nil {
		s.logger.Warn("failed to refresh device last_active", zap.Error(err))
	}
	return true, nil
}

// Trust grants (or renews) trust for the presenting device. The grant expires
// after the configured trust duration.
func (s *DeviceTrustService) Trust(ctx context.Context, identityHash string, reqCtx models.RequestContext) error {
	signal := reqCtx.ClientSignal()
	if signal == "" {
		return fmt.Errorf("%w: no client signal to trust", domainErrors.ErrValidation)
	}

	signalEncrypted, err := s.encryptor.Encrypt(signal)
	if err != nil {
		return fmt.Errorf("failed to encrypt client signal: %w", err)
	}
	nameEncrypted, err := s.encryptor.Encrypt(deviceLabel(reqCtx.UserAgent))
	if err != nil {
		return fmt.Errorf("failed to encrypt device name: %w", err)
	}
	ipEncrypted, err := s.encryptor.Encrypt(reqCtx.IPAddress)
	if err != nil {
		return fmt.Errorf("failed to encrypt origin address: %w", err)
	}

	now := time.Now().UTC()
	expiry := now.Add(s.trustDuration)
	device := &models.TrustedDevice{
		ID:                    uuid.New(),
		IdentityHash:          identityHash,
		DeviceNameEncrypted:   nameEncrypted,
		IPAddressEncrypted:    ipEncrypted,
		ClientSignalEncrypted: signalEncrypted,
		ClientSignalHash:      security.HashLookupValue(signal),
		Trusted:               true,
		TrustExpiry:           &expiry,
		LastActive:            now,
		CreatedAt:             now,
	}
	if err := s.repo.Upsert(ctx, device); err != nil {
		return fmt.Errorf("failed to store device trust: %w", err)
	}
	return nil
}

// Revoke withdraws trust from one device. The row is kept for history.
func (s *DeviceTrustService) Revoke(ctx context.Context, identityHash string, deviceID uuid.UUID) error {
	return s.repo.RevokeByID(ctx, identityHash, deviceID)
}

// RevokeAll withdraws trust from every device of the identity.
func (s *DeviceTrustService) RevokeAll(ctx context.Context, identityHash string) (int64, error) {
	return s.repo.RevokeAll(ctx, identityHash)
}

// RevokeCurrent withdraws trust from the presenting device, if trusted.
func (s *DeviceTrustService) RevokeCurrent(ctx context.Context, identityHash string, reqCtx models.RequestContext) (bool, error) {
	signal := reqCtx.ClientSignal()
	if signal == "" {
		return false, nil
	}
	return s.repo.RevokeBySignalHash(ctx, identityHash, security.HashLookupValue(signal))
}

// ListTrusted returns the identity's live trust grants as decrypted views,
// flagging the device making the request.
func (s *DeviceTrustService) ListTrusted(ctx context.Context, identityHash string, reqCtx models.RequestContext) ([]*models.TrustedDeviceView, error) {
	devices, err := s.repo.ListTrusted(ctx, identityHash)
	if err != nil {
		return nil, err
	}
	return s.toViews(devices, reqCtx), nil
}

// ListAll returns every device record for the identity, revoked included.
func (s *DeviceTrustService) ListAll(ctx context.Context, identityHash string, reqCtx models.RequestContext) ([]*models.TrustedDeviceView, error) {
	devices, err := s.repo.ListAll(ctx, identityHash)
	if err != nil {
		return nil, err
	}
	return s.toViews(devices, reqCtx), nil
}

func (s *DeviceTrustService) toViews(devices []*models.TrustedDevice, reqCtx models.RequestContext) []*models.TrustedDeviceView {
	currentHash := ""
	if signal := reqCtx.ClientSignal(); signal != "" {
		currentHash = security.HashLookupValue(signal)
	}

	views := make([]*models.TrustedDeviceView, 0, len(devices))
	for _, d := range devices {
		name, err := s.encryptor.Decrypt(d.DeviceNameEncrypted)
		if err != nil {
			s.logger.Warn("failed to decrypt device name for listing",
				zap.Error(err), zap.String("device_id", d.ID.String()))
			name = "Unknown device"
		}
		views = append(views, &models.TrustedDeviceView{
			ID:              d.ID,
			DeviceName:      name,
			Trusted:         d.Trusted,
			TrustExpiry:     d.TrustExpiry,
			LastActive:      d.LastActive,
			CreatedAt:       d.CreatedAt,
			IsCurrentDevice: currentHash != "" && d.ClientSignalHash == currentHash,
		})
	}
	return views
}

// deviceLabel derives a human-readable device name from the User-Agent.
func deviceLabel(rawUA string) string {
	if rawUA == "" {
		return "Unknown device"
	}
	ua := user_agent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OS()
	switch {
	case browser != "" && os != "":
		return fmt.Sprintf("%s on %s", browser, os)
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown device"
	}
}
