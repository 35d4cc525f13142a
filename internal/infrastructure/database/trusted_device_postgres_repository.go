package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
)

type pgxTrustedDeviceRepository struct {
	db *pgxpool.Pool
}

// NewPgxTrustedDeviceRepository creates a new instance of pgxTrustedDeviceRepository.
func NewPgxTrustedDeviceRepository(db *pgxpool.Pool) repository.TrustedDeviceRepository {
	return &pgxTrustedDeviceRepository{db: db}
}

const trustedDeviceColumns = `id, identity_hash, device_name_encrypted, ip_address_encrypted, client_signal_encrypted, client_signal_hash, trusted, trust_expiry, last_active, created_at`

func scanTrustedDevice(row pgx.Row) (*models.TrustedDevice, error) {
	d := &models.TrustedDevice{}
	err := row.Scan(
		&d.ID, &d.IdentityHash, &d.DeviceNameEncrypted, &d.IPAddressEncrypted,
		&d.ClientSignalEncrypted, &d.ClientSignalHash, &d.Trusted, &d.TrustExpiry,
		&d.LastActive, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *pgxTrustedDeviceRepository) FindBySignalHash(ctx context.Context, identityHash, signalHash string) (*models.TrustedDevice, error) {
	query := `
		SELECT ` + trustedDeviceColumns + `
		FROM trusted_devices
		WHERE identity_hash = $1 AND client_signal_hash = $2`
	device, err := scanTrustedDevice(r.db.QueryRow(ctx, query, identityHash, signalHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find trusted device by signal hash: %w", err)
	}
	return device, nil
}

func (r *pgxTrustedDeviceRepository) Upsert(ctx context.Context, device *models.TrustedDevice) error {
	query := `
		INSERT INTO trusted_devices (id, identity_hash, device_name_encrypted, ip_address_encrypted, client_signal_encrypted, client_signal_hash, trusted, trust_expiry, last_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (identity_hash, client_signal_hash) DO UPDATE SET
			device_name_encrypted = EXCLUDED.device_name_encrypted,
			ip_address_encrypted = EXCLUDED.ip_address_encrypted,
			client_signal_encrypted = EXCLUDED.client_signal_encrypted,
			trusted = EXCLUDED.trusted,
			trust_expiry = EXCLUDED.trust_expiry,
			last_active = EXCLUDED.last_active`
	_, err := r.db.Exec(ctx, query,
		device.ID, device.IdentityHash, device.DeviceNameEncrypted, device.IPAddressEncrypted,
		device.ClientSignalEncrypted, device.ClientSignalHash, device.Trusted, device.TrustExpiry,
		device.LastActive, device.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert trusted device: %w", err)
	}
	return nil
}

func (r *pgxTrustedDeviceRepository) RevokeByID(ctx context.Context, identityHash string, id uuid.UUID) error {
	// Soft revoke: the row stays, trust is withdrawn and the expiry cleared.
	query := `
		UPDATE trusted_devices
		SET trusted = FALSE, trust_expiry = NULL
		WHERE identity_hash = $1 AND id = $2`
	commandTag, err := r.db.Exec(ctx, query, identityHash, id)
	if err != nil {
		return fmt.Errorf("failed to revoke trusted device: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *pgxTrustedDeviceRepository) RevokeAll(ctx context.Context, identityHash string) (int64, error) {
	query := `
		UPDATE trusted_devices
		SET trusted = FALSE, trust_expiry = NULL
		WHERE identity_hash = $1 AND trusted = TRUE`
	commandTag, err := r.db.Exec(ctx, query, identityHash)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke all trusted devices: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

func (r *pgxTrustedDeviceRepository) RevokeBySignalHash(ctx context.Context, identityHash, signalHash string) (bool, error) {
	query := `
		UPDATE trusted_devices
		SET trusted = FALSE, trust_expiry = NULL
		WHERE identity_hash = $1 AND client_signal_hash = $2`
	commandTag, err := r.db.Exec(ctx, query, identityHash, signalHash)
	if err != nil {
		return false, fmt.Errorf("failed to revoke trusted device by signal hash: %w", err)
	}
	return commandTag.RowsAffected() > 0, nil
}

func (r *pgxTrustedDeviceRepository) ListTrusted(ctx context.Context, identityHash string) ([]*models.TrustedDevice, error) {
	query := `
		SELECT ` + trustedDeviceColumns + `
		FROM trusted_devices
		WHERE identity_hash = $1 AND trusted = TRUE
		  AND (trust_expiry IS NULL OR trust_expiry > NOW())
		ORDER BY last_active DESC`
	return r.listDevices(ctx, query, identityHash)
}

func (r *pgxTrustedDeviceRepository) ListAll(ctx context.Context, identityHash string) ([]*models.TrustedDevice, error) {
	query := `
		SELECT ` + trustedDeviceColumns + `
		FROM trusted_devices
		WHERE identity_hash = $1
		ORDER BY last_active DESC`
	return r.listDevices(ctx, query, identityHash)
}

func (r *pgxTrustedDeviceRepository) listDevices(ctx context.Context, query, identityHash string) ([]*models.TrustedDevice, error) {
	rows, err := r.db.Query(ctx, query, identityHash)
	if err != nil {
		return nil, fmt.Errorf("failed to list trusted devices: %w", err)
	}
	defer rows.Close()

	devices := make([]*models.TrustedDevice, 0)
	for rows.Next() {
		device, err := scanTrustedDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trusted device row: %w", err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trusted device rows: %w", err)
	}
	return devices, nil
}

func (r *pgxTrustedDeviceRepository) TouchLastActive(ctx context.Context, identityHash, signalHash string) error {
	query := `
		UPDATE trusted_devices
		SET last_active = NOW()
		WHERE identity_hash = $1 AND client_signal_hash = $2`
	if _, err := r.db.Exec(ctx, query, identityHash, signalHash); err != nil {
		return fmt.Errorf("failed to touch trusted device last_active: %w", err)
	}
	return nil
}

var _ repository.TrustedDeviceRepository = (*pgxTrustedDeviceRepository)(nil)
