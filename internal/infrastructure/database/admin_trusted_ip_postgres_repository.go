package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
)

type pgxAdminTrustedIPRepository struct {
	db *pgxpool.Pool
}

// NewPgxAdminTrustedIPRepository creates a new instance of pgxAdminTrustedIPRepository.
func NewPgxAdminTrustedIPRepository(db *pgxpool.Pool) repository.AdminTrustedIPRepository {
	return &pgxAdminTrustedIPRepository{db: db}
}

const adminTrustedIPColumns = `id, identity_hash, ip_address_encrypted, ip_address_hash, device_name, browser_info, trusted, first_seen, last_seen`

func scanAdminTrustedIP(row pgx.Row) (*models.AdminTrustedIP, error) {
	rec := &models.AdminTrustedIP{}
	err := row.Scan(
		&rec.ID, &rec.IdentityHash, &rec.IPAddressEncrypted, &rec.IPAddressHash,
		&rec.DeviceName, &rec.BrowserInfo, &rec.Trusted, &rec.FirstSeen, &rec.LastSeen,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *pgxAdminTrustedIPRepository) FindTrustedByOriginHash(ctx context.Context, identityHash, originHash string) (*models.AdminTrustedIP, error) {
	query := `
		SELECT ` + adminTrustedIPColumns + `
		FROM admin_trusted_ips
		WHERE identity_hash = $1 AND ip_address_hash = $2 AND trusted = TRUE`
	rec, err := scanAdminTrustedIP(r.db.QueryRow(ctx, query, identityHash, originHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find trusted admin origin: %w", err)
	}
	return rec, nil
}

func (r *pgxAdminTrustedIPRepository) Upsert(ctx context.Context, rec *models.AdminTrustedIP) error {
	query := `
		INSERT INTO admin_trusted_ips (id, identity_hash, ip_address_encrypted, ip_address_hash, device_name, browser_info, trusted, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (identity_hash, ip_address_hash) DO UPDATE SET
			ip_address_encrypted = EXCLUDED.ip_address_encrypted,
			device_name = EXCLUDED.device_name,
			browser_info = EXCLUDED.browser_info,
			trusted = EXCLUDED.trusted,
			last_seen = EXCLUDED.last_seen`
	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.IdentityHash, rec.IPAddressEncrypted, rec.IPAddressHash,
		rec.DeviceName, rec.BrowserInfo, rec.Trusted, rec.FirstSeen, rec.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert admin trusted origin: %w", err)
	}
	return nil
}

func (r *pgxAdminTrustedIPRepository) RevokeByID(ctx context.Context, identityHash string, id uuid.UUID) error {
	query := `
		UPDATE admin_trusted_ips
		SET trusted = FALSE
		WHERE identity_hash = $1 AND id = $2`
	commandTag, err := r.db.Exec(ctx, query, identityHash, id)
	if err != nil {
		return fmt.Errorf("failed to revoke admin trusted origin: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *pgxAdminTrustedIPRepository) ListAll(ctx context.Context, identityHash string) ([]*models.AdminTrustedIP, error) {
	query := `
		SELECT ` + adminTrustedIPColumns + `
		FROM admin_trusted_ips
		WHERE identity_hash = $1
		ORDER BY last_seen DESC`
	rows, err := r.db.Query(ctx, query, identityHash)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin trusted origins: %w", err)
	}
	defer rows.Close()

	records := make([]*models.AdminTrustedIP, 0)
	for rows.Next() {
		rec, err := scanAdminTrustedIP(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admin trusted origin row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin trusted origin rows: %w", err)
	}
	return records, nil
}

var _ repository.AdminTrustedIPRepository = (*pgxAdminTrustedIPRepository)(nil)

type pgxAdminLoginAttemptRepository struct {
	db *pgxpool.Pool
}

// NewPgxAdminLoginAttemptRepository creates a new instance of pgxAdminLoginAttemptRepository.
func NewPgxAdminLoginAttemptRepository(db *pgxpool.Pool) repository.AdminLoginAttemptRepository {
	return &pgxAdminLoginAttemptRepository{db: db}
}

func (r *pgxAdminLoginAttemptRepository) Create(ctx context.Context, attempt *models.AdminLoginAttempt) error {
	query := `
		INSERT INTO admin_login_attempts (id, identity_hash, ip_address_encrypted, device_name, status, alert_sent, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		attempt.ID, attempt.IdentityHash, attempt.IPAddressEncrypted, attempt.DeviceName,
		attempt.Status, attempt.AlertSent, attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create admin login attempt: %w", err)
	}
	return nil
}

func (r *pgxAdminLoginAttemptRepository) HasAttemptSince(ctx context.Context, identityHash string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM admin_login_attempts
			WHERE identity_hash = $1 AND attempted_at > $2
		)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, identityHash, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check recent admin login attempts: %w", err)
	}
	return exists, nil
}

var _ repository.AdminLoginAttemptRepository = (*pgxAdminLoginAttemptRepository)(nil)
