package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
)

type pgxLoginAttemptRepository struct {
	db *pgxpool.Pool
}

// NewPgxLoginAttemptRepository creates a new instance of pgxLoginAttemptRepository.
func NewPgxLoginAttemptRepository(db *pgxpool.Pool) repository.LoginAttemptRepository {
	return &pgxLoginAttemptRepository{db: db}
}

func (r *pgxLoginAttemptRepository) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (id, identity_hash, ip_address, user_agent, success, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		attempt.ID, attempt.IdentityHash, attempt.IPAddress, attempt.UserAgent,
		attempt.Success, attempt.Reason, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create login attempt: %w", err)
	}
	return nil
}

func (r *pgxLoginAttemptRepository) CountRecentFailures(ctx context.Context, identityHash string, windowStart time.Time) (int, error) {
	// A successful attempt resets the effective count: only failures newer
	// than both the window start and the latest success are counted.
	query := `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE identity_hash = $1 AND success = FALSE AND created_at > $2
		  AND created_at > COALESCE(
			(SELECT MAX(created_at) FROM login_attempts WHERE identity_hash = $1 AND success = TRUE),
			'-infinity'::timestamptz
		  )`
	var count int
	if err := r.db.QueryRow(ctx, query, identityHash, windowStart).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recent login failures: %w", err)
	}
	return count, nil
}

var _ repository.LoginAttemptRepository = (*pgxLoginAttemptRepository)(nil)

type pgxLockoutRepository struct {
	db *pgxpool.Pool
}

// NewPgxLockoutRepository creates a new instance of pgxLockoutRepository.
func NewPgxLockoutRepository(db *pgxpool.Pool) repository.LockoutRepository {
	return &pgxLockoutRepository{db: db}
}

func (r *pgxLockoutRepository) FindActive(ctx context.Context, identityHash string) (*models.AccountLockout, error) {
	query := `
		SELECT identity_hash, failed_attempts, unlock_at, created_at
		FROM account_lockouts
		WHERE identity_hash = $1 AND unlock_at > NOW()`
	lockout := &models.AccountLockout{}
	err := r.db.QueryRow(ctx, query, identityHash).Scan(
		&lockout.IdentityHash, &lockout.FailedAttempts, &lockout.UnlockAt, &lockout.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active lockout: %w", err)
	}
	return lockout, nil
}

func (r *pgxLockoutRepository) Upsert(ctx context.Context, lockout *models.AccountLockout) error {
	query := `
		INSERT INTO account_lockouts (identity_hash, failed_attempts, unlock_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity_hash) DO UPDATE SET
			failed_attempts = EXCLUDED.failed_attempts,
			unlock_at = EXCLUDED.unlock_at,
			created_at = EXCLUDED.created_at`
	_, err := r.db.Exec(ctx, query,
		lockout.IdentityHash, lockout.FailedAttempts, lockout.UnlockAt, lockout.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert lockout: %w", err)
	}
	return nil
}

func (r *pgxLockoutRepository) Delete(ctx context.Context, identityHash string) (bool, error) {
	query := `DELETE FROM account_lockouts WHERE identity_hash = $1`
	commandTag, err := r.db.Exec(ctx, query, identityHash)
	if err != nil {
		return false, fmt.Errorf("failed to delete lockout: %w", err)
	}
	return commandTag.RowsAffected() > 0, nil
}

var _ repository.LockoutRepository = (*pgxLockoutRepository)(nil)
