package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
)

type pgxVerificationCodeRepository struct {
	db *pgxpool.Pool
}

// NewPgxVerificationCodeRepository creates a new instance of pgxVerificationCodeRepository.
func NewPgxVerificationCodeRepository(db *pgxpool.Pool) repository.VerificationCodeRepository {
	return &pgxVerificationCodeRepository{db: db}
}

func (r *pgxVerificationCodeRepository) Create(ctx context.Context, vc *models.VerificationCode) error {
	query := `
		INSERT INTO verification_codes (id, identity_hash, destination_encrypted, purpose, channel, code_hash, created_at, expires_at, consumed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query,
		vc.ID, vc.IdentityHash, vc.DestinationEncrypted, vc.Purpose, vc.Channel, vc.CodeHash, vc.CreatedAt, vc.ExpiresAt, vc.ConsumedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: verification code with given ID already exists", domainErrors.ErrConflict)
		}
		return fmt.Errorf("failed to create verification code: %w", err)
	}
	return nil
}

func (r *pgxVerificationCodeRepository) FindActiveByCodeHash(
	ctx context.Context, identityHash, codeHash string, purpose models.CodePurpose) (*models.VerificationCode, error) {
	// expires_at > NOW() is strict: a code expiring exactly now is invalid.
	query := `
		SELECT id, identity_hash, destination_encrypted, purpose, channel, code_hash, created_at, expires_at, consumed_at
		FROM verification_codes
		WHERE identity_hash = $1 AND code_hash = $2 AND purpose = $3
		  AND consumed_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC LIMIT 1`
	vc := &models.VerificationCode{}
	err := r.db.QueryRow(ctx, query, identityHash, codeHash, purpose).Scan(
		&vc.ID, &vc.IdentityHash, &vc.DestinationEncrypted, &vc.Purpose, &vc.Channel, &vc.CodeHash, &vc.CreatedAt, &vc.ExpiresAt, &vc.ConsumedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find verification code by hash: %w", err)
	}
	return vc, nil
}

func (r *pgxVerificationCodeRepository) HasRecentUnconsumed(
	ctx context.Context, identityHash string, purpose models.CodePurpose, channel models.Channel, createdAfter time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM verification_codes
			WHERE identity_hash = $1 AND purpose = $2 AND channel = $3
			  AND created_at > $4 AND expires_at > NOW() AND consumed_at IS NULL
		)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, identityHash, purpose, channel, createdAfter).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check for recent verification code: %w", err)
	}
	return exists, nil
}

func (r *pgxVerificationCodeRepository) MarkConsumed(ctx context.Context, id uuid.UUID, consumedAt time.Time) (bool, error) {
	query := `UPDATE verification_codes SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL`
	commandTag, err := r.db.Exec(ctx, query, id, consumedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark verification code as consumed: %w", err)
	}
	// Zero rows means the code was already consumed; by contract that is a
	// no-op, not an error.
	return commandTag.RowsAffected() == 0, nil
}

func (r *pgxVerificationCodeRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM verification_codes WHERE expires_at < $1`
	commandTag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired verification codes: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

var _ repository.VerificationCodeRepository = (*pgxVerificationCodeRepository)(nil)
