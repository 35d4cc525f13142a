package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
)

type pgxCredentialRepository struct {
	db *pgxpool.Pool
}

// NewPgxCredentialRepository creates a new instance of pgxCredentialRepository.
func NewPgxCredentialRepository(db *pgxpool.Pool) repository.CredentialRepository {
	return &pgxCredentialRepository{db: db}
}

const credentialColumns = `identity_hash, email_encrypted, email_hash, password_hash, email_verified, created_at, updated_at`

func scanCredential(row pgx.Row) (*models.Credential, error) {
	c := &models.Credential{}
	err := row.Scan(
		&c.IdentityHash, &c.EmailEncrypted, &c.EmailHash, &c.PasswordHash,
		&c.EmailVerified, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *pgxCredentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	query := `
		INSERT INTO credentials (identity_hash, email_encrypted, email_hash, password_hash, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		cred.IdentityHash, cred.EmailEncrypted, cred.EmailHash, cred.PasswordHash,
		cred.EmailVerified, cred.CreatedAt, cred.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: credential for identity or email already exists", domainErrors.ErrConflict)
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

func (r *pgxCredentialRepository) FindByEmailHash(ctx context.Context, emailHash string) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE email_hash = $1`
	cred, err := scanCredential(r.db.QueryRow(ctx, query, emailHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find credential by email hash: %w", err)
	}
	return cred, nil
}

func (r *pgxCredentialRepository) FindByIdentityHash(ctx context.Context, identityHash string) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE identity_hash = $1`
	cred, err := scanCredential(r.db.QueryRow(ctx, query, identityHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find credential by identity hash: %w", err)
	}
	return cred, nil
}

func (r *pgxCredentialRepository) UpdatePasswordHash(ctx context.Context, identityHash, passwordHash string) error {
	query := `UPDATE credentials SET password_hash = $2, updated_at = NOW() WHERE identity_hash = $1`
	commandTag, err := r.db.Exec(ctx, query, identityHash, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *pgxCredentialRepository) SetEmailVerified(ctx context.Context, identityHash string, verified bool) error {
	query := `UPDATE credentials SET email_verified = $2, updated_at = NOW() WHERE identity_hash = $1`
	commandTag, err := r.db.Exec(ctx, query, identityHash, verified)
	if err != nil {
		return fmt.Errorf("failed to update email verified flag: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

var _ repository.CredentialRepository = (*pgxCredentialRepository)(nil)
