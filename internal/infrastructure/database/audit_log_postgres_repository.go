package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
)

type pgxAuditLogRepository struct {
	db *pgxpool.Pool
}

// NewPgxAuditLogRepository creates a new instance of pgxAuditLogRepository.
func NewPgxAuditLogRepository(db *pgxpool.Pool) repository.AuditLogRepository {
	return &pgxAuditLogRepository{db: db}
}

func (r *pgxAuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, identity_hash, action, resource_type, ip_address_encrypted, user_agent, http_method, endpoint, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(ctx, query,
		entry.ID, entry.IdentityHash, entry.Action, entry.ResourceType, entry.IPAddressEncrypted,
		entry.UserAgent, entry.HTTPMethod, entry.Endpoint, entry.Status, entry.Details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

func (r *pgxAuditLogRepository) List(ctx context.Context, params repository.ListAuditLogParams) ([]*models.AuditLog, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)
	argID := 1

	if params.IdentityHash != nil {
		conditions = append(conditions, fmt.Sprintf("identity_hash = $%d", argID))
		args = append(args, *params.IdentityHash)
		argID++
	}
	if params.Action != nil {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argID))
		args = append(args, *params.Action)
		argID++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *params.Status)
		argID++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_logs" + whereClause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit log entries: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	perPage := params.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := fmt.Sprintf(`
		SELECT id, identity_hash, action, resource_type, ip_address_encrypted, user_agent, http_method, endpoint, status, details, created_at
		FROM audit_logs%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argID, argID+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditLog, 0)
	for rows.Next() {
		entry := &models.AuditLog{}
		err := rows.Scan(
			&entry.ID, &entry.IdentityHash, &entry.Action, &entry.ResourceType, &entry.IPAddressEncrypted,
			&entry.UserAgent, &entry.HTTPMethod, &entry.Endpoint, &entry.Status, &entry.Details, &entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit log rows: %w", err)
	}
	return entries, total, nil
}

var _ repository.AuditLogRepository = (*pgxAuditLogRepository)(nil)
