package repository

import (
	"context"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
)

// ListAuditLogParams filters audit listing for the admin surface.
type ListAuditLogParams struct {
	IdentityHash *string
	Action       *string
	Status       *models.AuditLogStatus
	Page         int
	PerPage      int
}

// AuditLogRepository appends to and reads the immutable audit trail.
// There is deliberately no update or delete operation.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, params ListAuditLogParams) ([]*models.AuditLog, int, error)
}
