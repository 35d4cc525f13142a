package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/repository"
	"github.com/starshippsychics/trust-engine/internal/domain/service"
	"github.com/starshippsychics/trust-engine/internal/handler/http/middleware"
)

// SettingsHandler serves the second-factor settings and audit listing
// endpoints.
type SettingsHandler struct {
	settings *service.TwoFactorSettingsService
	audit    *service.AuditLogService
	logger   *zap.Logger
}

func NewSettingsHandler(
	settings *service.TwoFactorSettingsService,
	audit *service.AuditLogService,
	logger *zap.Logger,
) *SettingsHandler {
	return &SettingsHandler{settings: settings, audit: audit, logger: logger}
}

// GetTwoFactorSettings handles GET /api/v1/auth/2fa-settings/:identity.
func (h *SettingsHandler) GetTwoFactorSettings(c *gin.Context) {
	identityHash := c.GetString(middleware.IdentityKey)

	view, err := h.settings.Get(c.Request.Context(), identityHash)
	if err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, view)
}

type updateSettingsRequest struct {
	Enabled           *bool   `json:"enabled"`
	Method            *string `json:"method"`
	PhoneNumber       *string `json:"phoneNumber"`
	PersistentSession *bool   `json:"persistentSession"`
}

// UpdateTwoFactorSettings handles PUT /api/v1/auth/2fa-settings/:identity.
// Absent fields are left unchanged.
func (h *SettingsHandler) UpdateTwoFactorSettings(c *gin.Context) {
	identityHash := c.GetString(middleware.IdentityKey)

	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "malformed settings payload", "VALIDATION_ERROR", h.logger)
		return
	}

	update := models.TwoFactorSettingsUpdate{
		Enabled:           req.Enabled,
		PhoneNumber:       req.PhoneNumber,
		PersistentSession: req.PersistentSession,
	}
	if req.Method != nil {
		method := models.Channel(*req.Method)
		update.Method = &method
	}

	view, err := h.settings.Update(c.Request.Context(), identityHash, update, requestContext(c))
	if err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, view)
}

// ListAuditLogs handles GET /api/v1/auth/audit-logs/:identity, returning the
// identity's own audit trail, filterable by action and status.
func (h *SettingsHandler) ListAuditLogs(c *gin.Context) {
	identityHash := c.GetString(middleware.IdentityKey)

	params := repository.ListAuditLogParams{
		IdentityHash: &identityHash,
		Page:         intQuery(c, "page", 1),
		PerPage:      intQuery(c, "perPage", 20),
	}
	if action := c.Query("action"); action != "" {
		params.Action = &action
	}
	if status := c.Query("status"); status != "" {
		s := models.AuditLogStatus(status)
		params.Status = &s
	}

	entries, total, err := h.audit.List(c.Request.Context(), params)
	if err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{
		"entries": entries,
		"total":   total,
		"page":    params.Page,
		"perPage": params.PerPage,
	})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
