package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/starshippsychics/trust-engine/internal/domain/models"
	"github.com/starshippsychics/trust-engine/internal/domain/service"
	"github.com/starshippsychics/trust-engine/internal/handler/http/middleware"
)

// DeviceTrustHandler serves the device and origin trust management surface.
type DeviceTrustHandler struct {
	deviceTrust *service.DeviceTrustService
	adminTrust  *service.AdminIPTrustService
	audit       *service.AuditLogService
	logger      *zap.Logger
}

func NewDeviceTrustHandler(
	deviceTrust *service.DeviceTrustService,
	adminTrust *service.AdminIPTrustService,
	audit *service.AuditLogService,
	logger *zap.Logger,
) *DeviceTrustHandler {
	return &DeviceTrustHandler{
		deviceTrust: deviceTrust,
		adminTrust:  adminTrust,
		audit:       audit,
		logger:      logger,
	}
}

// ListDevices handles GET /api/v1/auth/devices/:identity. With ?all=true the
// listing includes revoked records.
func (h *DeviceTrustHandler) ListDevices(c *gin.Context) {
	identityHash := c.GetString(middleware.IdentityKey)

	var (
		devices []*models.TrustedDeviceView
		err     error
	)
	if c.Query("all") == "true" {
		devices, err = h.deviceTrust.ListAll(c.Request.Context(), identityHash, requestContext(c))
	} else {
		devices, err = h.deviceTrust.ListTrusted(c.Request.Context(), identityHash, requestContext(c))
	}
	if err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"devices": devices})
}

// TrustCurrentDevice handles POST /api/v1/auth/devices/:identity/trust,
// granting trust to the device making the request.
func (h *DeviceTrustHandler) TrustCurrentDevice(c *gin.Context) {
	identityHash := c.GetString(middleware.IdentityKey)
	reqCtx := requestContext(c)

	if err := h.deviceTrust.Trust(c.Request.Context(), identityHash, reqCtx); err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	h.audit.Record(c.Request.Context(), service.AuditEntry{
		IdentityHash: identityHash,
		Action:       models.AuditActionDeviceTrusted,
		Status:       models.AuditStatusSuccess,
		Request:      &reqCtx,
	})
	RespondWithMessage(c, http.StatusOK, "device trusted")
}

// RevokeDevice handles DELETE /api/v1/auth/devices/:identity/:deviceId.
func (h *DeviceTrustHandler) RevokeDevice(c *gin.Context) {
	identityHash := c.GetString(middleware.IdentityKey)
	deviceID, err := uuid.Parse(c.Param("deviceId"))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "invalid device id", "VALIDATION_ERROR", h.logger)
		return
	}

	reqCtx := requestContext(c)
	if err := h.deviceTrust.Revoke(c.Request.Context(), identityHash, deviceID); err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	h.audit.Record(c.Request.Context(), service.AuditEntry{
		IdentityHash: identityHash,
		Action:       models.AuditActionDeviceTrustRevoked,
		Status:       models.AuditStatusSuccess,
		Request:      &reqCtx,
		Details:      map[string]interface{}{"deviceId": deviceID},
	})
	RespondWithMessage(c, http.StatusOK, "device trust revoked")
}

// RevokeCurrentDevice handles POST /api/v1/auth/devices/:identity/revoke-current,
// revoking trust for the device making the request.
func (h *DeviceTrustHandler) RevokeCurrentDevice(c *gin.Context) {
	identityHash := c.GetString(middleware.IdentityKey)
	reqCtx := requestContext(c)

	revoked, err := h.deviceTrust.RevokeCurrent(c.Request.Context(), identityHash, reqCtx)
	if err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	if revoked {
		h.audit.Record(c.Request.Context(), service.AuditEntry{
			IdentityHash: identityHash,
			Action:       models.AuditActionDeviceTrustRevoked,
			Status:       models.AuditStatusSuccess,
			Request:      &reqCtx,
			Details:      map[string]interface{}{"currentDevice": true},
		})
	}
	RespondWithData(c, http.StatusOK, gin.H{"revoked": revoked})
}

// RevokeAllDevices handles DELETE /api/v1/auth/devices/:identity.
func (h *DeviceTrustHandler) RevokeAllDevices(c *gin.Context) {
	identityHash := c.GetString(middleware.IdentityKey)
	reqCtx := requestContext(c)

	revoked, err := h.deviceTrust.RevokeAll(c.Request.Context(), identityHash)
	if err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	h.audit.Record(c.Request.Context(), service.AuditEntry{
		IdentityHash: identityHash,
		Action:       models.AuditActionDeviceTrustRevoked,
		Status:       models.AuditStatusSuccess,
		Request:      &reqCtx,
		Details:      map[string]interface{}{"revokedCount": revoked},
	})
	RespondWithData(c, http.StatusOK, gin.H{"revoked": revoked})
}

// ListOrigins handles GET /api/v1/auth/origins/:identity, listing the trusted
// origin records of a privileged identity.
func (h *DeviceTrustHandler) ListOrigins(c *gin.Context) {
	identityHash := c.GetString(middleware.IdentityKey)

	origins, err := h.adminTrust.ListOrigins(c.Request.Context(), identityHash)
	if err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}

	type originView struct {
		ID         uuid.UUID `json:"id"`
		DeviceName string    `json:"deviceName"`
		Trusted    bool      `json:"trusted"`
		FirstSeen  string    `json:"firstSeen"`
		LastSeen   string    `json:"lastSeen"`
	}
	views := make([]originView, 0, len(origins))
	for _, o := range origins {
		views = append(views, originView{
			ID:         o.ID,
			DeviceName: o.DeviceName,
			Trusted:    o.Trusted,
			FirstSeen:  o.FirstSeen.Format("2006-01-02T15:04:05Z07:00"),
			LastSeen:   o.LastSeen.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	RespondWithData(c, http.StatusOK, gin.H{"origins": views})
}

// RevokeOrigin handles DELETE /api/v1/auth/origins/:identity/:originId.
func (h *DeviceTrustHandler) RevokeOrigin(c *gin.Context) {
	identityHash := c.GetString(middleware.IdentityKey)
	originID, err := uuid.Parse(c.Param("originId"))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "invalid origin id", "VALIDATION_ERROR", h.logger)
		return
	}

	if err := h.adminTrust.RevokeOrigin(c.Request.Context(), identityHash, originID); err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "origin trust revoked")
}
