package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/starshippsychics/trust-engine/internal/domain/service"
)

// AuthHandler serves the login and second-factor endpoints.
type AuthHandler struct {
	loginFlow *service.LoginFlowService
	logger    *zap.Logger
}

func NewAuthHandler(loginFlow *service.LoginFlowService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{loginFlow: loginFlow, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "email and password are required", "VALIDATION_ERROR", h.logger)
		return
	}

	result, err := h.loginFlow.Login(c.Request.Context(), req.Email, req.Password, requestContext(c))
	if err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, result)
}

// CheckTwoFactor handles POST /api/v1/auth/check-2fa/:identity. The auth
// middleware has already matched the path identity against the token subject.
func (h *AuthHandler) CheckTwoFactor(c *gin.Context) {
	result, err := h.loginFlow.CheckTwoFactor(c.Request.Context(), c.Param("identity"), requestContext(c))
	if err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, result)
}

type verifyTwoFactorRequest struct {
	TempToken   string `json:"tempToken" binding:"required"`
	Code        string `json:"code" binding:"required"`
	TrustDevice bool   `json:"trustDevice"`
}

// VerifyTwoFactor handles POST /api/v1/auth/verify-2fa.
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	var req verifyTwoFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "tempToken and code are required", "VALIDATION_ERROR", h.logger)
		return
	}

	result, err := h.loginFlow.VerifyTwoFactor(c.Request.Context(), req.TempToken, req.Code, req.TrustDevice, requestContext(c))
	if err != nil {
		RespondWithServiceError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, result)
}
