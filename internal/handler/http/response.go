// Package http exposes the login, trust and settings operations over a
// gin-based REST surface.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/starshippsychics/trust-engine/internal/domain/errors"
	"github.com/starshippsychics/trust-engine/internal/domain/service"
)

// ResponseError is the error payload of the API.
type ResponseError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RespondWithError sends an error response.
func RespondWithError(c *gin.Context, statusCode int, message string, errorCode string, logger *zap.Logger) {
	logger.Warn("API error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", errorCode),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(statusCode, ResponseError{
		Error: message,
		Code:  errorCode,
	})
}

// RespondWithData sends a success response with only data.
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// RespondWithMessage sends a success response with only a message.
func RespondWithMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"message": message})
}

// RespondWithServiceError maps a service-layer error onto the API contract.
// Lockouts answer 429 with a Retry-After hint; credential and code failures
// answer 401 without distinguishing their cause.
func RespondWithServiceError(c *gin.Context, err error, logger *zap.Logger) {
	var locked *service.AccountLockedError
	if errors.As(err, &locked) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":            "account temporarily locked",
			"code":             "ACCOUNT_LOCKED",
			"unlockAt":         locked.Status.UnlockAt,
			"minutesRemaining": locked.Status.MinutesRemaining,
		})
		return
	}

	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		RespondWithError(c, appErr.StatusCode, appErr.Message, appErr.Code, logger)
		return
	}

	switch {
	case errors.Is(err, domainErrors.ErrInvalid2FACode), errors.Is(err, domainErrors.ErrCodeAlreadyUsed):
		RespondWithError(c, http.StatusUnauthorized, "invalid or expired verification code", "INVALID_2FA_CODE", logger)
	case domainErrors.IsUnauthorized(err):
		RespondWithError(c, http.StatusUnauthorized, "invalid credentials", "INVALID_CREDENTIALS", logger)
	case errors.Is(err, domainErrors.ErrValidation):
		RespondWithError(c, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR", logger)
	case errors.Is(err, domainErrors.ErrPhoneUnavailable):
		RespondWithError(c, http.StatusBadRequest,
			"no usable phone number on record, switch your verification method to email", "PHONE_UNAVAILABLE", logger)
	case domainErrors.IsNotFound(err):
		RespondWithError(c, http.StatusNotFound, "resource not found", "NOT_FOUND", logger)
	case domainErrors.IsConflict(err):
		RespondWithError(c, http.StatusConflict, "resource already exists", "CONFLICT", logger)
	case errors.Is(err, domainErrors.ErrForbidden):
		RespondWithError(c, http.StatusForbidden, "access denied", "FORBIDDEN", logger)
	case errors.Is(err, domainErrors.ErrDeliveryFailed):
		RespondWithError(c, http.StatusBadGateway, "failed to deliver verification code", "DELIVERY_FAILED", logger)
	default:
		logger.Error("unhandled service error", zap.Error(err),
			zap.String("path", c.Request.URL.Path))
		RespondWithError(c, http.StatusInternalServerError, "internal server error", "INTERNAL", logger)
	}
}
