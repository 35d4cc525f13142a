package errors

import (
	"errors"
	"fmt"
)

var (
	// General errors.
	ErrInternal   = errors.New("internal server error")
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("resource already exists")
	ErrForbidden  = errors.New("access denied")
	ErrValidation = errors.New("invalid request")

	// Authentication errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrRateLimited        = errors.New("rate limit exceeded")

	// Second-factor errors.
	ErrInvalid2FACode   = errors.New("invalid or expired 2FA code")
	Err2FARequired      = errors.New("two-factor authentication required")
	ErrCodeAlreadyUsed  = errors.New("verification code already used")
	ErrDeliveryFailed   = errors.New("failed to deliver verification code")
	ErrPhoneUnavailable = errors.New("phone number unavailable")

	// Data-at-rest errors.
	ErrDecryptionFailed = errors.New("stored value could not be decrypted")
)

// AppError carries an HTTP status and a machine-readable code alongside the
// underlying error so handlers can map service failures without string matching.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

// IsNotFound reports whether err is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is a uniqueness/conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsRateLimited reports whether err should surface as a 429-class response.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrAccountLocked)
}

// IsUnauthorized reports whether err should surface as a 401-class response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInvalid2FACode)
}
