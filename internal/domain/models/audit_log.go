package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLogStatus is the outcome recorded with an audit event.
type AuditLogStatus string

const (
	AuditStatusSuccess AuditLogStatus = "SUCCESS"
	AuditStatusFailure AuditLogStatus = "FAILURE"
	AuditStatusBlocked AuditLogStatus = "BLOCKED"
)

// Stable action tags recorded by the login and trust flows. These values are
// part of the audit contract and must not change.
const (
	AuditActionLoginFailed            = "USER_LOGIN_FAILED"
	AuditAction2FARequested           = "LOGIN_2FA_REQUESTED"
	AuditAction2FASkippedTrusted      = "LOGIN_2FA_SKIPPED_TRUSTED_DEVICE"
	AuditActionLoginBlockedLocked     = "LOGIN_BLOCKED_ACCOUNT_LOCKED"
	AuditAction2FAVerified            = "USER_2FA_VERIFIED"
	AuditAction2FAFailed              = "USER_2FA_FAILED"
	AuditAction2FARequestedAdminNewIP = "LOGIN_2FA_REQUESTED_ADMIN_NEW_IP"
	AuditActionAccountLockedAuto      = "ACCOUNT_LOCKED_AUTO"
	AuditActionDeviceTrusted          = "DEVICE_TRUSTED_FROM_SETTINGS"
	AuditActionDeviceTrustRevoked     = "DEVICE_TRUST_REVOKED_FROM_SETTINGS"
	AuditAction2FASettingsUpdated     = "TWO_FA_SETTINGS_UPDATED"
)

// AuditLog is one append-only row in "audit_logs". Rows are never mutated and
// never deleted by normal flows. The identity hash is nullable because some
// failures (e.g. a lookup by an unknown email) have no resolved identity.
type AuditLog struct {
	ID                 uuid.UUID       `db:"id"`
	IdentityHash       *string         `db:"identity_hash"`
	Action             string          `db:"action"`
	ResourceType       *string         `db:"resource_type"`
	IPAddressEncrypted *string         `db:"ip_address_encrypted"`
	UserAgent          *string         `db:"user_agent"`
	HTTPMethod         *string         `db:"http_method"`
	Endpoint           *string         `db:"endpoint"`
	Status             AuditLogStatus  `db:"status"`
	Details            json.RawMessage `db:"details"`
	CreatedAt          time.Time       `db:"created_at"`
}
