package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminTrustedIP is one trusted network origin for a privileged identity,
// mapping to the "admin_trusted_ips" table. Privileged accounts are matched
// by origin rather than client signal: origins are stable for this
// population, client signals are not for mobile and native clients.
// Revocation is soft — the row is kept for history with Trusted=false.
type AdminTrustedIP struct {
	ID                 uuid.UUID `db:"id"`
	IdentityHash       string    `db:"identity_hash"`
	IPAddressEncrypted string    `db:"ip_address_encrypted"`
	IPAddressHash      string    `db:"ip_address_hash"`
	DeviceName         string    `db:"device_name"`
	BrowserInfo        string    `db:"browser_info"`
	Trusted            bool      `db:"trusted"`
	FirstSeen          time.Time `db:"first_seen"`
	LastSeen           time.Time `db:"last_seen"`
}

// AdminLoginStatus tags one entry in the admin login attempt trail.
type AdminLoginStatus string

const (
	AdminLoginSuccess       AdminLoginStatus = "success"
	AdminLoginNewIPDetected AdminLoginStatus = "new_ip_detected"
	AdminLoginAlertSent     AdminLoginStatus = "alert_sent"
	AdminLogin2FAPassed     AdminLoginStatus = "2fa_passed"
)

// AdminLoginAttempt is one append-only row in "admin_login_attempts".
// Never mutated after insert.
type AdminLoginAttempt struct {
	ID                 uuid.UUID        `db:"id"`
	IdentityHash       string           `db:"identity_hash"`
	IPAddressEncrypted string           `db:"ip_address_encrypted"`
	DeviceName         string           `db:"device_name"`
	Status             AdminLoginStatus `db:"status"`
	AlertSent          bool             `db:"alert_sent"`
	AttemptedAt        time.Time        `db:"attempted_at"`
}
