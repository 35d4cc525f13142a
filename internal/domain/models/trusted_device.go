package models

import (
	"time"

	"github.com/google/uuid"
)

// TrustedDevice is one device-trust grant for one identity, mapping to the
// "trusted_devices" table. Device name, origin address and client signal are
// stored encrypted; the client signal additionally has a deterministic hash
// column for indexable lookup. Trust is valid only while Trusted is true and
// TrustExpiry is nil or strictly in the future.
type TrustedDevice struct {
	ID                    uuid.UUID  `db:"id"`
	IdentityHash          string     `db:"identity_hash"`
	DeviceNameEncrypted   string     `db:"device_name_encrypted"`
	IPAddressEncrypted    string     `db:"ip_address_encrypted"`
	ClientSignalEncrypted string     `db:"client_signal_encrypted"`
	ClientSignalHash      string     `db:"client_signal_hash"`
	Trusted               bool       `db:"trusted"`
	TrustExpiry           *time.Time `db:"trust_expiry"`
	LastActive            time.Time  `db:"last_active"`
	CreatedAt             time.Time  `db:"created_at"`
}

// TrustValidAt reports whether the record grants trust at the given instant.
// An expiry exactly equal to now does NOT grant trust.
func (d *TrustedDevice) TrustValidAt(now time.Time) bool {
	if !d.Trusted {
		return false
	}
	return d.TrustExpiry == nil || d.TrustExpiry.After(now)
}

// TrustedDeviceView is the decrypted listing row returned to the settings UI.
type TrustedDeviceView struct {
	ID              uuid.UUID  `json:"id"`
	DeviceName      string     `json:"deviceName"`
	Trusted         bool       `json:"trusted"`
	TrustExpiry     *time.Time `json:"trustExpiry,omitempty"`
	LastActive      time.Time  `json:"lastActive"`
	CreatedAt       time.Time  `json:"createdAt"`
	IsCurrentDevice bool       `json:"isCurrentDevice"`
}
