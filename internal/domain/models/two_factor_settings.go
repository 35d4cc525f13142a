package models

import (
	"time"
)

// TwoFactorSettings is the per-identity second-factor configuration, mapping
// to the "two_factor_settings" table. Created lazily on first configuration;
// an absent row reads as the defaults (enabled, email channel).
type TwoFactorSettings struct {
	IdentityHash         string     `db:"identity_hash"`
	Enabled              bool       `db:"enabled"`
	Method               Channel    `db:"method"`
	PhoneNumberEncrypted *string    `db:"phone_number_encrypted"`
	PersistentSession    bool       `db:"persistent_session"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

// DefaultTwoFactorSettings returns the settings assumed for an identity that
// has never configured a second factor.
func DefaultTwoFactorSettings(identityHash string) *TwoFactorSettings {
	return &TwoFactorSettings{
		IdentityHash: identityHash,
		Enabled:      true,
		Method:       ChannelEmail,
	}
}

// TwoFactorSettingsUpdate is an explicit partial update: every valid mutation
// of the settings row is enumerable here, and the repository compiles it to a
// single fixed parameterized statement. Nil fields are left unchanged.
type TwoFactorSettingsUpdate struct {
	Enabled           *bool
	Method            *Channel
	PhoneNumber       *string // plaintext; encrypted by the service before storage
	PersistentSession *bool
}

// IsEmpty reports whether the update changes nothing.
func (u TwoFactorSettingsUpdate) IsEmpty() bool {
	return u.Enabled == nil && u.Method == nil && u.PhoneNumber == nil && u.PersistentSession == nil
}
