package models

import (
	"time"
)

// Credential is the authentication record for one identity, mapping to the
// "credentials" table. Exactly one row per identity. The email is stored
// encrypted; the deterministic hash of the normalized email exists only for
// equality lookup (encryption output cannot be indexed) and is unique.
type Credential struct {
	IdentityHash   string    `db:"identity_hash"`
	EmailEncrypted string    `db:"email_encrypted"`
	EmailHash      string    `db:"email_hash"`
	PasswordHash   string    `db:"password_hash"`
	EmailVerified  bool      `db:"email_verified"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
