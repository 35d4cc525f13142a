package models

import (
	"time"

	"github.com/google/uuid"
)

// LoginAttempt is one append-only row in "login_attempts". The lockout guard
// derives its failure count from these rows; it never read-modify-writes a
// counter.
type LoginAttempt struct {
	ID           uuid.UUID `db:"id"`
	IdentityHash string    `db:"identity_hash"`
	IPAddress    string    `db:"ip_address"`
	UserAgent    string    `db:"user_agent"`
	Success      bool      `db:"success"`
	Reason       string    `db:"reason"`
	CreatedAt    time.Time `db:"created_at"`
}

// AccountLockout is the active lockout row for an identity, mapping to the
// "account_lockouts" table (unique per identity, upserted atomically).
type AccountLockout struct {
	IdentityHash   string    `db:"identity_hash"`
	FailedAttempts int       `db:"failed_attempts"`
	UnlockAt       time.Time `db:"unlock_at"`
	CreatedAt      time.Time `db:"created_at"`
}

// LockStatus is the computed lockout state returned to callers.
type LockStatus struct {
	Locked           bool       `json:"locked"`
	UnlockAt         *time.Time `json:"unlockAt,omitempty"`
	MinutesRemaining int        `json:"minutesRemaining,omitempty"`
}
