package models

import (
	"time"

	"github.com/google/uuid"
)

// CodePurpose defines what a verification code authorizes.
type CodePurpose string

const (
	CodePurposeLogin             CodePurpose = "login"
	CodePurposePasswordReset     CodePurpose = "password_reset"
	CodePurposeEmailVerification CodePurpose = "email_verification"
	CodePurposePhoneVerification CodePurpose = "phone_verification"
)

// Channel is the delivery channel for a verification code.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// VerificationCode is an ephemeral one-time code, mapping to the
// "verification_codes" table. The code itself is stored only as a hash;
// the destination is stored encrypted. A code is usable at most once
// (ConsumedAt nil) and only strictly before ExpiresAt.
type VerificationCode struct {
	ID                   uuid.UUID   `db:"id"`
	IdentityHash         string      `db:"identity_hash"`
	DestinationEncrypted string      `db:"destination_encrypted"`
	Purpose              CodePurpose `db:"purpose"`
	Channel              Channel     `db:"channel"`
	CodeHash             string      `db:"code_hash"`
	CreatedAt            time.Time   `db:"created_at"`
	ExpiresAt            time.Time   `db:"expires_at"`
	ConsumedAt           *time.Time  `db:"consumed_at"`
}
