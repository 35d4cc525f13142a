package interfaces

import (
	"context"
)

// SMSVerifier is a managed-verify SMS provider: it generates, delivers and
// checks codes itself, so no local verification_codes row exists for the SMS
// channel.
type SMSVerifier interface {
	// StartVerification asks the provider to send a code to the phone number.
	StartVerification(ctx context.Context, phoneNumber string) error

	// CheckVerification asks the provider whether code is valid for the
	// phone number. A definitive "no" is (false, nil); errors are transport
	// or provider failures.
	CheckVerification(ctx context.Context, phoneNumber, code string) (bool, error)
}
