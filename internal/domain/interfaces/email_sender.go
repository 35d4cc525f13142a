// Package interfaces declares the contracts of external collaborators.
// Implementations live under internal/infrastructure.
package interfaces

import (
	"context"
)

// EmailSender delivers a single email. Implementations must bound the call
// with a timeout; a slow or unavailable provider fails the request rather
// than hanging it.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
