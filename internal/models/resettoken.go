package models

import (
	"time"
)

// PasswordResetToken keeps the bcrypt digest of a reset secret. At most one
// record exists per email; expiry is implicit, CreatedAt plus the configured
// window.
type PasswordResetToken struct {
	Email      string
	SecretHash string
	CreatedAt  time.Time
}
