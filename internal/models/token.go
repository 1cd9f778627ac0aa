package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken is the stored form of a bearer credential. Only the SHA-256
// digest of the secret is persisted; the plaintext exists once, inside the
// IssuedToken returned to the caller at issuance.
type AccessToken struct {
	ID           uuid.UUID
	UserID       int64
	SecretHash   string
	Device       string
	Capabilities []string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type RefreshToken struct {
	ID         uuid.UUID
	UserID     int64
	SecretHash string
	Device     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Revoked    bool
}

// IssuedToken pairs a plaintext secret with its expiry. Never stored.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenPair issued by the token service on register, login and refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
