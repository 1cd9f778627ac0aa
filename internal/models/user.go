package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const DefaultLocale = "en"

type User struct {
	ID           int64
	CreatedAt    time.Time
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Locale       string
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Capabilities attached to access tokens issued for the user.
// Admin role implies the plain user capability as well.
func (u User) Capabilities() []string {
	if u.IsAdmin() {
		return []string{RoleUser, RoleAdmin}
	}
	return []string{RoleUser}
}

// PublicUser is the JSON shape of a user record. The password hash never
// leaves the service.
type PublicUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Locale:    u.Locale,
		CreatedAt: u.CreatedAt,
	}
}
