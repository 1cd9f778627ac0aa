package repository

import (
	"context"
	"time"

	"authgate/internal/models"
)

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Locale       string
}

// UpdateUserParams carries optional profile fields; nil means keep current
type UpdateUserParams struct {
	Username *string
	Email    *string
	Locale   *string
}

type ListUsersParams struct {
	Search string // matches username or email, empty means all
	Limit  int
	Offset int
}

// User repository interface
// Uniqueness of username and email is enforced by the store, violations
// must surface as apperrors.ErrUserAlreadyExists
type UserRepo interface {
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Must return apperrors.ErrUserNotFound if no such user
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	UpdateUser(ctx context.Context, id int64, arg UpdateUserParams) (models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	DeleteUser(ctx context.Context, id int64) error

	ListUsers(ctx context.Context, arg ListUsersParams) ([]models.User, int64, error)

	// ListOnlineUsers returns users holding at least one access token that
	// is still live at now, ordered by id
	ListOnlineUsers(ctx context.Context, now time.Time) ([]models.User, error)
}

// AccessToken repository interface. Tokens are keyed by the digest of
// their secret, never by the secret itself
type AccessTokenRepo interface {
	Save(ctx context.Context, token models.AccessToken) (models.AccessToken, error)

	// Must return apperrors.ErrAccessTokenNotFound if no row matches
	GetBySecretHash(ctx context.Context, secretHash string) (models.AccessToken, error)

	DeleteForDevice(ctx context.Context, userID int64, device string) error
	DeleteForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Must return apperrors.ErrRefreshTokenNotFound if no row matches
	GetBySecretHash(ctx context.Context, secretHash string) (models.RefreshToken, error)

	// Flip revoked in a single conditional write. Concurrent callers for the
	// same secret must observe exactly one success; the rest get
	// apperrors.ErrRefreshTokenUsed. Unknown digests get
	// apperrors.ErrRefreshTokenNotFound.
	MarkUsed(ctx context.Context, secretHash string) (models.RefreshToken, error)

	RevokeForDevice(ctx context.Context, userID int64, device string) error
	RevokeForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PasswordReset repository interface. One live record per email.
type PasswordResetRepo interface {
	// Replace removes any prior record for the email and stores the new one
	Replace(ctx context.Context, token models.PasswordResetToken) error

	// Must return apperrors.ErrResetTokenInvalid if no record for the email
	Get(ctx context.Context, email string) (models.PasswordResetToken, error)

	Delete(ctx context.Context, email string) error
}

// Storage aggregates repositories and runs closures inside a transaction
type Storage interface {
	User() UserRepo
	Access() AccessTokenRepo
	Refresh() RefreshTokenRepo
	PasswordReset() PasswordResetRepo

	// InTx runs fn against a transaction-scoped Storage. Returning an error
	// rolls everything back.
	InTx(ctx context.Context, fn func(Storage) error) error
}
