package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Both wrap ErrUserAlreadyExists so callers that only care about the
	// conflict itself keep matching with errors.Is
	ErrUsernameTaken = fmt.Errorf("%w: username taken", ErrUserAlreadyExists)
	ErrEmailTaken    = fmt.Errorf("%w: email taken", ErrUserAlreadyExists)

	// Returned for every bad-credential path: the caller must not learn
	// whether the email was unknown or the password wrong
	ErrAuthFailed = errors.New("authentication failed")

	ErrAccessTokenNotFound = errors.New("access token not found")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenUsed     = errors.New("refresh token already used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrResetTokenInvalid = errors.New("reset token invalid")
	ErrResetTokenExpired = errors.New("reset token is expired")

	ErrLocaleUnsupported = errors.New("locale is not supported")
)

// RateLimitedError carries the lockout duration so handlers can render
// a Retry-After header.
type RateLimitedError struct {
	RetryAfter int64 // seconds until the window expires
}

func (e *RateLimitedError) Error() string {
	return "too many failed attempts"
}

func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rle *RateLimitedError
	ok := errors.As(err, &rle)
	return rle, ok
}
