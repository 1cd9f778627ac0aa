package auth

import (
	"context"
	"errors"
	"fmt"

	"authgate/internal/apperrors"
	"authgate/internal/models"
	"authgate/internal/ratelimit"
	"authgate/internal/repository"
)

// DefaultDevice labels tokens issued when the client did not name a device
const DefaultDevice = "web"

// TokenIssuer is the part of the token service the orchestrator needs
type TokenIssuer interface {
	Issue(ctx context.Context, user models.User, device string) (models.TokenPair, error)
	Redeem(ctx context.Context, refreshSecret string) (models.TokenPair, error)
	Authenticate(ctx context.Context, accessSecret string) (models.User, []string, error)
	RevokeDevice(ctx context.Context, userID int64, device string) error
	RevokeAll(ctx context.Context, userID int64) error
}

type Config struct {
	// Hasher used during registration and login. BcryptHasher if nil.
	Hasher PasswordHasher
}

// Service composes the limiter, the credential store and the token issuer
// into the login, register, refresh and logout flows
type Service struct {
	hasher   PasswordHasher
	limiter  *ratelimit.Limiter
	issuer   TokenIssuer
	userRepo repository.UserRepo
}

func NewService(cfg Config, limiter *ratelimit.Limiter, issuer TokenIssuer, userRepo repository.UserRepo) (*Service, error) {
	if limiter == nil || issuer == nil || userRepo == nil {
		return nil, errors.New("limiter, issuer and user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	return &Service{
		hasher:   hasher,
		limiter:  limiter,
		issuer:   issuer,
		userRepo: userRepo,
	}, nil
}

// LoginResult carries what the login endpoint returns on success
type LoginResult struct {
	User models.User
	Pair models.TokenPair
}

func (s *Service) Register(ctx context.Context, username string, email string, password string) (LoginResult, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			return LoginResult{}, s.conflictField(ctx, username)
		}
		return LoginResult{}, err
	}

	pair, err := s.issuer.Issue(ctx, user, DefaultDevice)
	if err != nil {
		return LoginResult{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return LoginResult{User: user, Pair: pair}, nil
}

// Login authenticates the credentials for the client at clientIP.
// The limiter is consulted before any credential work so a locked client
// costs no bcrypt time, and every failure path counts one more attempt.
func (s *Service) Login(ctx context.Context, email string, password string, device string, clientIP string) (LoginResult, error) {
	if err := s.checkLocked(ctx, clientIP); err != nil {
		return LoginResult{}, err
	}

	if device == "" {
		device = DefaultDevice
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Keep the unknown-email path as slow as the wrong-password one
			_ = s.hasher.Compare(dummyHash, password)
			return LoginResult{}, s.failAttempt(ctx, clientIP)
		}
		return LoginResult{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return LoginResult{}, s.failAttempt(ctx, clientIP)
	}

	if err := s.limiter.Reset(ctx, clientIP); err != nil {
		return LoginResult{}, err
	}

	// Fresh login supersedes every session the user had
	if err := s.issuer.RevokeAll(ctx, user.ID); err != nil {
		return LoginResult{}, fmt.Errorf("error while revoking old tokens. Err: %w", err)
	}

	pair, err := s.issuer.Issue(ctx, user, device)
	if err != nil {
		return LoginResult{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return LoginResult{User: user, Pair: pair}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshSecret string) (models.TokenPair, error) {
	return s.issuer.Redeem(ctx, refreshSecret)
}

// Authenticate resolves a bearer secret presented on a request
func (s *Service) Authenticate(ctx context.Context, accessSecret string) (models.User, []string, error) {
	return s.issuer.Authenticate(ctx, accessSecret)
}

// Logout revokes the pair belonging to the device the access token was
// issued for. The token itself names the device, nothing else is trusted.
func (s *Service) Logout(ctx context.Context, user models.User, device string) error {
	if device == "" {
		device = DefaultDevice
	}
	return s.issuer.RevokeDevice(ctx, user.ID, device)
}

func (s *Service) LogoutAll(ctx context.Context, user models.User) error {
	return s.issuer.RevokeAll(ctx, user.ID)
}

// RecordLoginFailure throttles failure paths that never reach Login, for
// example a request with a malformed email rejected by validation. Without
// this, validation errors would be a free oracle for enumeration attempts.
// The hit is counted first, even for a client that is already locked out,
// so hammering the endpoint keeps feeding the window instead of draining it.
func (s *Service) RecordLoginFailure(ctx context.Context, clientIP string) error {
	if err := s.limiter.RecordFailure(ctx, clientIP); err != nil {
		return err
	}
	if err := s.checkLocked(ctx, clientIP); err != nil {
		return err
	}
	return apperrors.ErrAuthFailed
}

// AttemptsRemaining reports how many failures are left before lockout
func (s *Service) AttemptsRemaining(ctx context.Context, clientIP string) (int, error) {
	return s.limiter.Remaining(ctx, clientIP)
}

// conflictField narrows a registration conflict to the column that caused
// it: a user under this username means the username is taken, otherwise it
// was the email.
func (s *Service) conflictField(ctx context.Context, username string) error {
	if _, err := s.userRepo.GetUserByUsername(ctx, username); err == nil {
		return apperrors.ErrUsernameTaken
	}
	return apperrors.ErrEmailTaken
}

func (s *Service) checkLocked(ctx context.Context, clientIP string) error {
	locked, err := s.limiter.IsLocked(ctx, clientIP)
	if err != nil {
		return err
	}
	if !locked {
		return nil
	}

	retryAfter, err := s.limiter.TimeRemaining(ctx, clientIP)
	if err != nil {
		return err
	}

	return &apperrors.RateLimitedError{RetryAfter: int64(retryAfter.Seconds())}
}

// failAttempt records the failure and returns the opaque credential error
func (s *Service) failAttempt(ctx context.Context, clientIP string) error {
	if err := s.limiter.RecordFailure(ctx, clientIP); err != nil {
		return err
	}
	return apperrors.ErrAuthFailed
}
