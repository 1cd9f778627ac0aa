package passreset

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"authgate/internal/apperrors"
	"authgate/internal/logger"
	"authgate/internal/models"
	"authgate/internal/repository"
	"authgate/internal/service/auth"
)

const (
	defaultExpiry = 60 * time.Minute

	// Entropy behind a reset secret, hex encoded for the link
	secretLen = 48
)

// Mailer delivers the reset secret to the account owner. Fire and forget:
// delivery failures are logged, never surfaced to the requester.
type Mailer interface {
	SendPasswordReset(email string, secret string) error
}

// TokenRevoker lets a consumed reset kill every outstanding session.
// Old sessions surviving a password reset would defeat its purpose.
type TokenRevoker interface {
	RevokeAll(ctx context.Context, userID int64) error
}

type Config struct {
	// Expiry window for issued secrets, 60 minutes if zero
	Expiry time.Duration

	// Hasher for reset secret digests. BcryptHasher if nil: lookup is by
	// email, not by digest, so a salted slow hash costs nothing extra.
	Hasher auth.PasswordHasher
}

// Service issues and consumes single use, time boxed password reset tokens
type Service struct {
	expiry    time.Duration
	hasher    auth.PasswordHasher
	userRepo  repository.UserRepo
	resetRepo repository.PasswordResetRepo
	revoker   TokenRevoker
	mailer    Mailer
	logger    logger.Logger

	// now is replaceable in tests
	now func() time.Time
}

func NewService(cfg Config, userRepo repository.UserRepo, resetRepo repository.PasswordResetRepo, revoker TokenRevoker, mailer Mailer, l logger.Logger) (*Service, error) {
	if userRepo == nil || resetRepo == nil || revoker == nil || mailer == nil {
		return nil, errors.New("repos, revoker and mailer must not be nil")
	}

	if cfg.Expiry == 0 {
		cfg.Expiry = defaultExpiry
	}
	if cfg.Hasher == nil {
		cfg.Hasher = auth.BcryptHasher{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Service{
		expiry:    cfg.Expiry,
		hasher:    cfg.Hasher,
		userRepo:  userRepo,
		resetRepo: resetRepo,
		revoker:   revoker,
		mailer:    mailer,
		logger:    l,
		now:       time.Now,
	}, nil
}

// Request issues a reset secret for the email and hands it to the mailer.
// It reports success whether or not the account exists, so the endpoint
// does not reveal which addresses are registered.
func (s *Service) Request(ctx context.Context, email string) error {
	_, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("reset owner lookup failed. Err: %w", err)
	}

	secret, err := generateSecret(secretLen)
	if err != nil {
		return fmt.Errorf("error while generating reset secret. Err: %w", err)
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("error while hashing reset secret. Err: %w", err)
	}

	err = s.resetRepo.Replace(ctx, models.PasswordResetToken{
		Email:      email,
		SecretHash: hash,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return fmt.Errorf("error while saving reset token. Err: %w", err)
	}

	if err := s.mailer.SendPasswordReset(email, secret); err != nil {
		s.logger.Error("failed to send password reset mail", "email", email, "error", err.Error())
	}

	return nil
}

// Validate checks the secret against the stored record. Expired records are
// deleted as a side effect of the failed check.
func (s *Service) Validate(ctx context.Context, email string, secret string) error {
	record, err := s.resetRepo.Get(ctx, email)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(record.SecretHash, secret); err != nil {
		return apperrors.ErrResetTokenInvalid
	}

	if s.now().After(record.CreatedAt.Add(s.expiry)) {
		_ = s.resetRepo.Delete(ctx, email)
		return apperrors.ErrResetTokenExpired
	}

	return nil
}

// Consume validates, rewrites the password, burns the record and revokes
// every outstanding token for the user
func (s *Service) Consume(ctx context.Context, email string, secret string, newPassword string) error {
	if err := s.Validate(ctx, email, secret); err != nil {
		return err
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("reset owner lookup failed. Err: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password, error=%w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("error while updating password. Err: %w", err)
	}

	if err := s.resetRepo.Delete(ctx, email); err != nil {
		return fmt.Errorf("error while deleting reset token. Err: %w", err)
	}

	if err := s.revoker.RevokeAll(ctx, user.ID); err != nil {
		return fmt.Errorf("error while revoking sessions. Err: %w", err)
	}

	return nil
}

func generateSecret(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
