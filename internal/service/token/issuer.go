package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"authgate/internal/apperrors"
	"authgate/internal/models"
	"authgate/internal/repository"
)

const (
	defaultAccessTTL  = 24 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour

	// Bytes of entropy behind each secret, hex encoded on the wire
	accessSecretLen  = 40
	refreshSecretLen = 60
)

type Config struct {
	// Token lifetimes. Defaults applied in NewIssuer if zero.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issuer mints, rotates and revokes the opaque token pairs. Secrets are
// random and stored only as SHA-256 digests, so a leaked store cannot be
// replayed, and revocation is a plain row update with immediate effect.
type Issuer struct {
	storage    repository.Storage
	accessTTL  time.Duration
	refreshTTL time.Duration

	// now is replaceable in tests
	now func() time.Time
}

func NewIssuer(cfg Config, storage repository.Storage) (*Issuer, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTTL)

	return &Issuer{
		storage:    storage,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// Digest is the stored form of any token secret
func Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Issue mints a fresh access and refresh pair for the user and device.
// Any prior tokens for the same (user, device) stop working: at most one
// live credential per device.
func (i *Issuer) Issue(ctx context.Context, user models.User, device string) (models.TokenPair, error) {
	var pair models.TokenPair

	err := i.storage.InTx(ctx, func(s repository.Storage) error {
		var err error
		pair, err = i.issueTx(ctx, s, user, device)
		return err
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Redeem exchanges a refresh secret for a new pair. The revoked flag is
// flipped by a conditional write before anything is minted, inside one
// transaction: concurrent redemptions of the same secret see exactly one
// success, and if minting fails the rollback leaves the old token valid.
func (i *Issuer) Redeem(ctx context.Context, refreshSecret string) (models.TokenPair, error) {
	var pair models.TokenPair

	err := i.storage.InTx(ctx, func(s repository.Storage) error {
		token, err := s.Refresh().MarkUsed(ctx, Digest(refreshSecret))
		if err != nil {
			return fmt.Errorf("error while marking token used. Err: %w", err)
		}

		if token.ExpiresAt.Before(i.now()) {
			return fmt.Errorf("error while marking token used. Err: %w", apperrors.ErrRefreshTokenExpired)
		}

		user, err := s.User().GetUserByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("refresh token owner lookup failed. Err: %w", err)
		}

		pair, err = i.issueTx(ctx, s, user, token.Device)
		return err
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Resolve maps a bearer secret to its user and stored token. Expired rows
// are dropped on the spot and reported with the same error as missing ones,
// so callers cannot tell the two cases apart.
func (i *Issuer) Resolve(ctx context.Context, accessSecret string) (models.User, models.AccessToken, error) {
	token, err := i.storage.Access().GetBySecretHash(ctx, Digest(accessSecret))
	if err != nil {
		return models.User{}, token, fmt.Errorf("access token lookup failed. Err: %w", err)
	}

	if token.ExpiresAt.Before(i.now()) {
		_ = i.storage.Access().DeleteForDevice(ctx, token.UserID, token.Device)
		return models.User{}, token, fmt.Errorf("access token lookup failed. Err: %w", apperrors.ErrAccessTokenNotFound)
	}

	user, err := i.storage.User().GetUserByID(ctx, token.UserID)
	if err != nil {
		return models.User{}, token, fmt.Errorf("access token owner lookup failed. Err: %w", err)
	}

	return user, token, nil
}

// Authenticate resolves a bearer secret to its user and capability set
func (i *Issuer) Authenticate(ctx context.Context, accessSecret string) (models.User, []string, error) {
	user, token, err := i.Resolve(ctx, accessSecret)
	if err != nil {
		return models.User{}, nil, err
	}
	return user, token.Capabilities, nil
}

// RevokeDevice invalidates the pair issued for one device only
func (i *Issuer) RevokeDevice(ctx context.Context, userID int64, device string) error {
	return i.storage.InTx(ctx, func(s repository.Storage) error {
		if err := s.Access().DeleteForDevice(ctx, userID, device); err != nil {
			return err
		}
		return s.Refresh().RevokeForDevice(ctx, userID, device)
	})
}

// RevokeAll invalidates every token the user owns, on every device
func (i *Issuer) RevokeAll(ctx context.Context, userID int64) error {
	return i.storage.InTx(ctx, func(s repository.Storage) error {
		if err := s.Access().DeleteForUser(ctx, userID); err != nil {
			return err
		}
		return s.Refresh().RevokeForUser(ctx, userID)
	})
}

// PurgeExpired sweeps token rows past their expiry. Housekeeping only;
// expiry is always checked at read time too.
func (i *Issuer) PurgeExpired(ctx context.Context) (int64, error) {
	var total int64

	err := i.storage.InTx(ctx, func(s repository.Storage) error {
		now := i.now()

		n, err := s.Access().DeleteExpired(ctx, now)
		if err != nil {
			return err
		}
		total += n

		n, err = s.Refresh().DeleteExpired(ctx, now)
		if err != nil {
			return err
		}
		total += n

		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

// issueTx runs the actual minting against a transaction scoped storage so
// Redeem can revoke and reissue atomically
func (i *Issuer) issueTx(ctx context.Context, s repository.Storage, user models.User, device string) (models.TokenPair, error) {
	var pair models.TokenPair
	now := i.now().Truncate(time.Second)
	accessExpiresAt := now.Add(i.accessTTL)
	refreshExpiresAt := now.Add(i.refreshTTL)

	// Supersede whatever the device held before
	if err := s.Access().DeleteForDevice(ctx, user.ID, device); err != nil {
		return pair, fmt.Errorf("error while invalidating device tokens. Err: %w", err)
	}
	if err := s.Refresh().RevokeForDevice(ctx, user.ID, device); err != nil {
		return pair, fmt.Errorf("error while invalidating device tokens. Err: %w", err)
	}

	accessSecret, err := generateSecret(accessSecretLen)
	if err != nil {
		return pair, fmt.Errorf("error while generating access token. Err: %w", err)
	}

	_, err = s.Access().Save(ctx, models.AccessToken{
		ID:           uuid.New(),
		UserID:       user.ID,
		SecretHash:   Digest(accessSecret),
		Device:       device,
		Capabilities: user.Capabilities(),
		CreatedAt:    now,
		ExpiresAt:    accessExpiresAt,
	})
	if err != nil {
		return pair, fmt.Errorf("error while saving access token. Err: %w", err)
	}

	refreshSecret, err := generateSecret(refreshSecretLen)
	if err != nil {
		return pair, fmt.Errorf("error while generating refresh token. Err: %w", err)
	}

	_, err = s.Refresh().Save(ctx, models.RefreshToken{
		ID:         uuid.New(),
		UserID:     user.ID,
		SecretHash: Digest(refreshSecret),
		Device:     device,
		CreatedAt:  now,
		ExpiresAt:  refreshExpiresAt,
		Revoked:    false,
	})
	if err != nil {
		return pair, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  models.IssuedToken{Value: accessSecret, ExpiresAt: accessExpiresAt},
		Refresh: models.IssuedToken{Value: refreshSecret, ExpiresAt: refreshExpiresAt},
	}, nil
}

func generateSecret(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
