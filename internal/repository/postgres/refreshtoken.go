package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"authgate/internal/apperrors"
	"authgate/internal/models"
)

type RefreshTokenRepo struct {
	db DBTX
}

const saveRefreshToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (id, user_id, secret_hash, device, created_at, expires_at, revoked)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, secret_hash, device, created_at, expires_at, revoked
`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.db.Query(ctx, saveRefreshToken,
		token.ID, token.UserID, token.SecretHash, token.Device, token.CreatedAt, token.ExpiresAt, token.Revoked)
	saved, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

const getRefreshTokenByHash = `-- name: GetRefreshTokenByHash
SELECT id, user_id, secret_hash, device, created_at, expires_at, revoked
FROM refresh_tokens
WHERE secret_hash = $1
`

// Get token by the digest of its secret
// Returns the row even if it is revoked or expired
func (r *RefreshTokenRepo) GetBySecretHash(ctx context.Context, secretHash string) (models.RefreshToken, error) {
	rows, _ := r.db.Query(ctx, getRefreshTokenByHash, secretHash)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrRefreshTokenNotFound
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const markRefreshTokenUsed = `-- name: MarkRefreshTokenUsed
UPDATE refresh_tokens
SET revoked = TRUE
WHERE secret_hash = $1 AND revoked = FALSE
RETURNING id, user_id, secret_hash, device, created_at, expires_at, revoked
`

// MarkUsed flips revoked with a single conditional write. The WHERE clause
// guards the flag, so out of any number of concurrent callers exactly one gets
// the row back; the rest fall through to the existence check.
func (r *RefreshTokenRepo) MarkUsed(ctx context.Context, secretHash string) (models.RefreshToken, error) {
	rows, _ := r.db.Query(ctx, markRefreshTokenUsed, secretHash)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either the token never existed or it is revoked already.
		// Distinguish so redemption can treat reuse as a signal.
		if _, getErr := r.GetBySecretHash(ctx, secretHash); getErr == nil {
			return token, apperrors.ErrRefreshTokenUsed
		}
		return token, apperrors.ErrRefreshTokenNotFound
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeRefreshForDevice = `-- name: RevokeRefreshForDevice
UPDATE refresh_tokens
SET revoked = TRUE
WHERE user_id = $1 AND device = $2 AND revoked = FALSE
`

func (r *RefreshTokenRepo) RevokeForDevice(ctx context.Context, userID int64, device string) error {
	_, err := r.db.Exec(ctx, revokeRefreshForDevice, userID, device)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const revokeRefreshForUser = `-- name: RevokeRefreshForUser
UPDATE refresh_tokens
SET revoked = TRUE
WHERE user_id = $1 AND revoked = FALSE
`

func (r *RefreshTokenRepo) RevokeForUser(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, revokeRefreshForUser, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteExpiredRefresh = `-- name: DeleteExpiredRefresh
DELETE FROM refresh_tokens
WHERE expires_at < $1
`

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteExpiredRefresh, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.SecretHash, &t.Device, &t.CreatedAt, &t.ExpiresAt, &t.Revoked)
	return t, err
}
