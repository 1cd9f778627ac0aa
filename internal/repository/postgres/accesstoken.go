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

type AccessTokenRepo struct {
	db DBTX
}

const saveAccessToken = `-- name: SaveAccessToken
INSERT INTO access_tokens (id, user_id, secret_hash, device, capabilities, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, secret_hash, device, capabilities, created_at, expires_at
`

func (r *AccessTokenRepo) Save(ctx context.Context, token models.AccessToken) (models.AccessToken, error) {
	rows, _ := r.db.Query(ctx, saveAccessToken,
		token.ID, token.UserID, token.SecretHash, token.Device, token.Capabilities, token.CreatedAt, token.ExpiresAt)
	saved, err := pgx.CollectOneRow(rows, rowToAccessToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

const getAccessTokenByHash = `-- name: GetAccessTokenByHash
SELECT id, user_id, secret_hash, device, capabilities, created_at, expires_at
FROM access_tokens
WHERE secret_hash = $1
`

func (r *AccessTokenRepo) GetBySecretHash(ctx context.Context, secretHash string) (models.AccessToken, error) {
	rows, _ := r.db.Query(ctx, getAccessTokenByHash, secretHash)
	token, err := pgx.CollectOneRow(rows, rowToAccessToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrAccessTokenNotFound
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const deleteAccessForDevice = `-- name: DeleteAccessForDevice
DELETE FROM access_tokens
WHERE user_id = $1 AND device = $2
`

func (r *AccessTokenRepo) DeleteForDevice(ctx context.Context, userID int64, device string) error {
	_, err := r.db.Exec(ctx, deleteAccessForDevice, userID, device)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteAccessForUser = `-- name: DeleteAccessForUser
DELETE FROM access_tokens
WHERE user_id = $1
`

func (r *AccessTokenRepo) DeleteForUser(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, deleteAccessForUser, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteExpiredAccess = `-- name: DeleteExpiredAccess
DELETE FROM access_tokens
WHERE expires_at < $1
`

func (r *AccessTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteExpiredAccess, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func rowToAccessToken(row pgx.CollectableRow) (models.AccessToken, error) {
	var t models.AccessToken
	err := row.Scan(&t.ID, &t.UserID, &t.SecretHash, &t.Device, &t.Capabilities, &t.CreatedAt, &t.ExpiresAt)
	return t, err
}
