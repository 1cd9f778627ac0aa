package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"authgate/internal/apperrors"
	"authgate/internal/models"
)

type PasswordResetRepo struct {
	db DBTX
}

const replaceResetToken = `-- name: ReplaceResetToken
INSERT INTO password_reset_tokens (email, secret_hash, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE
SET secret_hash = EXCLUDED.secret_hash, created_at = EXCLUDED.created_at
`

// Replace keeps the one-live-record-per-email invariant: issuing a new
// reset token supersedes any prior one for the address
func (r *PasswordResetRepo) Replace(ctx context.Context, token models.PasswordResetToken) error {
	_, err := r.db.Exec(ctx, replaceResetToken, token.Email, token.SecretHash, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const getResetToken = `-- name: GetResetToken
SELECT email, secret_hash, created_at
FROM password_reset_tokens
WHERE email = $1
`

func (r *PasswordResetRepo) Get(ctx context.Context, email string) (models.PasswordResetToken, error) {
	rows, _ := r.db.Query(ctx, getResetToken, email)
	token, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.PasswordResetToken, error) {
		var t models.PasswordResetToken
		err := row.Scan(&t.Email, &t.SecretHash, &t.CreatedAt)
		return t, err
	})

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrResetTokenInvalid
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const deleteResetToken = `-- name: DeleteResetToken
DELETE FROM password_reset_tokens
WHERE email = $1
`

func (r *PasswordResetRepo) Delete(ctx context.Context, email string) error {
	_, err := r.db.Exec(ctx, deleteResetToken, email)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
