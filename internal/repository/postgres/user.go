package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"authgate/internal/apperrors"
	"authgate/internal/models"
	"authgate/internal/repository"
)

type UserRepo struct {
	db DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (username, email, password_hash, role, locale)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, username, email, password_hash, role, locale
`

func (r *UserRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	role := arg.Role
	if role == "" {
		role = models.RoleUser
	}
	locale := arg.Locale
	if locale == "" {
		locale = models.DefaultLocale
	}

	rows, _ := r.db.Query(ctx, createUser, arg.Username, arg.Email, arg.PasswordHash, role, locale)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return user, apperrors.ErrUserAlreadyExists
		}
	}

	return user, err
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, username, email, password_hash, role, locale
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	rows, _ := r.db.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, username, email, password_hash, role, locale
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.db.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

const getUserByUsername = `-- name: GetUserByUsername
SELECT id, created_at, username, email, password_hash, role, locale
FROM users
WHERE username = $1
`

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	rows, _ := r.db.Query(ctx, getUserByUsername, username)
	return collectUser(rows)
}

const updateUser = `-- name: UpdateUser
UPDATE users
SET username = COALESCE($2, username),
    email    = COALESCE($3, email),
    locale   = COALESCE($4, locale)
WHERE id = $1
RETURNING id, created_at, username, email, password_hash, role, locale
`

func (r *UserRepo) UpdateUser(ctx context.Context, id int64, arg repository.UpdateUserParams) (models.User, error) {
	rows, _ := r.db.Query(ctx, updateUser, id, arg.Username, arg.Email, arg.Locale)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return user, apperrors.ErrUserAlreadyExists
		}
		return user, fmt.Errorf("db error: %w", err)
	}
}

const updatePassword = `-- name: UpdatePassword
UPDATE users
SET password_hash = $2
WHERE id = $1
`

func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx, updatePassword, id, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

const deleteUser = `-- name: DeleteUser
DELETE FROM users
WHERE id = $1
`

func (r *UserRepo) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, deleteUser, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

const listUsers = `-- name: ListUsers
SELECT id, created_at, username, email, password_hash, role, locale, count(*) OVER () AS total
FROM users
WHERE ($1 = '' OR username ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
ORDER BY id
LIMIT $2 OFFSET $3
`

func (r *UserRepo) ListUsers(ctx context.Context, arg repository.ListUsersParams) ([]models.User, int64, error) {
	var total int64

	rows, _ := r.db.Query(ctx, listUsers, arg.Search, arg.Limit, arg.Offset)
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.User, error) {
		var u models.User
		err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Locale, &total)
		return u, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return users, total, nil
}

const listOnlineUsers = `-- name: ListOnlineUsers
SELECT DISTINCT u.id, u.created_at, u.username, u.email, u.password_hash, u.role, u.locale
FROM users u
JOIN access_tokens t ON t.user_id = u.id
WHERE t.expires_at > $1
ORDER BY u.id
`

func (r *UserRepo) ListOnlineUsers(ctx context.Context, now time.Time) ([]models.User, error) {
	rows, _ := r.db.Query(ctx, listOnlineUsers, now)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		return user, apperrors.ErrUserNotFound
	}

	return user, err
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Locale)
	return u, err
}
