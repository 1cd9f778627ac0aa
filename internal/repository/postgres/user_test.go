package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"authgate/internal/apperrors"
	"authgate/internal/models"
	"authgate/internal/repository"
	"authgate/internal/testutil"
	"authgate/internal/testutil/fixtures"
)

func Test_UserRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	params := repository.CreateUserParams{
		Username:     "john",
		Email:        "john@example.com",
		PasswordHash: "hash",
	}

	t.Run("create user ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}

			user, err := repo.CreateUser(t.Context(), params)

			require.NoError(t, err)
			require.NotZero(t, user.ID)
			require.NotZero(t, user.CreatedAt)
			require.Equal(t, "john", user.Username)
			require.Equal(t, "john@example.com", user.Email)
			require.Equal(t, "hash", user.PasswordHash)
			require.Equal(t, models.RoleUser, user.Role, "role should default to user")
			require.Equal(t, models.DefaultLocale, user.Locale, "locale should default")
		})
	})

	t.Run("create user with role and locale", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}
			arg := params
			arg.Role = models.RoleAdmin
			arg.Locale = "lt"

			user, err := repo.CreateUser(t.Context(), arg)

			require.NoError(t, err)
			require.Equal(t, models.RoleAdmin, user.Role)
			require.Equal(t, "lt", user.Locale)
		})
	})

	t.Run("duplicate username", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}
			_, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)

			arg := params
			arg.Email = "other@example.com"
			_, err = repo.CreateUser(t.Context(), arg)

			require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("duplicate email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}
			_, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)

			arg := params
			arg.Username = "johnny"
			_, err = repo.CreateUser(t.Context(), arg)

			require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("get user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}
			created, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)

			byID, err := repo.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, created, byID)

			byEmail, err := repo.GetUserByEmail(t.Context(), "john@example.com")
			require.NoError(t, err)
			require.Equal(t, created, byEmail)

			byUsername, err := repo.GetUserByUsername(t.Context(), "john")
			require.NoError(t, err)
			require.Equal(t, created, byUsername)
		})
	})

	t.Run("get unknown user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}

			_, err := repo.GetUserByID(t.Context(), 404)
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)

			_, err = repo.GetUserByEmail(t.Context(), "nobody@example.com")
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}
			created, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)

			username := "johnny"
			updated, err := repo.UpdateUser(t.Context(), created.ID, repository.UpdateUserParams{
				Username: &username,
			})

			require.NoError(t, err)
			require.Equal(t, "johnny", updated.Username)
			require.Equal(t, created.Email, updated.Email, "email must stay untouched")
			require.Equal(t, created.Locale, updated.Locale, "locale must stay untouched")
		})
	})

	t.Run("update unknown user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}
			username := "johnny"

			_, err := repo.UpdateUser(t.Context(), 404, repository.UpdateUserParams{Username: &username})

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("update to taken email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}
			_, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)
			other, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
				Username: "jane", Email: "jane@example.com", PasswordHash: "hash",
			})
			require.NoError(t, err)

			taken := "john@example.com"
			_, err = repo.UpdateUser(t.Context(), other.ID, repository.UpdateUserParams{Email: &taken})

			require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
		})
	})

	t.Run("update password", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}
			created, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)

			err = repo.UpdatePassword(t.Context(), created.ID, "new-hash")
			require.NoError(t, err)

			got, err := repo.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, "new-hash", got.PasswordHash)
		})
	})

	t.Run("update password unknown user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}

			err := repo.UpdatePassword(t.Context(), 404, "new-hash")

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("delete user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}
			created, err := repo.CreateUser(t.Context(), params)
			require.NoError(t, err)

			err = repo.DeleteUser(t.Context(), created.ID)
			require.NoError(t, err)

			_, err = repo.GetUserByID(t.Context(), created.ID)
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)

			err = repo.DeleteUser(t.Context(), created.ID)
			require.ErrorIs(t, err, apperrors.ErrUserNotFound, "second delete should report missing user")
		})
	})

	t.Run("list users", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}
			for _, u := range []repository.CreateUserParams{
				{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"},
				{Username: "bob", Email: "bob@example.com", PasswordHash: "hash"},
				{Username: "carol", Email: "carol@other.org", PasswordHash: "hash"},
			} {
				_, err := repo.CreateUser(t.Context(), u)
				require.NoError(t, err)
			}

			t.Run("all", func(t *testing.T) {
				users, total, err := repo.ListUsers(t.Context(), repository.ListUsersParams{Limit: 10})

				require.NoError(t, err)
				require.Equal(t, int64(3), total)
				require.Len(t, users, 3)
			})

			t.Run("search matches username or email", func(t *testing.T) {
				users, total, err := repo.ListUsers(t.Context(), repository.ListUsersParams{Search: "other", Limit: 10})

				require.NoError(t, err)
				require.Equal(t, int64(1), total)
				require.Len(t, users, 1)
				require.Equal(t, "carol", users[0].Username)
			})

			t.Run("pagination keeps total", func(t *testing.T) {
				users, total, err := repo.ListUsers(t.Context(), repository.ListUsersParams{Limit: 2, Offset: 2})

				require.NoError(t, err)
				require.Equal(t, int64(3), total, "total must count all matching rows, not the page")
				require.Len(t, users, 1)
			})

			t.Run("no match", func(t *testing.T) {
				users, total, err := repo.ListUsers(t.Context(), repository.ListUsersParams{Search: "nobody", Limit: 10})

				require.NoError(t, err)
				require.Zero(t, total)
				require.Empty(t, users)
			})
		})
	})

	t.Run("list online users", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := UserRepo{db: tx}
			tokens := AccessTokenRepo{db: tx}

			alice := fixtures.MustCreateUser(t, &repo, "alice", "password")
			bob := fixtures.MustCreateUser(t, &repo, "bob", "password")
			fixtures.MustCreateUser(t, &repo, "carol", "password")

			now := time.Now()
			saveToken := func(userID int64, hash string, expiresAt time.Time) {
				_, err := tokens.Save(t.Context(), models.AccessToken{
					ID:           uuid.New(),
					UserID:       userID,
					SecretHash:   hash,
					Device:       "web",
					Capabilities: []string{"user"},
					CreatedAt:    now,
					ExpiresAt:    expiresAt,
				})
				require.NoError(t, err)
			}

			// Alice holds two live tokens, bob only a stale one, carol none
			saveToken(alice.ID, "digest-alice-web", now.Add(time.Hour))
			saveToken(alice.ID, "digest-alice-mobile", now.Add(time.Hour))
			saveToken(bob.ID, "digest-bob-web", now.Add(-time.Hour))

			online, err := repo.ListOnlineUsers(t.Context(), now)

			require.NoError(t, err)
			require.Len(t, online, 1, "two live tokens still mean one user")
			require.Equal(t, "alice", online[0].Username)

			online, err = repo.ListOnlineUsers(t.Context(), now.Add(-2*time.Hour))
			require.NoError(t, err)
			require.Len(t, online, 2, "bob's token was live back then")
			require.Equal(t, "alice", online[0].Username)
			require.Equal(t, "bob", online[1].Username, "ordered by id")
		})
	})
}
