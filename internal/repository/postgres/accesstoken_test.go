package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"authgate/internal/apperrors"
	"authgate/internal/models"
	"authgate/internal/testutil"
	"authgate/internal/testutil/fixtures"
)

func Test_AccessTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	newToken := func(userID int64, hash string, device string) models.AccessToken {
		return models.AccessToken{
			ID:           uuid.New(),
			UserID:       userID,
			SecretHash:   hash,
			Device:       device,
			Capabilities: []string{"user"},
			CreatedAt:    mustParseTime("2024-01-01 19:00:01Z"),
			ExpiresAt:    mustParseTime("2200-01-01 03:00:02Z"),
		}
	}

	t.Run("save and get", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := AccessTokenRepo{db: tx}
			user := fixtures.MustCreateUser(t, &UserRepo{db: tx}, "john", "password")
			token := newToken(user.ID, "digest-1", "web")

			saved, err := repo.Save(t.Context(), token)
			require.NoError(t, err)
			require.Equal(t, token.ID, saved.ID)
			require.Equal(t, []string{"user"}, saved.Capabilities)

			got, err := repo.GetBySecretHash(t.Context(), "digest-1")
			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)
			require.Equal(t, "web", got.Device)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, time.Microsecond)

			_, err = repo.GetBySecretHash(t.Context(), "missing")
			require.ErrorIs(t, err, apperrors.ErrAccessTokenNotFound)
		})
	})

	t.Run("delete for device", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := AccessTokenRepo{db: tx}
			user := fixtures.MustCreateUser(t, &UserRepo{db: tx}, "john", "password")
			_, err := repo.Save(t.Context(), newToken(user.ID, "digest-web", "web"))
			require.NoError(t, err)
			_, err = repo.Save(t.Context(), newToken(user.ID, "digest-mobile", "mobile"))
			require.NoError(t, err)

			err = repo.DeleteForDevice(t.Context(), user.ID, "web")
			require.NoError(t, err)

			_, err = repo.GetBySecretHash(t.Context(), "digest-web")
			require.ErrorIs(t, err, apperrors.ErrAccessTokenNotFound)
			_, err = repo.GetBySecretHash(t.Context(), "digest-mobile")
			require.NoError(t, err, "other device must survive")
		})
	})

	t.Run("delete for user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := AccessTokenRepo{db: tx}
			user := fixtures.MustCreateUser(t, &UserRepo{db: tx}, "john", "password")
			other := fixtures.MustCreateUser(t, &UserRepo{db: tx}, "jane", "password")
			_, err := repo.Save(t.Context(), newToken(user.ID, "digest-web", "web"))
			require.NoError(t, err)
			_, err = repo.Save(t.Context(), newToken(other.ID, "digest-other", "web"))
			require.NoError(t, err)

			err = repo.DeleteForUser(t.Context(), user.ID)
			require.NoError(t, err)

			_, err = repo.GetBySecretHash(t.Context(), "digest-web")
			require.ErrorIs(t, err, apperrors.ErrAccessTokenNotFound)
			_, err = repo.GetBySecretHash(t.Context(), "digest-other")
			require.NoError(t, err, "other user's token must survive")
		})
	})

	t.Run("delete expired", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := AccessTokenRepo{db: tx}
			user := fixtures.MustCreateUser(t, &UserRepo{db: tx}, "john", "password")

			expired := newToken(user.ID, "digest-old", "web")
			expired.ExpiresAt = mustParseTime("2024-02-01 00:00:00Z")
			_, err := repo.Save(t.Context(), expired)
			require.NoError(t, err)
			_, err = repo.Save(t.Context(), newToken(user.ID, "digest-live", "mobile"))
			require.NoError(t, err)

			deleted, err := repo.DeleteExpired(t.Context(), mustParseTime("2025-01-01 00:00:00Z"))

			require.NoError(t, err)
			require.Equal(t, int64(1), deleted)

			_, err = repo.GetBySecretHash(t.Context(), "digest-live")
			require.NoError(t, err)
		})
	})

	t.Run("cascade on user delete", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			users := UserRepo{db: tx}
			repo := AccessTokenRepo{db: tx}
			user := fixtures.MustCreateUser(t, &users, "john", "password")
			_, err := repo.Save(t.Context(), newToken(user.ID, "digest-1", "web"))
			require.NoError(t, err)

			err = users.DeleteUser(t.Context(), user.ID)
			require.NoError(t, err)

			_, err = repo.GetBySecretHash(t.Context(), "digest-1")
			require.ErrorIs(t, err, apperrors.ErrAccessTokenNotFound, "tokens must go with the account")
		})
	})
}
