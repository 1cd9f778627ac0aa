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

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	newToken := func(userID int64, hash string, device string) models.RefreshToken {
		return models.RefreshToken{
			ID:         uuid.New(),
			UserID:     userID,
			SecretHash: hash,
			Device:     device,
			CreatedAt:  mustParseTime("2024-01-01 19:00:01Z"),
			ExpiresAt:  mustParseTime("2200-01-01 03:00:02Z"),
		}
	}

	t.Run("save token ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{db: tx}
			user := fixtures.MustCreateUser(t, &UserRepo{db: tx}, "john", "password")
			token := newToken(user.ID, "digest-1", "web")

			got, err := repo.Save(t.Context(), token)

			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)
			require.Equal(t, user.ID, got.UserID)
			require.Equal(t, "digest-1", got.SecretHash)
			require.Equal(t, "web", got.Device)
			require.WithinDuration(t, token.CreatedAt, got.CreatedAt, time.Microsecond)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, time.Microsecond)
			require.False(t, got.Revoked, "fresh token must not be revoked")
		})
	})

	t.Run("get token by secret hash", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{db: tx}
			user := fixtures.MustCreateUser(t, &UserRepo{db: tx}, "john", "password")
			token := newToken(user.ID, "digest-1", "web")
			_, err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.GetBySecretHash(t.Context(), "digest-1")

			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)

			_, err = repo.GetBySecretHash(t.Context(), "missing")
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("mark used", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{db: tx}
			user := fixtures.MustCreateUser(t, &UserRepo{db: tx}, "john", "password")
			_, err := repo.Save(t.Context(), newToken(user.ID, "digest-1", "web"))
			require.NoError(t, err)

			got, err := repo.MarkUsed(t.Context(), "digest-1")
			require.NoError(t, err, "first redemption must succeed")
			require.True(t, got.Revoked)

			_, err = repo.MarkUsed(t.Context(), "digest-1")
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenUsed, "second redemption must report reuse")

			_, err = repo.MarkUsed(t.Context(), "missing")
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
		})
	})

	t.Run("revoke for device", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{db: tx}
			user := fixtures.MustCreateUser(t, &UserRepo{db: tx}, "john", "password")
			_, err := repo.Save(t.Context(), newToken(user.ID, "digest-web", "web"))
			require.NoError(t, err)
			_, err = repo.Save(t.Context(), newToken(user.ID, "digest-mobile", "mobile"))
			require.NoError(t, err)

			err = repo.RevokeForDevice(t.Context(), user.ID, "web")
			require.NoError(t, err)

			web, err := repo.GetBySecretHash(t.Context(), "digest-web")
			require.NoError(t, err)
			require.True(t, web.Revoked)

			mobile, err := repo.GetBySecretHash(t.Context(), "digest-mobile")
			require.NoError(t, err)
			require.False(t, mobile.Revoked, "other device must stay live")
		})
	})

	t.Run("revoke for user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{db: tx}
			user := fixtures.MustCreateUser(t, &UserRepo{db: tx}, "john", "password")
			other := fixtures.MustCreateUser(t, &UserRepo{db: tx}, "jane", "password")
			_, err := repo.Save(t.Context(), newToken(user.ID, "digest-web", "web"))
			require.NoError(t, err)
			_, err = repo.Save(t.Context(), newToken(user.ID, "digest-mobile", "mobile"))
			require.NoError(t, err)
			_, err = repo.Save(t.Context(), newToken(other.ID, "digest-other", "web"))
			require.NoError(t, err)

			err = repo.RevokeForUser(t.Context(), user.ID)
			require.NoError(t, err)

			for _, hash := range []string{"digest-web", "digest-mobile"} {
				got, err := repo.GetBySecretHash(t.Context(), hash)
				require.NoError(t, err)
				require.True(t, got.Revoked)
			}

			got, err := repo.GetBySecretHash(t.Context(), "digest-other")
			require.NoError(t, err)
			require.False(t, got.Revoked, "other user's token must stay live")
		})
	})

	t.Run("delete expired", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{db: tx}
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

			_, err = repo.GetBySecretHash(t.Context(), "digest-old")
			require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
			_, err = repo.GetBySecretHash(t.Context(), "digest-live")
			require.NoError(t, err)
		})
	})
}
