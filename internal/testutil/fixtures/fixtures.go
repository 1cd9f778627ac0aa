package fixtures

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"authgate/internal/models"
	"authgate/internal/repository"
	"authgate/internal/service/auth"
)

// MustCreateUser inserts a user with a real digest of the given password.
// Username and email are derived from the name so several fixtures in one
// test never collide.
func MustCreateUser(t *testing.T, repo repository.UserRepo, name string, password string) models.User {
	t.Helper()

	hash, err := auth.BcryptHasher{}.Hash(password)
	require.NoError(t, err, "Error happened when hashing fixture password")

	user, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
		Username:     name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: hash,
		Role:         models.RoleUser,
		Locale:       models.DefaultLocale,
	})
	require.NoError(t, err, "Error happened when creating fixture user")

	return user
}
