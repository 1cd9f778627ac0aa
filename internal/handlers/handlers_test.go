package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"authgate/internal/logger"
	"authgate/internal/ratelimit"
	"authgate/internal/repository"
	"authgate/internal/repository/postgres"
	"authgate/internal/service/auth"
	"authgate/internal/service/passreset"
	"authgate/internal/service/token"
	"authgate/internal/service/user"
	"authgate/internal/testutil"
)

// captureMailer keeps sent reset secrets so tests can use them
type captureMailer struct {
	emails  []string
	secrets []string
}

func (m *captureMailer) SendPasswordReset(email string, secret string) error {
	m.emails = append(m.emails, email)
	m.secrets = append(m.secrets, secret)
	return nil
}

// testServer bundles the production stack wired over one rolled back tx
type testServer struct {
	URL     string
	Auth    *auth.Service
	Issuer  *token.Issuer
	Storage repository.Storage
	Mailer  *captureMailer
}

// withServer runs the full router with production services against a
// transaction scoped storage, rolled back when the test stops
func withServer(dbpool *pgxpool.Pool, t *testing.T, fn func(ts testServer)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)
		log := logger.NewNoOpLogger()

		issuer, err := token.NewIssuer(token.Config{}, storage)
		require.NoError(t, err, "issuer should be created without errors")

		limiter := ratelimit.New(ratelimit.Config{}, nil)

		authService, err := auth.NewService(auth.Config{}, limiter, issuer, storage.User())
		require.NoError(t, err, "auth service starting error", err)

		mailer := &captureMailer{}
		resetService, err := passreset.NewService(passreset.Config{}, storage.User(), storage.PasswordReset(), issuer, mailer, log)
		require.NoError(t, err, "reset service starting error", err)

		userService := user.NewService(storage.User())

		router := NewRouter(RouterDeps{
			Auth:      NewAuth(authService, log),
			PassReset: NewPassReset(resetService, log),
			User:      NewUser(userService, log),
			Admin:     NewAdmin(userService, log),
			Resolver:  issuer,
			Logger:    log,
		})

		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(testServer{
			URL:     srv.URL,
			Auth:    authService,
			Issuer:  issuer,
			Storage: storage,
			Mailer:  mailer,
		})
	})
}

// doJSON sends a request with an optional bearer token and returns the
// response with its body read out
func doJSON(t *testing.T, method string, url string, body string, bearer string) (*http.Response, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	return resp, string(raw)
}
