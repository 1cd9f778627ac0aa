package middleware

import (
	"context"
	"net/http"
	"strings"

	"authgate/internal/handlers/render"
	"authgate/internal/handlers/userctx"
	"authgate/internal/models"
)

const authScheme = "Bearer"

// TokenResolver is the part of the token service the middleware needs
type TokenResolver interface {
	Resolve(ctx context.Context, accessSecret string) (models.User, models.AccessToken, error)
}

// BearerToken extracts the access secret from the Authorization header
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, secret, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, authScheme) || secret == "" {
		return "", false
	}
	return secret, true
}

// AuthMiddleware rejects requests without a valid bearer token and threads
// the authentication result through the request context
func AuthMiddleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret, ok := BearerToken(r)
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, token, err := resolver.Resolve(r.Context(), secret)
			if err != nil {
				// Missing, expired and revoked all look the same to the client
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), userctx.Auth{
				User:         user,
				Capabilities: token.Capabilities,
				Device:       token.Device,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability guards routes behind a capability carried by the access
// token, e.g. admin listing
func RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, ok := userctx.FromContext(r.Context())
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !auth.Can(capability) {
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
