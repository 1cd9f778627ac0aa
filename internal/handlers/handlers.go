package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"authgate/internal/handlers/render"
	"authgate/internal/logger"
	"authgate/internal/models"
)

// tokenResponse is the wire shape of an issued pair. Plaintext secrets
// appear here exactly once.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func responseTokens(pair models.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		TokenType:    "bearer",
		ExpiresIn:    int64(time.Until(pair.Access.ExpiresAt).Seconds()),
	}
}

// internalError logs, reports to Sentry when configured and answers with an
// opaque 500. Callers never see store or crypto details.
func internalError(l logger.Logger, w http.ResponseWriter, r *http.Request, err error) {
	l.Error("internal error", "method", r.Method, "uri", r.RequestURI, "error", err.Error())
	sentry.CaptureException(err)
	render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
