package userctx

import (
	"context"
	"slices"

	"authgate/internal/models"
)

type ctxKey string

const authKey ctxKey = "auth"

// Auth is the explicit authentication result threaded through a request:
// the resolved user plus the capabilities carried by the presented token
type Auth struct {
	User         models.User
	Capabilities []string
	Device       string
}

func (a Auth) Can(capability string) bool {
	return slices.Contains(a.Capabilities, capability)
}

// Create a new context with the authentication result
func New(ctx context.Context, a Auth) context.Context {
	return context.WithValue(ctx, authKey, a)
}

// Extract the authentication result from the context
func FromContext(ctx context.Context) (Auth, bool) {
	a, ok := ctx.Value(authKey).(Auth)
	return a, ok
}
