package handlers

import (
	"net/http"

	"authgate/internal/handlers/middleware"
	"authgate/internal/logger"
	"authgate/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type RouterDeps struct {
	Auth      *AuthHandler
	PassReset *PassResetHandler
	User      *UserHandler
	Admin     *AdminHandler
	Resolver  middleware.TokenResolver
	Logger    logger.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	authMiddleware := middleware.AuthMiddleware(deps.Resolver)
	withAuth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}
	withAdmin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(middleware.RequireCapability(models.RoleAdmin)(h))
	}

	api := http.NewServeMux()

	api.HandleFunc("POST /auth/register", deps.Auth.Register)
	api.HandleFunc("POST /auth/login", deps.Auth.Login)
	api.HandleFunc("POST /auth/refresh", deps.Auth.Refresh)
	api.Handle("POST /auth/logout", withAuth(deps.Auth.Logout))
	api.Handle("POST /auth/logout-all", withAuth(deps.Auth.LogoutAll))

	api.HandleFunc("POST /auth/forgot-password", deps.PassReset.Forgot)
	api.HandleFunc("POST /auth/reset-password/check", deps.PassReset.Check)
	api.HandleFunc("POST /auth/reset-password", deps.PassReset.Reset)

	api.Handle("GET /user", withAuth(deps.User.List))
	api.Handle("GET /user/me", withAuth(deps.User.Me))
	// The literal /user/me pattern wins over the {id} wildcard
	api.Handle("GET /user/{id}", withAuth(deps.User.Show))
	api.Handle("PATCH /user/profile", withAuth(deps.User.Update))
	api.Handle("PUT /user/locale", withAuth(deps.User.UpdateLocale))

	api.Handle("GET /admin/users", withAdmin(deps.Admin.ListUsers))
	api.Handle("GET /admin/users/online", withAdmin(deps.Admin.OnlineUsers))
	api.Handle("DELETE /admin/users/{id}", withAdmin(deps.Admin.DeleteUser))

	root := http.NewServeMux()
	root.Handle("/api/v1/", http.StripPrefix("/api/v1", api))

	return chain(root,
		middleware.LoggerMiddleware(deps.Logger),
	)
}
