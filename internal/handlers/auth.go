package handlers

import (
	"context"
	"errors"
	"net/http"

	"authgate/internal/apperrors"
	"authgate/internal/handlers/middleware"
	"authgate/internal/handlers/render"
	"authgate/internal/handlers/userctx"
	"authgate/internal/i18n"
	"authgate/internal/logger"
	"authgate/internal/models"
	"authgate/internal/service/auth"
)

// Auth service surface the handler needs
type authService interface {
	Register(ctx context.Context, username string, email string, password string) (auth.LoginResult, error)
	Login(ctx context.Context, email string, password string, device string, clientIP string) (auth.LoginResult, error)
	Refresh(ctx context.Context, refreshSecret string) (models.TokenPair, error)
	Logout(ctx context.Context, user models.User, device string) error
	LogoutAll(ctx context.Context, user models.User) error
	RecordLoginFailure(ctx context.Context, clientIP string) error
	AttemptsRemaining(ctx context.Context, clientIP string) (int, error)
}

type AuthHandler struct {
	auth   authService
	logger logger.Logger
}

func NewAuth(auth authService, l logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: l}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Username string `json:"username" validate:"required,min=3,max=14"`
		Email    string `json:"email" validate:"required,email,max=255"`
		Password string `json:"password" validate:"required,min=6"`
	}
	type RegisterSuccessResponse struct {
		User   models.PublicUser `json:"user"`
		Tokens tokenResponse     `json:"tokens"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return
	}

	result, err := h.auth.Register(r.Context(), data.Username, data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUsernameTaken):
			render.ServiceError(w, "Username already taken", http.StatusConflict)
		case errors.Is(err, apperrors.ErrEmailTaken):
			render.ServiceError(w, "Email already taken", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			internalError(h.logger, w, r, err)
		}
		return
	}

	render.JSONStatus(w, RegisterSuccessResponse{
		User:   result.User.Public(),
		Tokens: responseTokens(result.Pair),
	}, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Device   string `json:"device" validate:"omitempty,max=100"`
	}
	type LoginSuccessResponse struct {
		User   models.PublicUser `json:"user"`
		Tokens tokenResponse     `json:"tokens"`
	}

	clientIP := middleware.ClientIP(r)

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		// A malformed email is still a failed attempt: otherwise validation
		// errors become a free oracle for enumeration-by-retry
		if render.HasFieldError(err, "email") {
			_ = h.auth.RecordLoginFailure(r.Context(), clientIP)
		}
		return
	}

	result, err := h.auth.Login(r.Context(), data.Email, data.Password, data.Device, clientIP)
	if err != nil {
		h.loginError(w, r, err, clientIP)
		return
	}

	render.JSON(w, LoginSuccessResponse{
		User:   result.User.Public(),
		Tokens: responseTokens(result.Pair),
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	type RefreshSuccessResponse struct {
		Tokens tokenResponse `json:"tokens"`
	}

	data, err := render.BindAndValidate[RefreshRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), data.RefreshToken)
	if err != nil {
		// Invalid, expired and reused all collapse to one answer
		switch {
		case errors.Is(err, apperrors.ErrRefreshTokenNotFound),
			errors.Is(err, apperrors.ErrRefreshTokenUsed),
			errors.Is(err, apperrors.ErrRefreshTokenExpired):
			render.ServiceError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		default:
			internalError(h.logger, w, r, err)
		}
		return
	}

	render.JSON(w, RefreshSuccessResponse{Tokens: responseTokens(pair)})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	type LogoutSuccessResponse struct {
		Message string `json:"message"`
	}

	auth, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.auth.Logout(r.Context(), auth.User, auth.Device); err != nil {
		internalError(h.logger, w, r, err)
		return
	}

	render.JSON(w, LogoutSuccessResponse{Message: "Successfully logged out"})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	type LogoutSuccessResponse struct {
		Message string `json:"message"`
	}

	auth, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.auth.LogoutAll(r.Context(), auth.User); err != nil {
		internalError(h.logger, w, r, err)
		return
	}

	render.JSON(w, LogoutSuccessResponse{Message: "Successfully logged out from all devices"})
}

// loginError maps login failures: lockout gets 429 with retry-after, bad
// credentials get an opaque 401 with attempts remaining
func (h *AuthHandler) loginError(w http.ResponseWriter, r *http.Request, err error, clientIP string) {
	if rle, ok := apperrors.IsRateLimited(err); ok {
		minutes := (rle.RetryAfter + 59) / 60
		message := i18n.T(i18n.DefaultLocale, i18n.KeyTooManyAttempts, map[string]string{
			"minutes": formatInt(minutes),
		})
		render.RateLimited(w, message, rle.RetryAfter)
		return
	}

	if errors.Is(err, apperrors.ErrAuthFailed) {
		remaining, remErr := h.auth.AttemptsRemaining(r.Context(), clientIP)
		if remErr != nil {
			h.logger.Error("can't read remaining attempts", "error", remErr.Error())
		}
		render.ServiceErrorDetails(w,
			i18n.T(i18n.DefaultLocale, i18n.KeyAuthFailed, nil),
			map[string]any{"attempts_remaining": remaining},
			http.StatusUnauthorized,
		)
		return
	}

	internalError(h.logger, w, r, err)
}
