package handlers

import (
	"context"
	"errors"
	"net/http"

	"authgate/internal/apperrors"
	"authgate/internal/handlers/render"
	"authgate/internal/i18n"
	"authgate/internal/logger"
)

type passresetService interface {
	Request(ctx context.Context, email string) error
	Validate(ctx context.Context, email string, secret string) error
	Consume(ctx context.Context, email string, secret string, newPassword string) error
}

type PassResetHandler struct {
	reset  passresetService
	logger logger.Logger
}

func NewPassReset(reset passresetService, l logger.Logger) *PassResetHandler {
	return &PassResetHandler{reset: reset, logger: l}
}

// Forgot always acknowledges with the same body so the endpoint does not
// reveal which addresses are registered
func (h *PassResetHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	type ForgotRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
	type ForgotSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ForgotRequest](w, r)
	if err != nil {
		return
	}

	if err := h.reset.Request(r.Context(), data.Email); err != nil {
		internalError(h.logger, w, r, err)
		return
	}

	render.JSON(w, ForgotSuccessResponse{
		Message: i18n.T(i18n.DefaultLocale, i18n.KeyResetSent, nil),
	})
}

func (h *PassResetHandler) Check(w http.ResponseWriter, r *http.Request) {
	type CheckRequest struct {
		Email string `json:"email" validate:"required,email"`
		Token string `json:"token" validate:"required"`
	}
	type CheckSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[CheckRequest](w, r)
	if err != nil {
		return
	}

	if err := h.reset.Validate(r.Context(), data.Email, data.Token); err != nil {
		h.resetError(w, r, err)
		return
	}

	render.JSON(w, CheckSuccessResponse{Message: "Token is valid"})
}

func (h *PassResetHandler) Reset(w http.ResponseWriter, r *http.Request) {
	type ResetRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required,min=6"`
	}
	type ResetSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ResetRequest](w, r)
	if err != nil {
		return
	}

	if err := h.reset.Consume(r.Context(), data.Email, data.Token, data.Password); err != nil {
		h.resetError(w, r, err)
		return
	}

	render.JSON(w, ResetSuccessResponse{
		Message: i18n.T(i18n.DefaultLocale, i18n.KeyPasswordReset, nil),
	})
}

func (h *PassResetHandler) resetError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrResetTokenInvalid):
		render.ServiceError(w, "Invalid token", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrResetTokenExpired):
		render.ServiceError(w, "Token has expired", http.StatusBadRequest)
	default:
		internalError(h.logger, w, r, err)
	}
}
