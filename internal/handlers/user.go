package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"authgate/internal/apperrors"
	"authgate/internal/handlers/render"
	"authgate/internal/handlers/userctx"
	"authgate/internal/i18n"
	"authgate/internal/logger"
	"authgate/internal/models"
	"authgate/internal/service/user"
)

type userService interface {
	GetByID(ctx context.Context, id int64) (models.User, error)
	List(ctx context.Context, search string, page int, perPage int) (user.UserPage, error)
	UpdateProfile(ctx context.Context, id int64, username *string, email *string) (models.User, error)
	UpdateLocale(ctx context.Context, id int64, locale string) (models.User, error)
}

type UserHandler struct {
	users  userService
	logger logger.Logger
}

func NewUser(users userService, l logger.Logger) *UserHandler {
	return &UserHandler{users: users, logger: l}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	type MeResponse struct {
		User models.PublicUser `json:"user"`
	}

	auth, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	render.JSON(w, MeResponse{User: auth.User.Public()})
}

// List is the user directory for signed in users, same paging and shape
// as the admin listing
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	type PageMeta struct {
		Total   int64 `json:"total"`
		Page    int   `json:"page"`
		PerPage int   `json:"per_page"`
	}
	type ListResponse struct {
		Users []models.PublicUser `json:"users"`
		Meta  PageMeta            `json:"meta"`
	}

	query := r.URL.Query()
	page := queryInt(query.Get("page"), 1)
	perPage := queryInt(query.Get("per_page"), 0)

	result, err := h.users.List(r.Context(), query.Get("search"), page, perPage)
	if err != nil {
		internalError(h.logger, w, r, err)
		return
	}

	users := make([]models.PublicUser, 0, len(result.Users))
	for _, u := range result.Users {
		users = append(users, u.Public())
	}

	render.JSON(w, ListResponse{
		Users: users,
		Meta: PageMeta{
			Total:   result.Total,
			Page:    result.Page,
			PerPage: result.PerPage,
		},
	})
}

func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	type ShowResponse struct {
		User models.PublicUser `json:"user"`
	}

	auth, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		render.ServiceError(w, i18n.T(auth.User.Locale, i18n.KeyUserNotFound, nil), http.StatusNotFound)
		return
	}

	shown, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, i18n.T(auth.User.Locale, i18n.KeyUserNotFound, nil), http.StatusNotFound)
		default:
			internalError(h.logger, w, r, err)
		}
		return
	}

	render.JSON(w, ShowResponse{User: shown.Public()})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	type UpdateRequest struct {
		Username *string `json:"username" validate:"omitempty,min=3,max=14"`
		Email    *string `json:"email" validate:"omitempty,email,max=255"`
	}
	type UpdateSuccessResponse struct {
		Message string            `json:"message"`
		User    models.PublicUser `json:"user"`
	}

	auth, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := render.BindAndValidate[UpdateRequest](w, r)
	if err != nil {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), auth.User.ID, data.Username, data.Email)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "Username or email already taken", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, i18n.T(auth.User.Locale, i18n.KeyUserNotFound, nil), http.StatusNotFound)
		default:
			internalError(h.logger, w, r, err)
		}
		return
	}

	render.JSON(w, UpdateSuccessResponse{
		Message: i18n.T(user.Locale, i18n.KeyUpdateSuccess, nil),
		User:    user.Public(),
	})
}

func (h *UserHandler) UpdateLocale(w http.ResponseWriter, r *http.Request) {
	type LocaleRequest struct {
		Locale string `json:"locale" validate:"required,min=2,max=5"`
	}
	type LocaleSuccessResponse struct {
		Message string            `json:"message"`
		User    models.PublicUser `json:"user"`
	}

	auth, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := render.BindAndValidate[LocaleRequest](w, r)
	if err != nil {
		return
	}

	user, err := h.users.UpdateLocale(r.Context(), auth.User.ID, data.Locale)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrLocaleUnsupported):
			render.ServiceError(w, i18n.T(auth.User.Locale, i18n.KeyUnsupportedLanguage, nil), http.StatusBadRequest)
		default:
			internalError(h.logger, w, r, err)
		}
		return
	}

	render.JSON(w, LocaleSuccessResponse{
		Message: i18n.T(user.Locale, i18n.KeyUpdateSuccess, nil),
		User:    user.Public(),
	})
}
