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

type adminUserService interface {
	List(ctx context.Context, search string, page int, perPage int) (user.UserPage, error)
	ListOnline(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id int64) error
}

type AdminHandler struct {
	users  adminUserService
	logger logger.Logger
}

func NewAdmin(users adminUserService, l logger.Logger) *AdminHandler {
	return &AdminHandler{users: users, logger: l}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
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

// OnlineUsers lists accounts with a live session, meaning at least one
// unexpired access token
func (h *AdminHandler) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	type OnlineResponse struct {
		Users []models.PublicUser `json:"users"`
		Total int                 `json:"total"`
	}

	online, err := h.users.ListOnline(r.Context())
	if err != nil {
		internalError(h.logger, w, r, err)
		return
	}

	users := make([]models.PublicUser, 0, len(online))
	for _, u := range online {
		users = append(users, u.Public())
	}

	render.JSON(w, OnlineResponse{Users: users, Total: len(users)})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	type DeleteResponse struct {
		Message string `json:"message"`
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

	if err := h.users.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, i18n.T(auth.User.Locale, i18n.KeyUserNotFound, nil), http.StatusNotFound)
		default:
			internalError(h.logger, w, r, err)
		}
		return
	}

	render.JSON(w, DeleteResponse{Message: i18n.T(auth.User.Locale, i18n.KeyUserDeleted, nil)})
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
