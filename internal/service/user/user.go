package user

import (
	"context"
	"fmt"
	"time"

	"authgate/internal/apperrors"
	"authgate/internal/i18n"
	"authgate/internal/models"
	"authgate/internal/repository"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Service covers the account plumbing around the auth core: profile reads
// and updates, locale preference, admin listing and removal
type Service struct {
	userRepo repository.UserRepo
}

func NewService(userRepo repository.UserRepo) *Service {
	return &Service{userRepo: userRepo}
}

func (s *Service) GetByID(ctx context.Context, id int64) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, id)
}

// UpdateProfile changes username and/or email, nil fields stay untouched
func (s *Service) UpdateProfile(ctx context.Context, id int64, username *string, email *string) (models.User, error) {
	return s.userRepo.UpdateUser(ctx, id, repository.UpdateUserParams{
		Username: username,
		Email:    email,
	})
}

// UpdateLocale switches the user's preferred language
func (s *Service) UpdateLocale(ctx context.Context, id int64, locale string) (models.User, error) {
	if !i18n.Supported(locale) {
		return models.User{}, apperrors.ErrLocaleUnsupported
	}

	return s.userRepo.UpdateUser(ctx, id, repository.UpdateUserParams{Locale: &locale})
}

// UserPage is one page of the admin listing
type UserPage struct {
	Users   []models.User
	Total   int64
	Page    int
	PerPage int
}

// List returns a page of users matching the search term, ordered by id
func (s *Service) List(ctx context.Context, search string, page int, perPage int) (UserPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	users, total, err := s.userRepo.ListUsers(ctx, repository.ListUsersParams{
		Search: search,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return UserPage{}, fmt.Errorf("can't list users. Err: %w", err)
	}

	return UserPage{Users: users, Total: total, Page: page, PerPage: perPage}, nil
}

// ListOnline returns every user with a live access token, ordered by id.
// With tokens pruned lazily this is the closest thing to "currently
// signed in" the store can answer.
func (s *Service) ListOnline(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.ListOnlineUsers(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("can't list online users. Err: %w", err)
	}
	return users, nil
}

// Delete removes the account. Admin only operation, guarded at the router.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.userRepo.DeleteUser(ctx, id)
}
