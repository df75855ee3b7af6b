package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mpetrashov/user-service/internal/apperr"
	"github.com/mpetrashov/user-service/internal/logging"
	"github.com/mpetrashov/user-service/internal/models"
	"github.com/mpetrashov/user-service/internal/repo"
	"github.com/mpetrashov/user-service/internal/search"
	"github.com/mpetrashov/user-service/internal/transport"
	"github.com/mpetrashov/user-service/internal/util"
)

type UserService struct {
	Repo   *repo.GormRepo
	Search *search.Users
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, apperr.NotFound("")
		}
		return nil, apperr.Internal("")
	}
	return user, nil
}

// IsActiveByEmail reports whether the account registered under the email
// is active.
func (s *UserService) IsActiveByEmail(ctx context.Context, email string) (bool, error) {
	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return false, apperr.NotFound("")
		}
		return false, apperr.Internal("")
	}
	return user.IsActive, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("")
	}
	return users, nil
}

func (s *UserService) ListUsersPage(ctx context.Context, page, size int) (*transport.UserPage, error) {
	from, limit := util.Calculate(page, size)
	users, total, err := s.Repo.ListUsersPage(ctx, from, limit)
	if err != nil {
		return nil, apperr.Internal("")
	}
	return &transport.UserPage{
		Items: users,
		Total: total,
		Page:  from/limit + 1,
		Size:  limit,
	}, nil
}

func (s *UserService) SearchUsers(ctx context.Context, query string, page, size int) (int64, []search.UserDoc, error) {
	if query == "" {
		return 0, nil, apperr.BadRequest("query is required")
	}
	from, limit := util.Calculate(page, size)
	total, docs, err := s.Search.Search(ctx, query, from, limit)
	if err != nil {
		logging.FromContext(ctx).Error("user search failed", "error", err)
		return 0, nil, apperr.Internal("")
	}
	return total, docs, nil
}

func applyEditable(user *models.User, req *transport.UpdateUserReq) {
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.OtherName != nil {
		user.OtherName = *req.OtherName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Birthdate != nil {
		user.Birthdate = req.Birthdate
	}
}

// UpdateUser applies an admin edit, including role and active status.
func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, req *transport.UpdateUserAdminReq) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	applyEditable(user, &req.UpdateUserReq)
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			return nil, apperr.BadRequest("unknown role")
		}
		user.Role = *req.Role
	}

	return s.save(ctx, user)
}

// UpdateCurrentUser applies a self-service edit of the editable profile
// fields only.
func (s *UserService) UpdateCurrentUser(ctx context.Context, id uuid.UUID, req *transport.UpdateUserReq) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	applyEditable(user, req)
	return s.save(ctx, user)
}

func (s *UserService) save(ctx context.Context, user *models.User) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.save", "user_id", user.ID)

	if err := s.Repo.SaveUser(ctx, user); err != nil {
		l.Error("save_user_error", "status", 500, "error", err)
		return nil, apperr.Integrity()
	}
	if err := s.Search.IndexUser(ctx, user); err != nil {
		l.Error("user index failed", "error", err)
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "users.delete", "user_id", id)

	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return apperr.NotFound("")
		}
		l.Error("delete_user_error", "status", 500, "error", err)
		return apperr.Internal("")
	}
	if err := s.Search.DeleteUser(ctx, id.String()); err != nil {
		l.Error("user index delete failed", "error", err)
	}
	return nil
}
