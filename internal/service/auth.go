package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mpetrashov/user-service/internal/apperr"
	"github.com/mpetrashov/user-service/internal/events"
	"github.com/mpetrashov/user-service/internal/hash"
	"github.com/mpetrashov/user-service/internal/logging"
	"github.com/mpetrashov/user-service/internal/models"
	"github.com/mpetrashov/user-service/internal/repo"
	"github.com/mpetrashov/user-service/internal/search"
	"github.com/mpetrashov/user-service/internal/tokens"
	"github.com/mpetrashov/user-service/internal/transport"
)

type AuthService struct {
	Repo   *repo.GormRepo
	Codec  *tokens.Codec
	Events *events.Producer
	Search *search.Users
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) CreateUser(ctx context.Context, req *transport.CreateUserReq) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.create_user")

	if req.Email == "" {
		return nil, apperr.BadRequest("email is required")
	}

	role := models.RoleUser
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			return nil, apperr.BadRequest("unknown role")
		}
		role = *req.Role
	}

	taken, err := s.Repo.EmailExists(ctx, req.Email)
	if err != nil {
		l.Error("create_user_error", "status", 500, "error", err)
		return nil, apperr.Internal("")
	}
	if taken {
		return nil, apperr.Conflict("There is already a user with same email")
	}

	user := models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		OtherName: req.OtherName,
		Phone:     req.Phone,
		Email:     req.Email,
		Birthdate: req.Birthdate,
		IsActive:  true,
		Role:      role,
	}
	if req.Password != "" {
		pwHash, err := hash.HashPassword(req.Password)
		if err != nil {
			l.Error("create_user_error", "status", 500, "reason", "cannot hash the password", "error", err)
			return nil, apperr.Internal("")
		}
		user.PasswordHash = pwHash
	}

	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		l.Error("create_user_error", "status", 500, "error", err)
		return nil, apperr.Integrity()
	}

	if err := s.Search.IndexUser(ctx, &user); err != nil {
		l.Error("user index failed", "user_id", user.ID, "error", err)
	}
	s.publish(ctx, events.TypeUserRegistered, &user)

	l.Info("user_created", "user_id", user.ID, "role", user.Role)
	return &user, nil
}

// Authenticate verifies credentials and, on success, clears the user's
// revocation entries so tokens issued by this login pass the guard again.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, apperr.NotFound("Could not find credentials")
		}
		return nil, apperr.Internal("")
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.Forbidden("Could not validate credentials")
	}
	if err := s.Repo.ClearRevoked(ctx, user.ID); err != nil {
		return nil, apperr.Internal("")
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, apperr.BadRequest("email and password are required")
	}

	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		l.Warn("login_failed", "error", err)
		return nil, err
	}

	pair, err := s.IssuePair(user.ID, user.Role)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, apperr.Internal("")
	}

	s.publish(ctx, events.TypeUserLoggedIn, user)
	l.Info("login_successful", "user_id", user.ID)
	return pair, nil
}

func (s *AuthService) IssuePair(userID uuid.UUID, role models.Role) (*TokenPair, error) {
	access, err := s.Codec.EncodeAccess(userID.String(), string(role))
	if err != nil {
		return nil, err
	}
	refresh, err := s.Codec.EncodeRefresh(userID.String(), string(role))
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh re-issues a token pair from a valid refresh token without
// re-checking credentials. The presented refresh token stays valid until
// its natural expiry.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Codec.Decode(raw)
	if err != nil {
		if errors.Is(err, tokens.ErrExpiredToken) {
			return nil, apperr.InvalidToken("Token expired")
		}
		return nil, apperr.Forbidden("Could not validate credentials")
	}
	if claims.Type != tokens.TypeRefresh {
		return nil, apperr.Forbidden("")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperr.Forbidden("Could not validate credentials")
	}

	pair, err := s.IssuePair(userID, models.Role(claims.Role))
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, apperr.Internal("")
	}
	return pair, nil
}

// Logout blacklists the presented token for its user and returns the
// created revocation record.
func (s *AuthService) Logout(ctx context.Context, claims *tokens.Claims, raw string) (*models.RevokedToken, error) {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperr.InvalidToken("")
	}

	entry, err := s.Repo.Revoke(ctx, userID, raw)
	if err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return nil, apperr.Internal("")
	}

	s.publish(ctx, events.TypeUserLoggedOut, &models.User{ID: userID})
	l.Info("logout_successful", "user_id", userID)
	return entry, nil
}

func (s *AuthService) publish(ctx context.Context, eventType string, user *models.User) {
	event := map[string]interface{}{
		"type":    eventType,
		"user_id": user.ID.String(),
		"email":   user.Email,
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.Events.PublishEvent(pubCtx, events.TopicUserEvents, user.ID.String(), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "error", err)
	}
}
