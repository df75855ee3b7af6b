package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mpetrashov/user-service/internal/apperr"
	"github.com/mpetrashov/user-service/internal/logging"
	authmw "github.com/mpetrashov/user-service/internal/middleware/auth"
	"github.com/mpetrashov/user-service/internal/service"
	"github.com/mpetrashov/user-service/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_create")

	var req transport.CreateUserReq
	if err := c.Bind(&req); err != nil {
		l.Warn("create_error", "status", 400, "error", err)
		return apperr.BadRequest("invalid body")
	}

	user, err := h.Svc.CreateUser(ctx, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginReq
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return apperr.BadRequest("invalid body")
	}

	pair, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.TokensResp{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshReq
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return apperr.BadRequest("invalid body")
	}

	pair, err := h.Svc.Refresh(ctx, req.Token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.TokensResp{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	claims, ok := authmw.ClaimsFromEchoContext(c)
	if !ok {
		return apperr.InvalidToken("")
	}
	raw, ok := authmw.RawTokenFromEchoContext(c)
	if !ok {
		return apperr.InvalidToken("")
	}

	entry, err := h.Svc.Logout(ctx, claims, raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}
