package httpserver

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mpetrashov/user-service/internal/apperr"
	"github.com/mpetrashov/user-service/internal/logging"
	authmw "github.com/mpetrashov/user-service/internal/middleware/auth"
	"github.com/mpetrashov/user-service/internal/service"
	"github.com/mpetrashov/user-service/internal/transport"
)

type UsersHTTP struct {
	Svc *service.UserService
}

func currentUserID(c echo.Context) (uuid.UUID, error) {
	claims, ok := authmw.ClaimsFromEchoContext(c)
	if !ok {
		return uuid.Nil, apperr.InvalidToken("")
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, apperr.InvalidToken("")
	}
	return id, nil
}

func pathUserID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.BadRequest("invalid user id")
	}
	return id, nil
}

func pageParams(c echo.Context) (page, size int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	size, _ = strconv.Atoi(c.QueryParam("size"))
	return page, size
}

func (h *UsersHTTP) Current(c echo.Context) error {
	id, err := currentUserID(c)
	if err != nil {
		return err
	}
	user, err := h.Svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.UserBaseViewFrom(user))
}

func (h *UsersHTTP) List(c echo.Context) error {
	users, err := h.Svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.EditableUserViewsFrom(users))
}

func (h *UsersHTTP) ListPage(c echo.Context) error {
	page, size := pageParams(c)
	result, err := h.Svc.ListUsersPage(c.Request().Context(), page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *UsersHTTP) GetByID(c echo.Context) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}
	user, err := h.Svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHTTP) IsActiveByEmail(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return apperr.BadRequest("email is required")
	}
	active, err := h.Svc.IsActiveByEmail(c.Request().Context(), email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, active)
}

func (h *UsersHTTP) Search(c echo.Context) error {
	page, size := pageParams(c)
	total, docs, err := h.Svc.SearchUsers(c.Request().Context(), c.QueryParam("query"), page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total": total,
		"items": docs,
	})
}

func (h *UsersHTTP) UpdateByID(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_update")

	id, err := pathUserID(c)
	if err != nil {
		return err
	}

	var req transport.UpdateUserAdminReq
	if err := c.Bind(&req); err != nil {
		l.Warn("update_error", "status", 400, "error", err)
		return apperr.BadRequest("invalid body")
	}

	user, err := h.Svc.UpdateUser(ctx, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHTTP) UpdateCurrent(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_update_current")

	id, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req transport.UpdateUserReq
	if err := c.Bind(&req); err != nil {
		l.Warn("update_error", "status", 400, "error", err)
		return apperr.BadRequest("invalid body")
	}

	user, err := h.Svc.UpdateCurrentUser(ctx, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHTTP) Delete(c echo.Context) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}
