package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/mpetrashov/user-service/internal/middleware/auth"
	"github.com/mpetrashov/user-service/internal/models"
)

type Deps struct {
	AuthHandler  *AuthHTTP
	UsersHandler *UsersHTTP
	Guard        *authmw.Guard
}

// Register wires all routes. Every protected route declares its permitted
// role set here, in one place.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	anyRole := d.Guard.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleUser)
	adminOnly := d.Guard.RequireRoles(models.RoleAdmin)

	auth := e.Group("/auth")

	auth.POST("/create", d.AuthHandler.CreateUser)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.GET("/get_user", d.UsersHandler.IsActiveByEmail)
	auth.POST("/logout", d.AuthHandler.Logout, anyRole)

	auth.GET("/users/current", d.UsersHandler.Current, anyRole)
	auth.GET("/users", d.UsersHandler.List, anyRole)
	auth.PUT("/update_current_user", d.UsersHandler.UpdateCurrent, anyRole)

	private := auth.Group("/private", adminOnly)
	private.GET("/users", d.UsersHandler.ListPage)
	private.GET("/users/search", d.UsersHandler.Search)
	private.GET("/users/:id", d.UsersHandler.GetByID)
	private.DELETE("/users/:id", d.UsersHandler.Delete)

	auth.PUT("/update/:id", d.UsersHandler.UpdateByID, adminOnly)
}
