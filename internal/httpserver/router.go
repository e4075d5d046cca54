package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mverma16/playtube/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMw := middleware.NewAuth(d.AuthHandler.Svc)

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh", d.AuthHandler.Refresh)

	private := e.Group("")
	private.Use(authMw.RequireAuth)

	private.POST("/logout", d.AuthHandler.LogOut)
	private.POST("/change-password", d.AuthHandler.ChangePassword)
	private.GET("/me", d.AuthHandler.Me)
}
