package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mverma16/playtube/internal/service"
)

const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxEmail    = "email"
)

type Auth struct {
	Svc *service.AuthService
}

func NewAuth(svc *service.AuthService) *Auth {
	return &Auth{Svc: svc}
}

// RequireAuth resolves the caller's identity from the access token, cookie
// first, Authorization header as fallback.
func (m *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := TokenFromRequest(c)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.Svc.Resolve(token)
		if err != nil || claims.Subject == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxEmail, claims.Email)

		return next(c)
	}
}

func TokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
