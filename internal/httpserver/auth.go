package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mverma16/playtube/internal/logging"
	"github.com/mverma16/playtube/internal/middleware"
	"github.com/mverma16/playtube/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username      string `json:"username"`
		Email         string `json:"email"`
		FullName      string `json:"full_name"`
		Password      string `json:"password"`
		AvatarURL     string `json:"avatar_url"`
		CoverImageURL string `json:"cover_image_url"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, service.RegisterParams{
		Username:      req.Username,
		Email:         req.Email,
		FullName:      req.FullName,
		Password:      req.Password,
		AvatarURL:     req.AvatarURL,
		CoverImageURL: req.CoverImageURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "user already exists")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	res, err := h.Svc.Login(ctx, identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, "username or email is required")
		case errors.Is(err, service.ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	c.SetCookie(createCookie("accessToken", res.AccessToken, "/", res.AccessExp))
	c.SetCookie(createCookie("refreshToken", res.RefreshToken, "/", res.RefreshExp))

	return c.JSON(http.StatusOK, echo.Map{
		"user":          res.User,
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var presented string
	if cookie, err := c.Cookie("refreshToken"); err == nil && cookie.Value != "" {
		presented = cookie.Value
	} else {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.Bind(&req); err == nil {
			presented = req.RefreshToken
		}
	}
	if presented == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	res, err := h.Svc.Refresh(ctx, presented)
	if err != nil {
		if errors.Is(err, service.ErrSessionInvalid) {
			c.SetCookie(deleteCookie("accessToken", "/"))
			c.SetCookie(deleteCookie("refreshToken", "/"))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	c.SetCookie(createCookie("accessToken", res.AccessToken, "/", res.AccessExp))
	c.SetCookie(createCookie("refreshToken", res.RefreshToken, "/", res.RefreshExp))

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
	})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	userID, _ := c.Get(middleware.CtxUserID).(string)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	if err := h.Svc.Logout(ctx, userID); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	c.SetCookie(deleteCookie("accessToken", "/"))
	c.SetCookie(deleteCookie("refreshToken", "/"))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()

	userID, _ := c.Get(middleware.CtxUserID).(string)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	var req struct {
		OldPassword     string `json:"old_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	err := h.Svc.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch):
			return echo.NewHTTPError(http.StatusBadRequest, "passwords do not match")
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid old password")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "password changed",
	})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, _ := c.Get(middleware.CtxUserID).(string)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	user, err := h.Svc.CurrentUser(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, user)
}
