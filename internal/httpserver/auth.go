package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_gateway/internal/logging"
	"github.com/Skotchmaster/auth_gateway/internal/middleware"
	"github.com/Skotchmaster/auth_gateway/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 422, "reason", "invalid_body", "error", err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string][]string{
			"body": {"invalid request body"},
		})
	}

	tok, err := h.Svc.Register(ctx, req)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "A new user has registered successfully!",
		"token":   tok.Value,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 401, "reason", "invalid_body", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidCredentials)
	}

	tok, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Logged in successfully!",
		"token":   tok.Value,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	raw, ok := middleware.BearerToken(c)
	if !ok {
		l.Warn("refresh_failed", "status", 401, "reason", "missing_bearer")
		return echo.NewHTTPError(http.StatusUnauthorized, msgUnauthorized)
	}

	tok, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Token refreshed successfully!",
		"token":   tok.Value,
	})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	raw, ok := middleware.BearerToken(c)
	if !ok {
		l.Warn("logout_failed", "status", 401, "reason", "missing_bearer")
		return echo.NewHTTPError(http.StatusUnauthorized, msgUnauthorized)
	}

	if err := h.Svc.Logout(ctx, raw); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Logged out successfully!",
	})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, _ := c.Get(middleware.UserIDKey).(string)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, msgUnauthorized)
	}

	u, err := h.Svc.CurrentUser(ctx, userID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
	})
}
