package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_gateway/internal/logging"
	"github.com/Skotchmaster/auth_gateway/internal/tokens"
)

const (
	UserIDKey  = "user_id"
	TokenIDKey = "token_id"
)

type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (tokens.Claims, error)
}

type BearerAuth struct {
	Auth Authenticator
}

func NewBearerAuth(auth Authenticator) *BearerAuth {
	return &BearerAuth{Auth: auth}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c echo.Context) (string, bool) {
	const prefix = "Bearer "
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx)

		raw, ok := BearerToken(c)
		if !ok {
			l.Warn("auth_failed", "status", 401, "reason", "missing_bearer")
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}

		claims, err := m.Auth.Authenticate(ctx, raw)
		if err != nil {
			if errors.Is(err, tokens.ErrToken) {
				l.Warn("auth_failed", "status", 401, "reason", tokens.Reason(err))
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			l.Error("auth_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(TokenIDKey, claims.TokenID)
		c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l.With("user_id", claims.UserID))))

		return next(c)
	}
}
