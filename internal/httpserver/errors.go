package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_gateway/internal/repo"
	"github.com/Skotchmaster/auth_gateway/internal/service"
	"github.com/Skotchmaster/auth_gateway/internal/tokens"
)

const (
	msgUnauthorized       = "Unauthorized"
	msgInvalidCredentials = "Invalid email or password"
	msgInternal           = "internal error"
)

// toHTTPError maps workflow errors to the response codes of the API. Token
// failure kinds are collapsed into one generic message.
func toHTTPError(err error) *echo.HTTPError {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, verr.Fields)
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, tokens.ErrToken), errors.Is(err, repo.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusUnauthorized, msgUnauthorized)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, msgInternal).SetInternal(err)
	}
}

// ErrorHandler renders every error as {"error": ...}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		he = toHTTPError(err)
	}
	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(he.Code)
	} else {
		werr = c.JSON(he.Code, echo.Map{"error": he.Message})
	}
	if werr != nil {
		c.Logger().Error(werr)
	}
}
