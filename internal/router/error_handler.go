package router

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	apperrors "timetrack/internal/errors"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that renders domain
// errors escaping handlers or middleware with their mapped status codes,
// and logs unexpected errors without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		// Echo's own errors (bind failures, 404 from router, handler
		// responses already shaped by the handlers).
		var he *echo.HTTPError
		if errors.As(err, &he) {
			if resp, ok := he.Message.(apperrors.ErrorResponse); ok {
				_ = c.JSON(he.Code, resp)
				return
			}
			_ = c.JSON(he.Code, map[string]interface{}{"error": he.Message})
			return
		}

		httpErr := apperrors.MapErrorToHTTP(err)
		if httpErr.StatusCode >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("unhandled error")
		}
		_ = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
}
