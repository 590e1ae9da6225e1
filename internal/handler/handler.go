// Package handler contains the echo HTTP handlers. Handlers bind and
// validate request DTOs, resolve the authenticated principal, delegate to
// the service layer, and translate domain errors into HTTP responses.
package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "timetrack/internal/errors"
	"timetrack/pkg/logger"
)

// respondError maps a domain error to an HTTP response. Internal failures
// are logged with their real cause and surfaced opaquely.
func respondError(c echo.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		log := logger.Get()
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("unhandled error")
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// parseTimeParam parses an optional query parameter as RFC 3339, falling
// back to a bare date. endOfDay pushes a bare date to its last instant so
// date ranges stay inclusive.
func parseTimeParam(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", apperrors.ErrValidation, value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}
