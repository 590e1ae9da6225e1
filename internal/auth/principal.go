package auth

import (
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "timetrack/internal/errors"
	"timetrack/internal/model"
)

// principalContextKey is the echo context key the principal is stored under.
const principalContextKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   model.Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin
}

// PrincipalMiddleware converts the JWT parsed by the echo-jwt middleware
// into a Principal on the request context. It must run after the JWT
// middleware on the same route group.
func PrincipalMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return apperrors.ErrUnauthenticated
			}
			claims, ok := token.Claims.(*Claims)
			if !ok || claims.UserID == uuid.Nil {
				return apperrors.ErrUnauthenticated
			}
			c.Set(principalContextKey, Principal{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   claims.Role,
			})
			return next(c)
		}
	}
}

// PrincipalFromContext returns the authenticated principal, or
// ErrUnauthenticated when none was set.
func PrincipalFromContext(c echo.Context) (Principal, error) {
	p, ok := c.Get(principalContextKey).(Principal)
	if !ok {
		return Principal{}, apperrors.ErrUnauthenticated
	}
	return p, nil
}
