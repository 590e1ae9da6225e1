package router

import (
	"github.com/labstack/echo/v4"

	"timetrack/internal/auth"
	apperrors "timetrack/internal/errors"
	"timetrack/internal/model"
)

// RBAC enforces role-based access control. It must run after the principal
// middleware on the same route group.
func RBAC(allowedRoles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := auth.PrincipalFromContext(c)
			if err != nil {
				return err
			}
			if _, ok := allowed[p.Role]; !ok {
				return apperrors.ErrForbidden
			}
			return next(c)
		}
	}
}
