package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/silianos/voyage-api/internal/core/domain"
)

// RequireKind admits only sessions of the given principal kinds. It must run after Auth.
func RequireKind(kinds ...domain.PrincipalKind) echo.MiddlewareFunc {
	allowed := make(map[domain.PrincipalKind]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, ok := SessionFrom(c)
			if !ok {
				return domain.ErrMissingToken
			}
			if _, ok := allowed[session.Kind]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
