package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/silianos/voyage-api/internal/core/domain"
)

const sessionKey = "session"

// TokenVerifier checks a bearer token and returns the session it encodes.
type TokenVerifier interface {
	Verify(token string) (*domain.Session, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. It returns "" when the header is absent or malformed.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Auth verifies the bearer token and stores the session in the context.
func Auth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return domain.ErrMissingToken
			}

			token := BearerToken(header)
			if token == "" {
				return domain.ErrInvalidToken
			}

			session, err := verifier.Verify(token)
			if err != nil {
				return domain.ErrInvalidToken
			}

			c.Set(sessionKey, session)
			return next(c)
		}
	}
}

// SessionFrom returns the session stored by Auth.
func SessionFrom(c echo.Context) (*domain.Session, bool) {
	s, ok := c.Get(sessionKey).(*domain.Session)
	return s, ok && s != nil
}
