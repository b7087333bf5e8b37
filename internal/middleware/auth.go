package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nfrund/parley/internal/domain"
)

// UserIDContextKey is where Auth stores the verified user ID on the echo
// context.
const UserIDContextKey = "userID"

// Auth protects the REST surface with bearer authentication. The WebSocket
// endpoint does its own credential handling inside the handshake; this
// middleware is for the plain HTTP routes.
func Auth(verifier domain.IdentityVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer credential"})
			}

			userID, err := verifier.Verify(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credential"})
			}

			c.Set(UserIDContextKey, userID)
			return next(c)
		}
	}
}
