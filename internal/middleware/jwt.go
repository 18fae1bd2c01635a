package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/cinema-ticketing/internal/session" // server-side sessions
	"github.com/iliyamo/cinema-ticketing/internal/utils"   // access token parsing
)

// SessionAuth returns an Echo middleware that validates a Bearer access
// token, resolves the session it names and stores it in the request
// context under "session".  Every accepted request refreshes the session's
// idle timer; a session that expired or was logged out rejects the token
// even though its signature is still valid.
func SessionAuth(secret string, store session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized", "message": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized", "message": "invalid token"})
			}

			// The store is the authority on whether the session is alive.
			sess, err := store.Touch(c.Request().Context(), claims.SessionID)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized", "message": err.Error()})
			}
			c.Set(sessionKey, sess)
			return next(c)
		}
	}
}
