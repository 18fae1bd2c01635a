package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// RequireRole returns a middleware that lets the request through only when
// the session stored by SessionAuth satisfies role.  Admins satisfy every
// role.  Requests without a session get 401, the rest 403.
func RequireRole(role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := Session(c)
			if _, ok := sess.CurrentUser(); !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized", "message": "login required"})
			}
			if err := sess.RequireRole(role); err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Unauthorized", "message": err.Error()})
			}
			return next(c)
		}
	}
}
