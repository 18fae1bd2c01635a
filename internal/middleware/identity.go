package middleware

// identity.go holds the accessors for what SessionAuth stores in the Echo
// context.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/session"
)

const sessionKey = "session"

// Session returns the session stored by SessionAuth, or nil for anonymous
// requests.
func Session(c echo.Context) *session.Session {
	s, _ := c.Get(sessionKey).(*session.Session)
	return s
}

// Identity returns the caller's identity; the zero value when anonymous.
func Identity(c echo.Context) session.Identity {
	id, _ := Session(c).CurrentUser()
	return id
}

// userID renders the caller for log lines.  It returns "guest" when no
// user is authenticated.
func userID(c echo.Context) string {
	id, ok := Session(c).CurrentUser()
	if !ok {
		return "guest"
	}
	return strconv.FormatUint(id.UserID, 10)
}
