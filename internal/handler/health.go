package handler // declare the package name; contains HTTP handlers

import (
	"context"  // bounded ping
	"net/http" // net/http provides status codes and response helpers
	"time"     // ping timeout

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health returns a health-check handler for load balancers.  It answers
// "ok" while the database responds and 503 otherwise; a nil db only checks
// that the process is serving.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return c.String(http.StatusServiceUnavailable, "database unavailable")
			}
		}
		return c.String(http.StatusOK, "ok") // write "ok" with a 200 OK status
	}
}
