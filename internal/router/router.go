package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus"          // metrics registry exposed on /metrics
	"github.com/prometheus/client_golang/prometheus/promhttp" // exposition handler

	"github.com/iliyamo/cinema-ticketing/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/cinema-ticketing/internal/middleware" // session authentication and role enforcement
	"github.com/iliyamo/cinema-ticketing/internal/model"      // roles
)

// RegisterRoutes registers routes that do not require authentication and
// are not part of the versioned API: the health check and, when a
// gatherer is given, the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, g prometheus.Gatherer) {
	// Load balancers and monitoring poll /healthz.
	e.GET("/healthz", handler.Health(db))
	if g != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
	}
}

// RegisterAuth registers the account endpoints.  Register and login live
// under /v1/auth and need no session; logout and /v1/me run behind auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Logout deletes the session named by the bearer token.
	g.POST("/logout", a.Logout, auth)

	e.GET("/v1/me", a.Me, auth, middleware.RequireRole(model.RoleCustomer))
}

// RegisterPublic registers the unauthenticated browse endpoints: movies,
// rooms with their seats, showtimes and per-showtime seat availability.
func RegisterPublic(e *echo.Echo, m *handler.MovieHandler, r *handler.RoomHandler, s *handler.ShowtimeHandler) {
	g := e.Group("/v1")

	g.GET("/movies", m.List)
	g.GET("/movies/:id", m.Get)

	g.GET("/rooms", r.List)
	g.GET("/rooms/:id", r.Get)
	g.GET("/rooms/:id/seats", r.ListSeats)

	g.GET("/showtimes", s.List)
	g.GET("/showtimes/:id", s.Get)
	g.GET("/showtimes/:id/seats/:seatId/availability", s.SeatAvailability)
}
