package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"    // catalog and scheduling handlers
	"github.com/iliyamo/cinema-ticketing/internal/middleware" // role middleware
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// RegisterAdmin registers the catalog and scheduling writes under /v1.
// All routes require a live session with the ADMIN role.
func RegisterAdmin(e *echo.Echo, m *handler.MovieHandler, r *handler.RoomHandler, s *handler.ShowtimeHandler, auth echo.MiddlewareFunc) {
	admin := []echo.MiddlewareFunc{auth, middleware.RequireRole(model.RoleAdmin)}

	// ---- Movies ----
	e.POST("/v1/movies", m.Create, admin...)
	e.PUT("/v1/movies/:id", m.Update, admin...)
	e.DELETE("/v1/movies/:id", m.Delete, admin...)

	// ---- Rooms ----
	// Seats come with the room; PUT resizes it.
	e.POST("/v1/rooms", r.Create, admin...)
	e.PUT("/v1/rooms/:id", r.Update, admin...)
	e.DELETE("/v1/rooms/:id", r.Delete, admin...)

	// ---- Showtimes ----
	e.POST("/v1/showtimes", s.Create, admin...)
	e.PUT("/v1/showtimes/:id", s.Update, admin...)
	e.DELETE("/v1/showtimes/:id", s.Delete, admin...)
}
