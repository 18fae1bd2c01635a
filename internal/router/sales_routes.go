package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// RegisterSales registers the purchase endpoints under /v1/sales.  Any
// logged-in user may buy; reading or cancelling a sale is limited to its
// purchaser and admins by the sales service.
func RegisterSales(e *echo.Echo, h *handler.SaleHandler, auth echo.MiddlewareFunc) {
	g := e.Group("/v1/sales", auth, middleware.RequireRole(model.RoleCustomer))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/tickets", h.Tickets)
	g.DELETE("/:id", h.Cancel)
}
