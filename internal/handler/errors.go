package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// statusFor maps a service error kind to an HTTP status.
func statusFor(c echo.Context, err error) int {
	switch service.Kind(err) {
	case "ValidationError":
		return http.StatusBadRequest
	case "NotFound", "SeatNotFound":
		return http.StatusNotFound
	case "RoomConflict", "SeatAlreadyOccupied", "InUse":
		return http.StatusConflict
	case "Unauthorized":
		if _, ok := middleware.Session(c).CurrentUser(); ok {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case "PurchaseFailed":
		if errors.Is(err, service.ErrStorage) {
			return http.StatusInternalServerError
		}
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": kind, "message": text}.  Storage details are
// only shown to admins.
func fail(c echo.Context, err error) error {
	status := statusFor(c, err)
	admin := middleware.Identity(c).IsAdmin()
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request().Context(), nil).Error("request failed",
			zap.String("kind", service.Kind(err)), zap.Error(err))
	}
	return c.JSON(status, echo.Map{"error": service.Kind(err), "message": service.PublicMessage(err, admin)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "ValidationError", "message": msg})
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryID parses an optional numeric query parameter; 0 means absent.
func queryID(c echo.Context, name string) (uint64, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil && id > 0
}
