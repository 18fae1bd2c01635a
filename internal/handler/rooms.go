package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// RoomHandler serves rooms and their seats.
type RoomHandler struct {
	Catalog *service.Catalog
	Seats   *service.SeatRegistry
}

func NewRoomHandler(c *service.Catalog, s *service.SeatRegistry) *RoomHandler {
	return &RoomHandler{Catalog: c, Seats: s}
}

type roomReq struct {
	SeatCount int `json:"seat_count"`
}

func (h *RoomHandler) List(c echo.Context) error {
	rooms, err := h.Catalog.ListRooms(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]roomBody, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomBody{ID: r.ID, SeatCount: r.SeatCount})
	}
	return c.JSON(http.StatusOK, out)
}

// Get includes the number of free seats.
func (h *RoomHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	ctx := c.Request().Context()
	r, err := h.Catalog.GetRoom(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	free, err := h.Seats.CountFree(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, roomBody{ID: r.ID, SeatCount: r.SeatCount, FreeSeats: &free})
}

func (h *RoomHandler) ListSeats(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	seats, err := h.Seats.ListByRoom(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, seatsOut(seats))
}

// Create adds a room together with seats 1..seat_count.
func (h *RoomHandler) Create(c echo.Context) error {
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	r, err := h.Catalog.CreateRoom(c.Request().Context(), req.SeatCount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, roomBody{ID: r.ID, SeatCount: r.SeatCount})
}

// Update resizes a room.  Shrinking fails with 409 when a removed seat is
// ticketed.
func (h *RoomHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	var req roomReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	r, err := h.Catalog.UpdateRoom(c.Request().Context(), id, req.SeatCount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, roomBody{ID: r.ID, SeatCount: r.SeatCount})
}

func (h *RoomHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	if err := h.Catalog.DeleteRoom(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
