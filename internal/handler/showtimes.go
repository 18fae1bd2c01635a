package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// ShowtimeHandler serves scheduling and per-showtime seat availability.
type ShowtimeHandler struct {
	Scheduler *service.Scheduler
	Sales     *service.Sales
}

func NewShowtimeHandler(s *service.Scheduler, sales *service.Sales) *ShowtimeHandler {
	return &ShowtimeHandler{Scheduler: s, Sales: sales}
}

// bindShowtime reads a showtime body.  A non-empty problem means the body
// was rejected; an empty ends_at is returned as the zero time.
func bindShowtime(c echo.Context) (req showtimeBody, start, end time.Time, problem string) {
	if err := c.Bind(&req); err != nil {
		return req, start, end, "invalid body"
	}
	var err error
	if start, err = model.ParseTime(req.StartsAt); err != nil {
		return req, start, end, "starts_at: " + err.Error()
	}
	if req.EndsAt != "" {
		if end, err = model.ParseTime(req.EndsAt); err != nil {
			return req, start, end, "ends_at: " + err.Error()
		}
	}
	return req, start, end, ""
}

// List returns every showtime, or those filtered by ?movie_id=, ?room_id=
// or ?date= (a prefix of the start such as 2024-05-01).
func (h *ShowtimeHandler) List(c echo.Context) error {
	movieID, ok := queryID(c, "movie_id")
	if !ok {
		return badRequest(c, "invalid movie_id")
	}
	roomID, ok := queryID(c, "room_id")
	if !ok {
		return badRequest(c, "invalid room_id")
	}
	ctx := c.Request().Context()
	var (
		list []model.Showtime
		err  error
	)
	switch {
	case movieID != 0:
		list, err = h.Scheduler.ListByMovie(ctx, movieID)
	case roomID != 0:
		list, err = h.Scheduler.ListByRoom(ctx, roomID)
	case c.QueryParam("date") != "":
		list, err = h.Scheduler.ListByDate(ctx, c.QueryParam("date"))
	default:
		list, err = h.Scheduler.List(ctx)
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, showtimesOut(list))
}

func (h *ShowtimeHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	st, err := h.Scheduler.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, showtimeOut(*st))
}

// Create schedules a showtime.  Without ends_at the end is the start plus
// the movie duration plus the cleanup buffer.
func (h *ShowtimeHandler) Create(c echo.Context) error {
	req, start, end, problem := bindShowtime(c)
	if problem != "" {
		return badRequest(c, problem)
	}
	ctx := c.Request().Context()
	if end.IsZero() {
		st, err := h.Scheduler.CreateFromDuration(ctx, req.MovieID, req.RoomID, start)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, showtimeOut(*st))
	}
	st := &model.Showtime{MovieID: req.MovieID, RoomID: req.RoomID, StartsAt: start, EndsAt: end}
	if err := h.Scheduler.Create(ctx, st); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, showtimeOut(*st))
}

// Update replaces a showtime; ends_at is required.
func (h *ShowtimeHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	req, start, end, problem := bindShowtime(c)
	if problem != "" {
		return badRequest(c, problem)
	}
	if end.IsZero() {
		return badRequest(c, "ends_at is required")
	}
	st := &model.Showtime{ID: id, MovieID: req.MovieID, RoomID: req.RoomID, StartsAt: start, EndsAt: end}
	if err := h.Scheduler.Update(c.Request().Context(), st); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, showtimeOut(*st))
}

func (h *ShowtimeHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	if err := h.Scheduler.Delete(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SeatAvailability reports whether a seat can still be sold for the
// showtime.
func (h *ShowtimeHandler) SeatAvailability(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	seatID, ok := paramID(c, "seatId")
	if !ok {
		return badRequest(c, "invalid seat id")
	}
	free, err := h.Sales.TicketAvailability(c.Request().Context(), id, seatID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"showtime_id": id, "seat_id": seatID, "available": free})
}
