package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// MovieHandler serves the movie catalog.
type MovieHandler struct {
	Catalog *service.Catalog
}

func NewMovieHandler(c *service.Catalog) *MovieHandler { return &MovieHandler{Catalog: c} }

type movieReq struct {
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
	Genre           string `json:"genre"`
}

// List returns every movie, or the matches of ?title= or ?genre=.
func (h *MovieHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		list []model.Movie
		err  error
	)
	switch {
	case c.QueryParam("title") != "":
		list, err = h.Catalog.SearchByTitle(ctx, c.QueryParam("title"))
	case c.QueryParam("genre") != "":
		list, err = h.Catalog.SearchByGenre(ctx, c.QueryParam("genre"))
	default:
		list, err = h.Catalog.ListMovies(ctx)
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, moviesOut(list))
}

func (h *MovieHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	m, err := h.Catalog.GetMovie(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, movieOut(*m))
}

func (h *MovieHandler) Create(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	m := &model.Movie{Title: req.Title, DurationMinutes: req.DurationMinutes, Genre: req.Genre}
	if err := h.Catalog.CreateMovie(c.Request().Context(), m); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, movieOut(*m))
}

func (h *MovieHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	m := &model.Movie{ID: id, Title: req.Title, DurationMinutes: req.DurationMinutes, Genre: req.Genre}
	if err := h.Catalog.UpdateMovie(c.Request().Context(), m); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, movieOut(*m))
}

// Delete refuses movies whose showtimes sold tickets.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	if err := h.Catalog.DeleteMovie(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
