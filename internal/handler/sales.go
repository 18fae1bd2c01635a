package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// maxSaleItems bounds the seats bought in one request.
const maxSaleItems = 100

// SaleHandler serves purchases for authenticated users.
type SaleHandler struct {
	Sales *service.Sales
}

func NewSaleHandler(s *service.Sales) *SaleHandler { return &SaleHandler{Sales: s} }

type saleItemReq struct {
	ShowtimeID uint64 `json:"showtime_id"`
	SeatID     uint64 `json:"seat_id"`
}

type saleReq struct {
	Items           []saleItemReq `json:"items"`
	DiscountPercent float64       `json:"discount_percent"`
}

// Create buys every item for the caller in one transaction.  Either all
// tickets are issued or none.
func (h *SaleHandler) Create(c echo.Context) error {
	var req saleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(req.Items) > maxSaleItems {
		return badRequest(c, fmt.Sprintf("at most %d items per sale", maxSaleItems))
	}
	items := make([]model.SaleItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.SaleItem{ShowtimeID: it.ShowtimeID, SeatID: it.SeatID})
	}
	me := middleware.Identity(c)
	rc, err := h.Sales.Purchase(c.Request().Context(), me.UserID, items, req.DiscountPercent)
	if err != nil {
		return fail(c, err)
	}
	out := saleOut(rc.Sale)
	out.Tickets = ticketsOut(rc.Tickets)
	return c.JSON(http.StatusCreated, out)
}

// List returns the caller's sales.  Admins may pass ?user_id=.
func (h *SaleHandler) List(c echo.Context) error {
	me := middleware.Identity(c)
	userID, ok := queryID(c, "user_id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}
	if userID == 0 {
		userID = me.UserID
	}
	if userID != me.UserID && !me.IsAdmin() {
		return fail(c, fmt.Errorf("%w: only admins may list other users' sales", service.ErrUnauthorized))
	}
	list, err := h.Sales.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	out := make([]saleBody, 0, len(list))
	for _, s := range list {
		out = append(out, saleOut(s))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SaleHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid sale id")
	}
	sale, err := h.Sales.Get(c.Request().Context(), middleware.Identity(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, saleOut(*sale))
}

func (h *SaleHandler) Tickets(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid sale id")
	}
	list, err := h.Sales.Tickets(c.Request().Context(), middleware.Identity(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ticketsOut(list))
}

// Cancel deletes the sale and frees its seats.
func (h *SaleHandler) Cancel(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid sale id")
	}
	if err := h.Sales.Cancel(c.Request().Context(), middleware.Identity(c), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
