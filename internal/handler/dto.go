package handler

// Response and request bodies of the JSON API.  Model types carry no json
// tags, so every payload is declared here.

import (
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type movieBody struct {
	ID              uint64 `json:"id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
	Genre           string `json:"genre"`
}

func movieOut(m model.Movie) movieBody {
	return movieBody{ID: m.ID, Title: m.Title, DurationMinutes: m.DurationMinutes, Genre: m.Genre}
}

func moviesOut(list []model.Movie) []movieBody {
	out := make([]movieBody, 0, len(list))
	for _, m := range list {
		out = append(out, movieOut(m))
	}
	return out
}

type roomBody struct {
	ID        uint64 `json:"id"`
	SeatCount int    `json:"seat_count"`
	FreeSeats *int   `json:"free_seats,omitempty"`
}

type seatBody struct {
	ID     uint64 `json:"id"`
	RoomID uint64 `json:"room_id"`
	Number int    `json:"number"`
	State  string `json:"state"`
}

func seatsOut(list []model.Seat) []seatBody {
	out := make([]seatBody, 0, len(list))
	for _, s := range list {
		out = append(out, seatBody{ID: s.ID, RoomID: s.RoomID, Number: s.Number, State: string(s.State)})
	}
	return out
}

// showtimeBody uses the "YYYY-MM-DD HH:MM:SS" layout for both bounds.  An
// empty ends_at on create derives the end from the movie duration.
type showtimeBody struct {
	ID       uint64 `json:"id"`
	MovieID  uint64 `json:"movie_id"`
	RoomID   uint64 `json:"room_id"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at,omitempty"`
}

func showtimeOut(s model.Showtime) showtimeBody {
	return showtimeBody{ID: s.ID, MovieID: s.MovieID, RoomID: s.RoomID,
		StartsAt: model.FormatTime(s.StartsAt), EndsAt: model.FormatTime(s.EndsAt)}
}

func showtimesOut(list []model.Showtime) []showtimeBody {
	out := make([]showtimeBody, 0, len(list))
	for _, s := range list {
		out = append(out, showtimeOut(s))
	}
	return out
}

type ticketBody struct {
	ID         uint64 `json:"id"`
	ShowtimeID uint64 `json:"showtime_id"`
	SeatID     uint64 `json:"seat_id"`
	PriceCents int64  `json:"price_cents"`
}

func ticketsOut(list []model.Ticket) []ticketBody {
	out := make([]ticketBody, 0, len(list))
	for _, t := range list {
		out = append(out, ticketBody{ID: t.ID, ShowtimeID: t.ShowtimeID, SeatID: t.SeatID, PriceCents: t.PriceCents})
	}
	return out
}

type saleBody struct {
	ID              uint64       `json:"id"`
	UserID          uint64       `json:"user_id"`
	SoldAt          string       `json:"sold_at"`
	DiscountPercent float64      `json:"discount_percent"`
	TotalCents      int64        `json:"total_cents"`
	Tickets         []ticketBody `json:"tickets,omitempty"`
}

func saleOut(s model.Sale) saleBody {
	return saleBody{ID: s.ID, UserID: s.UserID, SoldAt: model.FormatTime(s.SoldAt),
		DiscountPercent: s.DiscountPercent, TotalCents: s.TotalCents}
}

type userBody struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

func userOut(u model.User) userBody {
	return userBody{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: string(u.Role)}
}
