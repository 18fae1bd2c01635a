package model

// Ticket binds one seat to one showtime at a price.  Tickets only come
// into existence through a purchase and (ShowtimeID, SeatID) is unique.
type Ticket struct {
	ID         uint64 // tickets.id
	ShowtimeID uint64 // tickets.showtime_id
	SeatID     uint64 // tickets.seat_id
	PriceCents int64  // tickets.price_cents
}
