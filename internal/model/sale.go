package model

import "time"

// Sale groups the tickets bought by one user in a single purchase.
// TotalCents is the sum of ticket prices reduced by DiscountPercent.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – purchaser.
//  SoldAt          – time of the purchase.
//  DiscountPercent – discount applied to the whole sale, 0 to 100.
//  TotalCents      – amount charged in cents.
type Sale struct {
	ID              uint64    // sales.id
	UserID          uint64    // sales.user_id
	SoldAt          time.Time // sales.sold_at
	DiscountPercent float64   // sales.discount_percent
	TotalCents      int64     // sales.total_cents
}

// SaleItem is one (showtime, seat) pair requested in a purchase.
type SaleItem struct {
	ShowtimeID uint64
	SeatID     uint64
}
