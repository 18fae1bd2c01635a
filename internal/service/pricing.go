package service

import (
	"math"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// DefaultBasePriceCents is the price of one ticket when nothing else is
// configured: 8.50.
const DefaultBasePriceCents int64 = 850

// PriceFunc returns the price in cents of a seat for a showtime.
type PriceFunc func(st *model.Showtime, seat *model.Seat) int64

// FlatPrice prices every ticket at cents.
func FlatPrice(cents int64) PriceFunc {
	return func(*model.Showtime, *model.Seat) int64 { return cents }
}

// ApplyDiscount returns sum reduced by pct percent, rounded to the nearest
// cent.
func ApplyDiscount(sum int64, pct float64) int64 {
	return int64(math.Round(float64(sum) * (100 - pct) / 100))
}
