package model

import "time"

// Showtime is a scheduled screening of a movie in a room over the
// half-open interval [StartsAt, EndsAt).  EndsAt is authoritative for
// conflict checks even when it was derived from the movie duration.
type Showtime struct {
	ID       uint64    // showtimes.id
	MovieID  uint64    // showtimes.movie_id
	RoomID   uint64    // showtimes.room_id
	StartsAt time.Time // showtimes.starts_at
	EndsAt   time.Time // showtimes.ends_at
}

// Overlaps reports whether s and o share any instant.  Back-to-back
// intervals (one ends exactly when the other starts) do not overlap.
func (s Showtime) Overlaps(o Showtime) bool {
	return o.StartsAt.Before(s.EndsAt) && o.EndsAt.After(s.StartsAt)
}
