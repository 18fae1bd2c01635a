package model

// Movie is a film that can be scheduled.
type Movie struct {
	ID              uint64 // movies.id
	Title           string // movies.title
	DurationMinutes int    // movies.duration_minutes, > 0
	Genre           string // movies.genre
}
