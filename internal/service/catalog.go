package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// MaxRoomSeats bounds the capacity accepted for a new room.
const MaxRoomSeats = 5000

// Catalog manages movies and rooms.
type Catalog struct {
	db     *sql.DB
	movies *repository.MovieRepo
	rooms  *repository.RoomRepo
	seats  *repository.SeatRepo
	log    *zap.Logger
}

func NewCatalog(r Repos, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{db: r.DB, movies: r.Movies, rooms: r.Rooms, seats: r.Seats, log: log}
}

func validateMovie(m *model.Movie) error {
	m.Title = strings.TrimSpace(m.Title)
	m.Genre = strings.TrimSpace(m.Genre)
	var p problems
	if m.Title == "" {
		p.addf("title is required")
	}
	if m.DurationMinutes <= 0 {
		p.addf("duration must be a positive number of minutes")
	}
	if m.Genre == "" {
		p.addf("genre is required")
	}
	return p.err()
}

// CreateMovie stores m and assigns m.ID.
func (c *Catalog) CreateMovie(ctx context.Context, m *model.Movie) error {
	if err := validateMovie(m); err != nil {
		return err
	}
	if err := c.movies.Create(ctx, m); err != nil {
		return classify(err)
	}
	c.log.Info("movie created", zap.Uint64("movie_id", m.ID), zap.String("title", m.Title))
	return nil
}

// UpdateMovie overwrites an existing movie.  Existing showtimes keep their
// stored end times.
func (c *Catalog) UpdateMovie(ctx context.Context, m *model.Movie) error {
	if m.ID == 0 {
		return invalid("movie id is required")
	}
	if err := validateMovie(m); err != nil {
		return err
	}
	return classify(c.movies.Update(ctx, m))
}

// DeleteMovie removes a movie and its showtimes.  It fails with ErrInUse
// when tickets were sold for any of those showtimes.
func (c *Catalog) DeleteMovie(ctx context.Context, id uint64) error {
	err := inTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := c.movies.GetByIDTx(ctx, tx, id); err != nil {
			return err
		}
		sold, err := c.movies.HasTicketsTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if sold {
			return fmt.Errorf("%w: movie %d has sold tickets", ErrInUse, id)
		}
		return c.movies.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return classify(err)
	}
	c.log.Info("movie deleted", zap.Uint64("movie_id", id))
	return nil
}

func (c *Catalog) GetMovie(ctx context.Context, id uint64) (*model.Movie, error) {
	m, err := c.movies.GetByID(ctx, id)
	return m, classify(err)
}

func (c *Catalog) ListMovies(ctx context.Context) ([]model.Movie, error) {
	list, err := c.movies.List(ctx)
	return list, classify(err)
}

// SearchByTitle matches a case-insensitive substring of the title.
func (c *Catalog) SearchByTitle(ctx context.Context, q string) ([]model.Movie, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalid("search text is required")
	}
	list, err := c.movies.SearchByTitle(ctx, q)
	return list, classify(err)
}

// SearchByGenre matches the genre exactly, ignoring case.
func (c *Catalog) SearchByGenre(ctx context.Context, genre string) ([]model.Movie, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil, invalid("genre is required")
	}
	list, err := c.movies.SearchByGenre(ctx, genre)
	return list, classify(err)
}

// CreateRoom stores a room with seatCount seats numbered from 1, all Free.
// The room and its seats are written in one transaction.
func (c *Catalog) CreateRoom(ctx context.Context, seatCount int) (*model.Room, error) {
	if seatCount <= 0 || seatCount > MaxRoomSeats {
		return nil, invalid("seat count must be between 1 and %d", MaxRoomSeats)
	}
	room := &model.Room{SeatCount: seatCount}
	err := inTx(ctx, c.db, func(tx *sql.Tx) error {
		if err := c.rooms.CreateTx(ctx, tx, room); err != nil {
			return err
		}
		return c.seats.CreateForRoomTx(ctx, tx, room.ID, seatCount)
	})
	if err != nil {
		return nil, classify(err)
	}
	c.log.Info("room created", zap.Uint64("room_id", room.ID), zap.Int("seats", seatCount))
	return room, nil
}

// UpdateRoom changes the capacity of a room.  Growing appends free seats
// after the highest number; shrinking removes the highest-numbered seats
// and fails with ErrInUse when any of them is ticketed.
func (c *Catalog) UpdateRoom(ctx context.Context, id uint64, seatCount int) (*model.Room, error) {
	if seatCount <= 0 || seatCount > MaxRoomSeats {
		return nil, invalid("seat count must be between 1 and %d", MaxRoomSeats)
	}
	var room *model.Room
	err := inTx(ctx, c.db, func(tx *sql.Tx) error {
		// lock first so concurrent resizes of the room queue up
		if err := c.rooms.LockTx(ctx, tx, id); err != nil {
			return err
		}
		var err error
		if room, err = c.rooms.GetByIDTx(ctx, tx, id); err != nil {
			return err
		}
		switch {
		case seatCount > room.SeatCount:
			if err := c.seats.AppendTx(ctx, tx, id, room.SeatCount+1, seatCount); err != nil {
				return err
			}
		case seatCount < room.SeatCount:
			sold, err := c.seats.TicketedAboveTx(ctx, tx, id, seatCount)
			if err != nil {
				return err
			}
			if sold {
				return fmt.Errorf("%w: room %d has sold tickets for seats above %d", ErrInUse, id, seatCount)
			}
			if err := c.seats.DeleteAboveTx(ctx, tx, id, seatCount); err != nil {
				return err
			}
		default:
			return nil
		}
		room.SeatCount = seatCount
		return c.rooms.UpdateSeatCountTx(ctx, tx, id, seatCount)
	})
	if err != nil {
		return nil, classify(err)
	}
	c.log.Info("room resized", zap.Uint64("room_id", id), zap.Int("seats", seatCount))
	return room, nil
}

func (c *Catalog) GetRoom(ctx context.Context, id uint64) (*model.Room, error) {
	room, err := c.rooms.GetByID(ctx, id)
	return room, classify(err)
}

func (c *Catalog) ListRooms(ctx context.Context) ([]model.Room, error) {
	list, err := c.rooms.List(ctx)
	return list, classify(err)
}

// DeleteRoom removes a room with its seats and showtimes.  It fails with
// ErrInUse when any seat of the room is ticketed.
func (c *Catalog) DeleteRoom(ctx context.Context, id uint64) error {
	err := inTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := c.rooms.GetByIDTx(ctx, tx, id); err != nil {
			return err
		}
		sold, err := c.rooms.HasTicketsTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if sold {
			return fmt.Errorf("%w: room %d has sold tickets", ErrInUse, id)
		}
		return c.rooms.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return classify(err)
	}
	c.log.Info("room deleted", zap.Uint64("room_id", id))
	return nil
}
