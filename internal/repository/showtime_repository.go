// Package repository contains data access logic for showtimes.  Times are
// stored as "YYYY-MM-DD HH:MM:SS" so that string comparison in SQL matches
// chronological order.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors for sentinel mapping

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ShowtimeRepo manages persistence for showtimes.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *ShowtimeRepo) DB() *sql.DB {
	return r.db
}

const showtimeColumns = `id, movie_id, room_id, starts_at, ends_at`

// CreateTx inserts a new showtime using the provided transaction.  The
// caller must commit or roll back.  On success the generated ID is set.
func (r *ShowtimeRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Showtime) error {
	const q = `INSERT INTO showtimes (movie_id, room_id, starts_at, ends_at) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.MovieID, s.RoomID, model.FormatTime(s.StartsAt), model.FormatTime(s.EndsAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// UpdateTx overwrites every column of the showtime identified by s.ID.
func (r *ShowtimeRepo) UpdateTx(ctx context.Context, tx *sql.Tx, s *model.Showtime) error {
	const q = `UPDATE showtimes SET movie_id = ?, room_id = ?, starts_at = ?, ends_at = ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, s.MovieID, s.RoomID, model.FormatTime(s.StartsAt), model.FormatTime(s.EndsAt), s.ID)
	if err != nil {
		return err
	}
	return affected(res, ErrShowtimeNotFound)
}

// GetByID retrieves a showtime by its ID.  It returns ErrShowtimeNotFound
// if there is no matching row.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	return getShowtime(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *ShowtimeRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
	return getShowtime(ctx, tx, id)
}

func getShowtime(ctx context.Context, q querier, id uint64) (*model.Showtime, error) {
	row := q.QueryRowContext(ctx, `SELECT `+showtimeColumns+` FROM showtimes WHERE id = ?`, id)
	s, err := scanShowtime(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns every showtime ordered by start time.
func (r *ShowtimeRepo) List(ctx context.Context) ([]model.Showtime, error) {
	return listShowtimes(ctx, r.db, `SELECT `+showtimeColumns+` FROM showtimes ORDER BY starts_at, id`)
}

// ListByMovie returns the showtimes of a movie ordered by start time.
func (r *ShowtimeRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.Showtime, error) {
	return listShowtimes(ctx, r.db, `SELECT `+showtimeColumns+` FROM showtimes WHERE movie_id = ? ORDER BY starts_at, id`, movieID)
}

// ListByRoom returns the showtimes in a room ordered by start time.
func (r *ShowtimeRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Showtime, error) {
	return listShowtimes(ctx, r.db, `SELECT `+showtimeColumns+` FROM showtimes WHERE room_id = ? ORDER BY starts_at, id`, roomID)
}

// ListByStartPrefix returns showtimes whose start timestamp begins with
// prefix (for example "2024-05-01" or "2024-05"), ordered by start time.
func (r *ShowtimeRepo) ListByStartPrefix(ctx context.Context, prefix string) ([]model.Showtime, error) {
	return listShowtimes(ctx, r.db, `SELECT `+showtimeColumns+` FROM showtimes
	                                 WHERE starts_at LIKE ? ESCAPE '!'
	                                 ORDER BY starts_at, id`, escapeLike(prefix)+"%")
}

// FindOverlappingTx returns the showtimes in roomID whose [starts_at,
// ends_at) interval intersects [start, end).  excludeID, when non-zero,
// leaves that showtime out so an update does not collide with itself.
func (r *ShowtimeRepo) FindOverlappingTx(ctx context.Context, tx *sql.Tx, roomID uint64, start, end string, excludeID uint64) ([]model.Showtime, error) {
	// existing.start < candidate.end AND existing.end > candidate.start
	q := `SELECT ` + showtimeColumns + ` FROM showtimes
	      WHERE room_id = ? AND starts_at < ? AND ends_at > ?`
	args := []any{roomID, end, start}
	if excludeID != 0 {
		q += ` AND id <> ?`
		args = append(args, excludeID)
	}
	q += ` ORDER BY starts_at`
	return listShowtimes(ctx, tx, q, args...)
}

// HasTicketsTx reports whether any ticket was sold for the showtime.
func (r *ShowtimeRepo) HasTicketsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE showtime_id = ?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteTx removes a showtime.
func (r *ShowtimeRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM showtimes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, ErrShowtimeNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShowtime(row rowScanner) (*model.Showtime, error) {
	var (
		s          model.Showtime
		start, end string
	)
	if err := row.Scan(&s.ID, &s.MovieID, &s.RoomID, &start, &end); err != nil {
		return nil, err
	}
	if err := parseTime(start, &s.StartsAt); err != nil {
		return nil, err
	}
	if err := parseTime(end, &s.EndsAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func listShowtimes(ctx context.Context, q querier, query string, args ...any) ([]model.Showtime, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Showtime{}
	for rows.Next() {
		s, err := scanShowtime(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}
