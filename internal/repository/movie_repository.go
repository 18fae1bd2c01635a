package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// MovieRepo manages persistence for movies.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

const movieColumns = `id, title, duration_minutes, genre`

// Create inserts a movie and assigns the generated ID.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	const q = `INSERT INTO movies (title, duration_minutes, genre) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.DurationMinutes, m.Genre)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// Update overwrites title, duration and genre.  ErrMovieNotFound is
// returned when no movie has the given ID.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	const q = `UPDATE movies SET title = ?, duration_minutes = ?, genre = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.DurationMinutes, m.Genre, m.ID)
	if err != nil {
		return err
	}
	return affected(res, ErrMovieNotFound)
}

// GetByID retrieves a movie by its id.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	return getMovie(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *MovieRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Movie, error) {
	return getMovie(ctx, tx, id)
}

func getMovie(ctx context.Context, q querier, id uint64) (*model.Movie, error) {
	var m model.Movie
	err := q.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id).
		Scan(&m.ID, &m.Title, &m.DurationMinutes, &m.Genre)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// List returns every movie ordered by title.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	return r.query(ctx, `SELECT `+movieColumns+` FROM movies ORDER BY title, id`)
}

// SearchByTitle returns movies whose title contains q, ignoring case.
func (r *MovieRepo) SearchByTitle(ctx context.Context, q string) ([]model.Movie, error) {
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	return r.query(ctx, `SELECT `+movieColumns+` FROM movies
	                     WHERE LOWER(title) LIKE ? ESCAPE '!'
	                     ORDER BY title, id`, pattern)
}

// SearchByGenre returns movies of the given genre, ignoring case.
func (r *MovieRepo) SearchByGenre(ctx context.Context, genre string) ([]model.Movie, error) {
	return r.query(ctx, `SELECT `+movieColumns+` FROM movies
	                     WHERE LOWER(genre) = ?
	                     ORDER BY title, id`, strings.ToLower(strings.TrimSpace(genre)))
}

func (r *MovieRepo) query(ctx context.Context, q string, args ...any) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.DurationMinutes, &m.Genre); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// HasTicketsTx reports whether tickets were sold for any showtime of the movie.
func (r *MovieRepo) HasTicketsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM tickets t JOIN showtimes s ON s.id = t.showtime_id WHERE s.movie_id = ?`
	var n int
	if err := tx.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteTx removes a movie; its showtimes go with it by cascade.
func (r *MovieRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, ErrMovieNotFound)
}

// escapeLike escapes LIKE wildcards using '!' as the escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
