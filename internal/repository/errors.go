// Package repository defines the data access layer and the error values
// shared by its repositories.  Handlers and services use these sentinels
// to tell a missing row apart from a constraint violation or a storage
// failure.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Not-found sentinels, one per table.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrSeatNotFound     = errors.New("seat not found")
	ErrMovieNotFound    = errors.New("movie not found")
	ErrShowtimeNotFound = errors.New("showtime not found")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrUserNotFound     = errors.New("user not found")
)

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrSeatOccupied is returned when reserving a seat that is not FREE.
var ErrSeatOccupied = errors.New("seat already occupied")

// ErrTicketExists is returned when a ticket for the same showtime and
// seat is already stored.
var ErrTicketExists = errors.New("ticket already exists for showtime and seat")

// ErrConflict is returned when a delete cannot proceed because of
// dependent records, such as tickets sold for a showtime.
var ErrConflict = errors.New("conflict")

// querier is satisfied by both *sql.DB and *sql.Tx so the plain and the
// ...Tx variants of a method can share one implementation.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isUniqueViolation recognises duplicate-key errors from MySQL (1062) and
// SQLite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// parseTime converts a stored timestamp column into a time.Time.
func parseTime(raw string, dst *time.Time) error {
	t, err := model.ParseTime(raw)
	if err != nil {
		return err
	}
	*dst = t
	return nil
}

// placeholders returns "?, ?, ..., ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// affected returns notFound when res reports that no row matched.
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
