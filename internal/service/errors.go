// Package service implements the booking core: the seat registry, the
// showtime scheduler, the sales transaction manager, the movie and room
// catalog and account handling.  Every error returned by this package
// matches one of the kind sentinels below with errors.Is.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/session"
)

// Error kinds.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrRoomConflict        = errors.New("room conflict")
	ErrSeatAlreadyOccupied = errors.New("seat already occupied")
	ErrSeatNotFound        = errors.New("seat not found")
	ErrUnauthorized        = session.ErrUnauthorized
	ErrPurchaseFailed      = errors.New("purchase failed")
	ErrStorage             = errors.New("storage error")
	ErrInUse               = errors.New("in use")
)

// ValidationError lists every check a request failed.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation error: " + strings.Join(e.Problems, "; ")
}

// Is makes errors.Is(err, ErrValidation) true for any *ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// problems accumulates validation failures.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}

func invalid(format string, args ...any) error {
	return &ValidationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

// classify turns a repository error into one of the kinds.  Unknown errors
// become ErrStorage.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrRoomConflict),
		errors.Is(err, ErrSeatAlreadyOccupied), errors.Is(err, ErrSeatNotFound), errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrPurchaseFailed), errors.Is(err, ErrStorage), errors.Is(err, ErrInUse):
		return err
	case errors.Is(err, repository.ErrSeatNotFound):
		return fmt.Errorf("%w: %w", ErrSeatNotFound, err)
	case errors.Is(err, repository.ErrRoomNotFound), errors.Is(err, repository.ErrMovieNotFound),
		errors.Is(err, repository.ErrShowtimeNotFound), errors.Is(err, repository.ErrSaleNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrSeatOccupied), errors.Is(err, repository.ErrTicketExists):
		return fmt.Errorf("%w: %w", ErrSeatAlreadyOccupied, err)
	case errors.Is(err, repository.ErrEmailExists):
		return fmt.Errorf("%w: %w", invalid("email already registered"), err)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %w", ErrInUse, err)
	default:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
}

// Kind names the kind of err for clients.  PurchaseFailed wins over the
// cause it wraps because it is what tells the caller nothing was written.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPurchaseFailed):
		return "PurchaseFailed"
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrRoomConflict):
		return "RoomConflict"
	case errors.Is(err, ErrSeatAlreadyOccupied):
		return "SeatAlreadyOccupied"
	case errors.Is(err, ErrSeatNotFound):
		return "SeatNotFound"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInUse):
		return "InUse"
	default:
		return "StorageError"
	}
}

// PublicMessage is the text shown to a client.  Storage failures keep their
// detail for admins only.
func PublicMessage(err error, admin bool) string {
	if err == nil {
		return ""
	}
	if Kind(err) == "StorageError" && !admin {
		return "internal storage error"
	}
	if errors.Is(err, ErrPurchaseFailed) && errors.Is(err, ErrStorage) && !admin {
		return "purchase failed: internal storage error"
	}
	return err.Error()
}
