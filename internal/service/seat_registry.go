package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// SeatRegistry tracks seat occupancy.  A seat carries one room-wide flag;
// whether it can be sold for a particular showtime also depends on the
// tickets already stored for that showtime.
type SeatRegistry struct {
	rooms   *repository.RoomRepo
	seats   *repository.SeatRepo
	tickets *repository.TicketRepo
	log     *zap.Logger
}

// NewSeatRegistry returns a registry over the given repositories.
func NewSeatRegistry(r Repos, log *zap.Logger) *SeatRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	return &SeatRegistry{rooms: r.Rooms, seats: r.Seats, tickets: r.Tickets, log: log}
}

// Reserve moves a seat from Free to Occupied.  Reserving an occupied seat
// fails with ErrSeatAlreadyOccupied.
func (s *SeatRegistry) Reserve(ctx context.Context, seatID uint64) error {
	return classify(s.seats.MarkOccupied(ctx, seatID))
}

// ReserveTx is Reserve inside tx.
func (s *SeatRegistry) ReserveTx(ctx context.Context, tx *sql.Tx, seatID uint64) error {
	return classify(s.seats.MarkOccupiedTx(ctx, tx, seatID))
}

// Release sets a seat Free.  Releasing a free seat succeeds.
func (s *SeatRegistry) Release(ctx context.Context, seatID uint64) error {
	return classify(s.seats.MarkFree(ctx, seatID))
}

// ReleaseTx is Release inside tx.
func (s *SeatRegistry) ReleaseTx(ctx context.Context, tx *sql.Tx, seatID uint64) error {
	return classify(s.seats.MarkFreeTx(ctx, tx, seatID))
}

// IsAvailableForShowtime reports whether the seat is Free and no ticket
// exists for the (showtime, seat) pair.
func (s *SeatRegistry) IsAvailableForShowtime(ctx context.Context, showtimeID, seatID uint64) (bool, error) {
	seat, err := s.seats.GetByID(ctx, seatID)
	if err != nil {
		return false, classify(err)
	}
	if seat.Occupied() {
		return false, nil
	}
	sold, err := s.tickets.Exists(ctx, showtimeID, seatID)
	if err != nil {
		return false, classify(err)
	}
	return !sold, nil
}

// IsAvailableForShowtimeTx is IsAvailableForShowtime inside tx.
func (s *SeatRegistry) IsAvailableForShowtimeTx(ctx context.Context, tx *sql.Tx, showtimeID, seatID uint64) (bool, error) {
	seat, err := s.seats.GetByIDTx(ctx, tx, seatID)
	if err != nil {
		return false, classify(err)
	}
	if seat.Occupied() {
		return false, nil
	}
	sold, err := s.tickets.ExistsTx(ctx, tx, showtimeID, seatID)
	if err != nil {
		return false, classify(err)
	}
	return !sold, nil
}

// Get returns one seat.
func (s *SeatRegistry) Get(ctx context.Context, seatID uint64) (*model.Seat, error) {
	seat, err := s.seats.GetByID(ctx, seatID)
	return seat, classify(err)
}

// ListByRoom returns the seats of a room ordered by number.
func (s *SeatRegistry) ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error) {
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return nil, classify(err)
	}
	seats, err := s.seats.ListByRoom(ctx, roomID)
	return seats, classify(err)
}

// CountFree returns how many seats of a room are Free.
func (s *SeatRegistry) CountFree(ctx context.Context, roomID uint64) (int, error) {
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return 0, classify(err)
	}
	n, err := s.seats.CountFree(ctx, roomID)
	return n, classify(err)
}
