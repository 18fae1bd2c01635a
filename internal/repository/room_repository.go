package repository // repository defines data access for rooms

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors maps sql.ErrNoRows

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// RoomRepo manages persistence for rooms.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// DB exposes the underlying sql.DB so callers can begin transactions that
// span several repositories.
func (r *RoomRepo) DB() *sql.DB {
	return r.db
}

// CreateTx inserts a room inside tx and assigns the generated ID.  Seats
// are created separately with SeatRepo.CreateForRoomTx.
func (r *RoomRepo) CreateTx(ctx context.Context, tx *sql.Tx, room *model.Room) error {
	const q = `INSERT INTO rooms (seat_count) VALUES (?)`
	res, err := tx.ExecContext(ctx, q, room.SeatCount)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	room.ID = uint64(id)
	return nil
}

// GetByID retrieves a room by its id.  It returns ErrRoomNotFound if there
// is no matching row.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	return getRoom(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *RoomRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Room, error) {
	return getRoom(ctx, tx, id)
}

func getRoom(ctx context.Context, q querier, id uint64) (*model.Room, error) {
	const sel = `SELECT id, seat_count FROM rooms WHERE id = ?`
	var room model.Room
	if err := q.QueryRowContext(ctx, sel, id).Scan(&room.ID, &room.SeatCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// List returns every room ordered by id.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	const q = `SELECT id, seat_count FROM rooms ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Room{}
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.ID, &room.SeatCount); err != nil {
			return nil, err
		}
		result = append(result, room)
	}
	return result, rows.Err()
}

// LockTx takes a write lock on the room row for the rest of tx by issuing a
// no-op update.  Concurrent schedulers of the same room queue behind it, so
// the overlap check and the insert that follows cannot interleave.
func (r *RoomRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE rooms SET seat_count = seat_count WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	return affected(res, ErrRoomNotFound)
}

// UpdateSeatCountTx stores the room's new capacity.
func (r *RoomRepo) UpdateSeatCountTx(ctx context.Context, tx *sql.Tx, id uint64, seatCount int) error {
	res, err := tx.ExecContext(ctx, `UPDATE rooms SET seat_count = ? WHERE id = ?`, seatCount, id)
	if err != nil {
		return err
	}
	return affected(res, ErrRoomNotFound)
}

// HasTicketsTx reports whether any seat of the room has a ticket.
func (r *RoomRepo) HasTicketsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM tickets t JOIN seats s ON s.id = t.seat_id WHERE s.room_id = ?`
	var n int
	if err := tx.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteTx removes the room; seats and showtimes go with it by cascade.
func (r *RoomRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, ErrRoomNotFound)
}
