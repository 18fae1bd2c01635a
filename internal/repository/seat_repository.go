package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors maps sql.ErrNoRows

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// seatBatch bounds the number of rows per multi-row INSERT.
const seatBatch = 500

// SeatRepo provides methods to work with seats in the database.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// CreateForRoomTx inserts seats numbered 1..count for roomID, all FREE.
func (r *SeatRepo) CreateForRoomTx(ctx context.Context, tx *sql.Tx, roomID uint64, count int) error {
	return r.AppendTx(ctx, tx, roomID, 1, count)
}

// AppendTx inserts FREE seats numbered from..to for roomID.
func (r *SeatRepo) AppendTx(ctx context.Context, tx *sql.Tx, roomID uint64, from, to int) error {
	for start := from; start <= to; start += seatBatch {
		end := start + seatBatch - 1
		if end > to {
			end = to
		}
		query := `INSERT INTO seats (room_id, number, state) VALUES `
		args := make([]interface{}, 0, (end-start+1)*3)
		for n := start; n <= end; n++ {
			if n > start {
				query += ","
			}
			query += "(?, ?, ?)"
			args = append(args, roomID, n, model.SeatFree)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

// TicketedAboveTx reports whether any seat of roomID numbered above n has
// a ticket.
func (r *SeatRepo) TicketedAboveTx(ctx context.Context, tx *sql.Tx, roomID uint64, n int) (bool, error) {
	const q = `SELECT COUNT(*) FROM tickets t JOIN seats s ON s.id = t.seat_id
	           WHERE s.room_id = ? AND s.number > ?`
	var count int
	if err := tx.QueryRowContext(ctx, q, roomID, n).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteAboveTx removes the seats of roomID numbered above n.
func (r *SeatRepo) DeleteAboveTx(ctx context.Context, tx *sql.Tx, roomID uint64, n int) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE room_id = ? AND number > ?`, roomID, n)
	return err
}

// GetByID retrieves a seat by its id.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	return getSeat(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *SeatRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Seat, error) {
	return getSeat(ctx, tx, id)
}

func getSeat(ctx context.Context, q querier, id uint64) (*model.Seat, error) {
	const sel = `SELECT id, room_id, number, state FROM seats WHERE id = ?`
	var s model.Seat
	err := q.QueryRowContext(ctx, sel, id).Scan(&s.ID, &s.RoomID, &s.Number, &s.State)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByRoom retrieves all seats of a room ordered by seat number.
func (r *SeatRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error) {
	const q = `SELECT id, room_id, number, state
	           FROM seats
	           WHERE room_id = ?
	           ORDER BY number`
	rows, err := r.db.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Seat{}
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.RoomID, &s.Number, &s.State); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountFree returns the number of FREE seats in a room.
func (r *SeatRepo) CountFree(ctx context.Context, roomID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM seats WHERE room_id = ? AND state = ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, roomID, model.SeatFree).Scan(&n)
	return n, err
}

// MarkOccupiedTx flips a FREE seat to OCCUPIED.  The state guard in the
// WHERE clause makes the check and the write one statement, so two
// transactions can never both succeed for the same seat.  It returns
// ErrSeatOccupied when the seat was not FREE and ErrSeatNotFound when it
// does not exist.
func (r *SeatRepo) MarkOccupiedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	return markOccupied(ctx, tx, id)
}

// MarkOccupied is MarkOccupiedTx outside a transaction.
func (r *SeatRepo) MarkOccupied(ctx context.Context, id uint64) error {
	return markOccupied(ctx, r.db, id)
}

func markOccupied(ctx context.Context, q querier, id uint64) error {
	const upd = `UPDATE seats SET state = ? WHERE id = ? AND state = ?`
	res, err := q.ExecContext(ctx, upd, model.SeatOccupied, id, model.SeatFree)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// nothing matched: tell a missing seat apart from an occupied one
	if _, err := getSeat(ctx, q, id); err != nil {
		return err
	}
	return ErrSeatOccupied
}

// MarkFreeTx sets a seat to FREE unconditionally.  Releasing a FREE seat
// succeeds; a missing seat yields ErrSeatNotFound.
func (r *SeatRepo) MarkFreeTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	return markFree(ctx, tx, id)
}

// MarkFree is MarkFreeTx outside a transaction.
func (r *SeatRepo) MarkFree(ctx context.Context, id uint64) error {
	return markFree(ctx, r.db, id)
}

func markFree(ctx context.Context, q querier, id uint64) error {
	const upd = `UPDATE seats SET state = ? WHERE id = ?`
	res, err := q.ExecContext(ctx, upd, model.SeatFree, id)
	if err != nil {
		return err
	}
	return affected(res, ErrSeatNotFound)
}
