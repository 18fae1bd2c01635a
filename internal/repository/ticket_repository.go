package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// TicketRepo stores tickets.  A ticket only exists as part of a sale, so
// every write takes the sale's transaction.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to db.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// CreateTx inserts a ticket and assigns its ID.  The (showtime_id, seat_id)
// unique key turns a second sale of the same seat into ErrTicketExists.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	const q = `INSERT INTO tickets (showtime_id, seat_id, price_cents) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, t.ShowtimeID, t.SeatID, t.PriceCents)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTicketExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// Exists reports whether a ticket is stored for the showtime and seat.
func (r *TicketRepo) Exists(ctx context.Context, showtimeID, seatID uint64) (bool, error) {
	return ticketExists(ctx, r.db, showtimeID, seatID)
}

// ExistsTx is Exists inside tx.
func (r *TicketRepo) ExistsTx(ctx context.Context, tx *sql.Tx, showtimeID, seatID uint64) (bool, error) {
	return ticketExists(ctx, tx, showtimeID, seatID)
}

func ticketExists(ctx context.Context, q querier, showtimeID, seatID uint64) (bool, error) {
	const sel = `SELECT COUNT(*) FROM tickets WHERE showtime_id = ? AND seat_id = ?`
	var n int
	if err := q.QueryRowContext(ctx, sel, showtimeID, seatID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListBySale returns the tickets linked to a sale ordered by id.
func (r *TicketRepo) ListBySale(ctx context.Context, saleID uint64) ([]model.Ticket, error) {
	return ticketsBySale(ctx, r.db, saleID)
}

// ListBySaleTx is ListBySale inside tx.
func (r *TicketRepo) ListBySaleTx(ctx context.Context, tx *sql.Tx, saleID uint64) ([]model.Ticket, error) {
	return ticketsBySale(ctx, tx, saleID)
}

func ticketsBySale(ctx context.Context, q querier, saleID uint64) ([]model.Ticket, error) {
	const sel = `SELECT t.id, t.showtime_id, t.seat_id, t.price_cents
	             FROM tickets t
	             JOIN sale_tickets st ON st.ticket_id = t.id
	             WHERE st.sale_id = ?
	             ORDER BY t.id`
	rows, err := q.QueryContext(ctx, sel, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Ticket{}
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.ShowtimeID, &t.SeatID, &t.PriceCents); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// DeleteTx removes the given tickets.
func (r *TicketRepo) DeleteTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	return err
}
