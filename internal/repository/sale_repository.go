package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// SaleRepo provides persistence for sales and the sale_tickets join table.
// A sale and its links are always written inside one transaction owned by
// the caller.
type SaleRepo struct {
	db *sql.DB
}

// NewSaleRepo returns a new SaleRepo bound to the given database.
func NewSaleRepo(db *sql.DB) *SaleRepo { return &SaleRepo{db: db} }

// DB exposes the underlying handle so the sales service can open the
// purchase transaction.
func (r *SaleRepo) DB() *sql.DB { return r.db }

const saleColumns = `id, user_id, sold_at, discount_percent, total_cents`

// CreateTx inserts a sale within the scope of an existing transaction and
// populates the generated ID.  The caller must commit or rollback.
func (r *SaleRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Sale) error {
	const q = `INSERT INTO sales (user_id, sold_at, discount_percent, total_cents) VALUES (?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, s.UserID, model.FormatTime(s.SoldAt), s.DiscountPercent, s.TotalCents)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// LinkTicketsTx inserts one sale_tickets row per ticket in a single
// statement.
func (r *SaleRepo) LinkTicketsTx(ctx context.Context, tx *sql.Tx, saleID uint64, ticketIDs []uint64) error {
	if len(ticketIDs) == 0 {
		return nil
	}
	query := `INSERT INTO sale_tickets (sale_id, ticket_id) VALUES `
	args := make([]interface{}, 0, len(ticketIDs)*2)
	for i, id := range ticketIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, saleID, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// UnlinkTicketsTx deletes the join rows of a sale.
func (r *SaleRepo) UnlinkTicketsTx(ctx context.Context, tx *sql.Tx, saleID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM sale_tickets WHERE sale_id = ?`, saleID)
	return err
}

// GetByID loads a sale.  It returns ErrSaleNotFound when absent.
func (r *SaleRepo) GetByID(ctx context.Context, id uint64) (*model.Sale, error) {
	return getSale(ctx, r.db, id)
}

// GetByIDTx is GetByID inside tx.
func (r *SaleRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Sale, error) {
	return getSale(ctx, tx, id)
}

func getSale(ctx context.Context, q querier, id uint64) (*model.Sale, error) {
	s, err := scanSale(q.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListByUser returns the user's sales, oldest first.
func (r *SaleRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Sale, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE user_id = ? ORDER BY sold_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Sale{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// DeleteTx removes the sale row.
func (r *SaleRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, ErrSaleNotFound)
}

func scanSale(row rowScanner) (*model.Sale, error) {
	var (
		s      model.Sale
		soldAt string
	)
	if err := row.Scan(&s.ID, &s.UserID, &soldAt, &s.DiscountPercent, &s.TotalCents); err != nil {
		return nil, err
	}
	if err := parseTime(soldAt, &s.SoldAt); err != nil {
		return nil, err
	}
	return &s, nil
}
