package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticketing/internal/metrics"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/session"
)

// EventPublisher receives sale events after commit.  Publish runs on the
// purchase path and must return without waiting on a broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.SaleEvent) error
}

// Receipt is the result of a committed purchase.
type Receipt struct {
	Sale    model.Sale
	Tickets []model.Ticket
}

// Sales performs purchases and cancellations.  Each one is a single
// transaction: tickets, seat states, the sale row and its links are
// written together or not at all, so an Occupied seat always has its
// ticket and a ticket always has its Occupied seat.
type Sales struct {
	db        *sql.DB
	registry  *SeatRegistry
	seats     *repository.SeatRepo
	showtimes *repository.ShowtimeRepo
	tickets   *repository.TicketRepo
	sales     *repository.SaleRepo
	users     *repository.UserRepo

	price   PriceFunc
	events  EventPublisher
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewSales returns a sales service pricing tickets at DefaultBasePriceCents.
func NewSales(r Repos, registry *SeatRegistry, log *zap.Logger) *Sales {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sales{
		db:        r.DB,
		registry:  registry,
		seats:     r.Seats,
		showtimes: r.Showtimes,
		tickets:   r.Tickets,
		sales:     r.Sales,
		users:     r.Users,
		price:     FlatPrice(DefaultBasePriceCents),
		log:       log,
		now:       time.Now,
	}
}

// WithPricing replaces the pricing function.
func (s *Sales) WithPricing(p PriceFunc) *Sales {
	if p != nil {
		s.price = p
	}
	return s
}

// WithEvents sets the publisher notified after each commit.
func (s *Sales) WithEvents(p EventPublisher) *Sales {
	s.events = p
	return s
}

func (s *Sales) WithMetrics(m *metrics.Metrics) *Sales {
	s.metrics = m
	return s
}

// WithClock replaces the time source.
func (s *Sales) WithClock(now func() time.Time) *Sales {
	s.now = now
	return s
}

// line is a validated purchase item.
type line struct {
	showtime *model.Showtime
	seat     *model.Seat
}

// Purchase sells one ticket per item to userID as a single sale.  Items are
// checked before anything is written; a seat that is not available fails
// the whole purchase with ErrSeatAlreadyOccupied.  Any failure after the
// transaction opened is reported as ErrPurchaseFailed and leaves no trace.
func (s *Sales) Purchase(ctx context.Context, userID uint64, items []model.SaleItem, discount float64) (*Receipt, error) {
	lines, err := s.prepare(ctx, userID, items, discount)
	if err != nil {
		s.metrics.Purchase(metrics.ResultRejected, len(items))
		return nil, err
	}

	rc := &Receipt{Sale: model.Sale{
		UserID:          userID,
		SoldAt:          s.now().UTC().Truncate(time.Second),
		DiscountPercent: discount,
	}}
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		var sum int64
		ids := make([]uint64, 0, len(lines))
		for _, l := range lines {
			t := model.Ticket{ShowtimeID: l.showtime.ID, SeatID: l.seat.ID, PriceCents: s.price(l.showtime, l.seat)}
			if err := s.tickets.CreateTx(ctx, tx, &t); err != nil {
				return err
			}
			if err := s.registry.ReserveTx(ctx, tx, l.seat.ID); err != nil {
				return err
			}
			sum += t.PriceCents
			ids = append(ids, t.ID)
			rc.Tickets = append(rc.Tickets, t)
		}
		rc.Sale.TotalCents = ApplyDiscount(sum, discount)
		if err := s.sales.CreateTx(ctx, tx, &rc.Sale); err != nil {
			return err
		}
		return s.sales.LinkTicketsTx(ctx, tx, rc.Sale.ID, ids)
	})
	if err != nil {
		s.metrics.Purchase(metrics.ResultFailed, len(items))
		s.log.Warn("purchase rolled back", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPurchaseFailed, classify(err))
	}

	s.metrics.Purchase(metrics.ResultOK, len(rc.Tickets))
	s.log.Info("purchase committed",
		zap.Uint64("sale_id", rc.Sale.ID),
		zap.Uint64("user_id", userID),
		zap.Int("tickets", len(rc.Tickets)),
		zap.Int64("total_cents", rc.Sale.TotalCents))
	s.publish(ctx, queue.EventSaleCompleted, &rc.Sale, rc.Tickets)
	return rc, nil
}

// PurchaseOne sells a single seat without discount.
func (s *Sales) PurchaseOne(ctx context.Context, userID, showtimeID, seatID uint64) (*Receipt, error) {
	return s.Purchase(ctx, userID, []model.SaleItem{{ShowtimeID: showtimeID, SeatID: seatID}}, 0)
}

// prepare runs every check that needs no transaction.
func (s *Sales) prepare(ctx context.Context, userID uint64, items []model.SaleItem, discount float64) ([]line, error) {
	var p problems
	if userID == 0 {
		p.addf("purchaser is required")
	}
	if len(items) == 0 {
		p.addf("at least one ticket is required")
	}
	if math.IsNaN(discount) || discount < 0 || discount > 100 {
		p.addf("discount must be between 0 and 100")
	}
	seen := make(map[model.SaleItem]struct{}, len(items))
	for _, it := range items {
		if it.ShowtimeID == 0 || it.SeatID == 0 {
			p.addf("showtime and seat ids are required")
			continue
		}
		if _, dup := seen[it]; dup {
			p.addf("seat %d is requested twice for showtime %d", it.SeatID, it.ShowtimeID)
		}
		seen[it] = struct{}{}
	}
	if err := p.err(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, classify(err)
	}
	shows := make(map[uint64]*model.Showtime)
	lines := make([]line, 0, len(items))
	for _, it := range items {
		st, ok := shows[it.ShowtimeID]
		if !ok {
			var err error
			if st, err = s.showtimes.GetByID(ctx, it.ShowtimeID); err != nil {
				return nil, classify(err)
			}
			shows[it.ShowtimeID] = st
		}
		seat, err := s.seats.GetByID(ctx, it.SeatID)
		if err != nil {
			return nil, classify(err)
		}
		if seat.RoomID != st.RoomID {
			return nil, invalid("seat %d is not in room %d of showtime %d", seat.ID, st.RoomID, st.ID)
		}
		ok, err = s.registry.IsAvailableForShowtime(ctx, st.ID, seat.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: seat %d for showtime %d", ErrSeatAlreadyOccupied, seat.Number, st.ID)
		}
		lines = append(lines, line{showtime: st, seat: seat})
	}
	return lines, nil
}

// Cancel deletes a sale, its tickets and its links and frees the seats.
// Only the purchaser or an admin may cancel.
func (s *Sales) Cancel(ctx context.Context, actor session.Identity, saleID uint64) error {
	sale, err := s.Get(ctx, actor, saleID)
	if err != nil {
		return err
	}
	var tickets []model.Ticket
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if tickets, err = s.tickets.ListBySaleTx(ctx, tx, saleID); err != nil {
			return err
		}
		ids := make([]uint64, 0, len(tickets))
		for _, t := range tickets {
			ids = append(ids, t.ID)
		}
		if err := s.sales.UnlinkTicketsTx(ctx, tx, saleID); err != nil {
			return err
		}
		if err := s.tickets.DeleteTx(ctx, tx, ids); err != nil {
			return err
		}
		for _, t := range tickets {
			if err := s.registry.ReleaseTx(ctx, tx, t.SeatID); err != nil {
				return err
			}
		}
		return s.sales.DeleteTx(ctx, tx, saleID)
	})
	if err != nil {
		s.log.Warn("cancel rolled back", zap.Uint64("sale_id", saleID), zap.Error(err))
		return classify(err)
	}
	s.metrics.SaleCancelled()
	s.log.Info("sale cancelled", zap.Uint64("sale_id", saleID), zap.Uint64("by", actor.UserID))
	s.publish(ctx, queue.EventSaleCancelled, sale, tickets)
	return nil
}

// Get returns a sale visible to actor: the purchaser or an admin.
func (s *Sales) Get(ctx context.Context, actor session.Identity, saleID uint64) (*model.Sale, error) {
	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, classify(err)
	}
	if sale.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: sale %d belongs to another user", ErrUnauthorized, saleID)
	}
	return sale, nil
}

// ListByUser returns the sales of userID ordered by time.
func (s *Sales) ListByUser(ctx context.Context, userID uint64) ([]model.Sale, error) {
	list, err := s.sales.ListByUser(ctx, userID)
	return list, classify(err)
}

// Tickets returns the tickets of a sale visible to actor.
func (s *Sales) Tickets(ctx context.Context, actor session.Identity, saleID uint64) ([]model.Ticket, error) {
	if _, err := s.Get(ctx, actor, saleID); err != nil {
		return nil, err
	}
	list, err := s.tickets.ListBySale(ctx, saleID)
	return list, classify(err)
}

// TicketAvailability reports whether the seat can still be sold for the
// showtime.
func (s *Sales) TicketAvailability(ctx context.Context, showtimeID, seatID uint64) (bool, error) {
	if _, err := s.showtimes.GetByID(ctx, showtimeID); err != nil {
		return false, classify(err)
	}
	return s.registry.IsAvailableForShowtime(ctx, showtimeID, seatID)
}

func (s *Sales) publish(ctx context.Context, kind string, sale *model.Sale, tickets []model.Ticket) {
	if s.events == nil {
		return
	}
	ev := queue.SaleEvent{
		Type:            kind,
		SaleID:          sale.ID,
		UserID:          sale.UserID,
		DiscountPercent: sale.DiscountPercent,
		TotalCents:      sale.TotalCents,
		OccurredAt:      model.FormatTime(s.now()),
	}
	for _, t := range tickets {
		ev.Tickets = append(ev.Tickets, queue.TicketLine{
			TicketID: t.ID, ShowtimeID: t.ShowtimeID, SeatID: t.SeatID, PriceCents: t.PriceCents,
		})
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), ev); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("sale event not published", zap.String("type", kind), zap.Uint64("sale_id", sale.ID), zap.Error(err))
	}
}
