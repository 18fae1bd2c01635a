// Package queue defines the sale events exchanged over RabbitMQ, the
// publisher used by the sales service and the consumer that writes the
// sales log.
package queue

import (
	"fmt"
	"strings"
)

// SalesQueue is the durable queue carrying every SaleEvent.
const SalesQueue = "sales.events"

// Event types.
const (
	EventSaleCompleted = "sale.completed"
	EventSaleCancelled = "sale.cancelled"
)

// SaleEvent is published after a purchase or a cancellation commits.  It
// contains enough information for downstream consumers to log or trigger
// analytics without querying the primary database.
type SaleEvent struct {
	Type            string       `json:"type"`
	SaleID          uint64       `json:"sale_id"`
	UserID          uint64       `json:"user_id"`
	Tickets         []TicketLine `json:"tickets"`
	DiscountPercent float64      `json:"discount_percent"`
	TotalCents      int64        `json:"total_cents"`
	OccurredAt      string       `json:"occurred_at"` // YYYY-MM-DD HH:MM:SS, UTC
}

// TicketLine is one ticket of a SaleEvent.
type TicketLine struct {
	TicketID   uint64 `json:"ticket_id"`
	ShowtimeID uint64 `json:"showtime_id"`
	SeatID     uint64 `json:"seat_id"`
	PriceCents int64  `json:"price_cents"`
}

// LogLine renders ev as one human-readable line of the sales log,
// newline included.
func (ev SaleEvent) LogLine() string {
	action := "Sale completed"
	if ev.Type == EventSaleCancelled {
		action = "Sale cancelled"
	}
	items := make([]string, 0, len(ev.Tickets))
	for _, t := range ev.Tickets {
		items = append(items, fmt.Sprintf("%d:%d", t.ShowtimeID, t.SeatID))
	}
	return fmt.Sprintf("[%s] %s | sale_id=%d | user_id=%d | tickets=%d | discount=%.2f%% | total=%s | seats=[%s]\n",
		ev.OccurredAt, action, ev.SaleID, ev.UserID, len(ev.Tickets), ev.DiscountPercent,
		FormatCents(ev.TotalCents), strings.Join(items, ","))
}

// FormatCents renders an amount of cents as a decimal with two places.
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
