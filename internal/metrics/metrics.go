// Package metrics holds the Prometheus collectors of the ticketing server.
// All methods are safe on a nil *Metrics so services can run without them.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Purchase results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

type Metrics struct {
	purchases       *prometheus.CounterVec
	ticketsSold     prometheus.Counter
	salesCancelled  prometheus.Counter
	conflicts       prometheus.Counter
	wireConnections prometheus.Gauge
	httpDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cinema_purchases_total",
			Help: "Purchase attempts by result.",
		}, []string{"result"}),
		ticketsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinema_tickets_sold_total",
			Help: "Tickets committed by successful purchases.",
		}),
		salesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinema_sales_cancelled_total",
			Help: "Sales cancelled.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cinema_showtime_conflicts_total",
			Help: "Showtime writes rejected because the room was already booked.",
		}),
		wireConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cinema_wire_connections",
			Help: "Open wire protocol connections.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cinema_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.purchases, m.ticketsSold, m.salesCancelled, m.conflicts, m.wireConnections, m.httpDuration)
	return m
}

func (m *Metrics) Purchase(result string, tickets int) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.ticketsSold.Add(float64(tickets))
	}
}

func (m *Metrics) SaleCancelled() {
	if m != nil {
		m.salesCancelled.Inc()
	}
}

func (m *Metrics) ShowtimeConflict() {
	if m != nil {
		m.conflicts.Inc()
	}
}

// ConnOpened and ConnClosed track the wire connection gauge.
func (m *Metrics) ConnOpened() {
	if m != nil {
		m.wireConnections.Inc()
	}
}

func (m *Metrics) ConnClosed() {
	if m != nil {
		m.wireConnections.Dec()
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
