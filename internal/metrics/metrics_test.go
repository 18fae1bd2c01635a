package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Purchase(ResultOK, 3)
	m.Purchase(ResultRejected, 2)
	m.ShowtimeConflict()
	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.ObserveHTTP("GET", "/v1/movies", 200, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.purchases.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.purchases.WithLabelValues(ResultRejected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ticketsSold))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wireConnections))
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.Purchase(ResultOK, 1)
	m.SaleCancelled()
	m.ShowtimeConflict()
	m.ConnOpened()
	m.ConnClosed()
	m.ObserveHTTP("GET", "/", 200, time.Second)
}
