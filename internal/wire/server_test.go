package wire

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-ticketing/internal/database/dbtest"
	"github.com/iliyamo/cinema-ticketing/internal/protocol"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/session"
)

type harness struct {
	srv   *Server
	store *session.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	r := service.NewRepos(dbtest.Open(t))
	reg := service.NewSeatRegistry(r, nil)
	accounts := service.NewAccounts(r, nil, bcrypt.MinCost, nil)
	_, err := accounts.EnsureAdmin(context.Background(), "Root", "root@example.com", "rootpass")
	require.NoError(t, err)

	store := session.NewMemoryStore(time.Hour)
	srv := New(Services{
		Accounts:  accounts,
		Catalog:   service.NewCatalog(r, nil),
		Scheduler: service.NewScheduler(r, service.DefaultCleanupMinutes, nil, nil),
		Sales:     service.NewSales(r, reg, nil),
		Seats:     reg,
	}, store, nil, nil)
	return &harness{srv: srv, store: store}
}

// connect starts a server goroutine on one end of a pipe.  The returned
// channel closes when the server side has finished.
func (h *harness) connect(t *testing.T) (*protocol.Client, <-chan struct{}) {
	t.Helper()
	cli, srv := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.srv.ServeConn(context.Background(), srv)
	}()
	c := protocol.NewClient(cli)
	t.Cleanup(func() { _ = c.Close(); <-done })
	return c, done
}

func mustCall(t *testing.T, c *protocol.Client, op protocol.Op, fields ...string) []string {
	t.Helper()
	out, err := c.Call(op, fields...)
	require.NoError(t, err, "%s %v", op, fields)
	return out
}

func remoteKind(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	re, ok := err.(*protocol.RemoteError)
	require.True(t, ok, "want *protocol.RemoteError, got %T: %v", err, err)
	return re.Kind
}

func TestBookingOverTheWire(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.connect(t)
	guest, _ := h.connect(t)

	_, err := guest.Call(protocol.OpMovieCreate, "Heat", "115", "Crime")
	assert.Equal(t, "Unauthorized", remoteKind(t, err))

	out := mustCall(t, admin, protocol.OpLogin, "root@example.com", "rootpass")
	assert.Equal(t, "1", out[1], "admin role code")

	movieID := mustCall(t, admin, protocol.OpMovieCreate, "Heat", "115", "Crime")[0]
	roomID := mustCall(t, admin, protocol.OpRoomCreate, "50")[0]
	show := mustCall(t, admin, protocol.OpShowtimeCreate, movieID, roomID, "2024-05-01 16:00:00", "2024-05-01 18:10:00")
	showID := show[0]
	assert.Equal(t, "2024-05-01 18:10:00", show[4])

	_, err = admin.Call(protocol.OpShowtimeCreate, movieID, roomID, "2024-05-01 17:00:00", "2024-05-01 19:00:00")
	assert.Equal(t, "RoomConflict", remoteKind(t, err))

	derived := mustCall(t, admin, protocol.OpShowtimeCreate, movieID, roomID, "2024-05-01 18:10:00", "")
	assert.Equal(t, "2024-05-01 20:20:00", derived[4])

	userID := mustCall(t, guest, protocol.OpRegister, "Ana", "ana@example.com", "555", "secret1")[0]
	out = mustCall(t, guest, protocol.OpLogin, "ana@example.com", "secret1")
	assert.Equal(t, []string{userID, "0", "Ana"}, out)

	seats := mustCall(t, guest, protocol.OpSeatsByRoom, roomID)
	require.Equal(t, "50", seats[0])
	seat1, seat2 := seats[1], seats[5]
	assert.Equal(t, "1", seats[3], "seat numbers start at 1")
	assert.Equal(t, "0", seats[4], "free")

	saleID := mustCall(t, guest, protocol.OpSaleCreate, "2", showID, seat1, showID, seat2, "10")[0]
	sale := mustCall(t, guest, protocol.OpSaleGet, saleID)
	assert.Equal(t, []string{saleID, userID}, sale[:2])
	assert.Equal(t, "10", sale[3])
	assert.Equal(t, "15.30", sale[4])

	tickets := mustCall(t, guest, protocol.OpSaleGetTickets, saleID)
	require.Equal(t, "2", tickets[0])
	assert.Equal(t, "8.50", tickets[4])

	assert.Equal(t, []string{"0"}, mustCall(t, guest, protocol.OpTicketAvailability, showID, seat1))
	assert.Equal(t, []string{"48"}, mustCall(t, guest, protocol.OpRoomFreeSeats, roomID))
	assert.Equal(t, "1", mustCall(t, guest, protocol.OpSaleListByUser)[0])

	_, err = guest.Call(protocol.OpTicketCreate, showID, seat1)
	assert.Equal(t, "SeatAlreadyOccupied", remoteKind(t, err))

	_, err = guest.Call(protocol.OpMovieDelete, movieID)
	assert.Equal(t, "Unauthorized", remoteKind(t, err))
	_, err = admin.Call(protocol.OpShowtimeDelete, showID)
	assert.Equal(t, "InUse", remoteKind(t, err))

	_, err = guest.Call(protocol.OpRoomUpdate, roomID, "60")
	assert.Equal(t, "Unauthorized", remoteKind(t, err))
	_, err = admin.Call(protocol.OpRoomUpdate, roomID, "1")
	assert.Equal(t, "InUse", remoteKind(t, err), "seat 2 is ticketed")
	assert.Equal(t, []string{roomID, "60"}, mustCall(t, admin, protocol.OpRoomUpdate, roomID, "60"))
	assert.Equal(t, []string{"58"}, mustCall(t, guest, protocol.OpRoomFreeSeats, roomID))

	mustCall(t, guest, protocol.OpSaleCancel, saleID)
	assert.Equal(t, []string{"60"}, mustCall(t, guest, protocol.OpRoomFreeSeats, roomID))

	ticket := mustCall(t, guest, protocol.OpTicketCreate, showID, seat1)
	assert.Len(t, ticket, 2)

	mustCall(t, guest, protocol.OpLogout)
	_, err = guest.Call(protocol.OpSaleListByUser)
	assert.Equal(t, "Unauthorized", remoteKind(t, err))
}

func TestRequestErrors(t *testing.T) {
	h := newHarness(t)
	c, _ := h.connect(t)

	_, err := c.Call(protocol.Op(999))
	assert.Equal(t, "ValidationError", remoteKind(t, err))

	_, err = c.Call(protocol.OpMovieGet, "abc")
	assert.Equal(t, "ValidationError", remoteKind(t, err))

	_, err = c.Call(protocol.OpMovieGet, "42")
	assert.Equal(t, "NotFound", remoteKind(t, err))

	_, err = c.Call(protocol.OpLogin, "root@example.com", "wrong")
	assert.Equal(t, "Unauthorized", remoteKind(t, err))
}

func TestMalformedLineKeepsConnection(t *testing.T) {
	h := newHarness(t)
	cli, srv := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.srv.ServeConn(context.Background(), srv)
	}()
	defer func() { _ = cli.Close(); <-done }()

	r := protocol.NewReader(cli)
	_, err := cli.Write([]byte("not-a-number|x|\n"))
	require.NoError(t, err)
	resp, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, protocol.OpError, resp.Op)

	_, err = cli.Write(protocol.New(protocol.OpMovieList).Encode())
	require.NoError(t, err)
	resp, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, protocol.OpOK, resp.Op)
	assert.Equal(t, []string{"0"}, resp.Fields)
}

func TestDisconnectEndsSession(t *testing.T) {
	h := newHarness(t)
	c, done := h.connect(t)
	mustCall(t, c, protocol.OpLogin, "root@example.com", "rootpass")
	assert.Equal(t, 1, h.store.Len())

	require.NoError(t, c.Close())
	<-done
	assert.Zero(t, h.store.Len())
}

func TestServeAndShutdown(t *testing.T) {
	h := newHarness(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- h.srv.Serve(ln) }()

	c, err := protocol.Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, []string{"0"}, mustCall(t, c, protocol.OpRoomList))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.srv.Shutdown(ctx))
	assert.NoError(t, <-served)
}

func TestConnAfterShutdownIsClosed(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.srv.Shutdown(context.Background()))

	cli, srv := net.Pipe()
	defer cli.Close()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.srv.ServeConn(context.Background(), srv)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeConn kept a connection opened after Shutdown")
	}

	_, err := cli.Write([]byte("x\n"))
	assert.Error(t, err)
	h.srv.mu.Lock()
	assert.Empty(t, h.srv.conns)
	h.srv.mu.Unlock()
}
