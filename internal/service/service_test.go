package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-ticketing/internal/database/dbtest"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/session"
)

type recorder struct {
	mu     sync.Mutex
	events []queue.SaleEvent
}

func (r *recorder) Publish(_ context.Context, ev queue.SaleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type env struct {
	db        *sql.DB
	repos     Repos
	registry  *SeatRegistry
	scheduler *Scheduler
	sales     *Sales
	catalog   *Catalog
	accounts  *Accounts
	events    *recorder
}

func newEnv(t *testing.T) *env {
	db := dbtest.Open(t)
	r := NewRepos(db)
	reg := NewSeatRegistry(r, nil)
	ev := &recorder{}
	clock := func() time.Time { return time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC) }
	return &env{
		db:        db,
		repos:     r,
		registry:  reg,
		scheduler: NewScheduler(r, DefaultCleanupMinutes, nil, nil),
		sales:     NewSales(r, reg, nil).WithEvents(ev).WithClock(clock),
		catalog:   NewCatalog(r, nil),
		accounts:  NewAccounts(r, session.NewLoginGuard(nil, 3, time.Minute), bcrypt.MinCost, nil),
		events:    ev,
	}
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := model.ParseTime(s)
	require.NoError(t, err)
	return v
}

func (e *env) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// cinema is one room with seats, one movie, one showtime 16:00-18:10 and
// one customer.
type cinema struct {
	room     *model.Room
	seats    []model.Seat
	movie    *model.Movie
	show     *model.Showtime
	customer *model.User
}

func (e *env) cinema(t *testing.T, seats int) cinema {
	t.Helper()
	ctx := context.Background()
	room, err := e.catalog.CreateRoom(ctx, seats)
	require.NoError(t, err)
	list, err := e.registry.ListByRoom(ctx, room.ID)
	require.NoError(t, err)
	movie := &model.Movie{Title: "Heat", DurationMinutes: 115, Genre: "Crime"}
	require.NoError(t, e.catalog.CreateMovie(ctx, movie))
	show := &model.Showtime{MovieID: movie.ID, RoomID: room.ID,
		StartsAt: at(t, "2024-05-01 16:00:00"), EndsAt: at(t, "2024-05-01 18:10:00")}
	require.NoError(t, e.scheduler.Create(ctx, show))
	user, err := e.accounts.Register(ctx, "Ana", "ana@example.com", "555-0100", "secret1")
	require.NoError(t, err)
	return cinema{room: room, seats: list, movie: movie, show: show, customer: user}
}

func (e *env) seatState(t *testing.T, id uint64) model.SeatState {
	t.Helper()
	s, err := e.registry.Get(context.Background(), id)
	require.NoError(t, err)
	return s.State
}

func TestScheduleRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 50)

	t2 := &model.Showtime{MovieID: c.movie.ID, RoomID: c.room.ID,
		StartsAt: at(t, "2024-05-01 17:00:00"), EndsAt: at(t, "2024-05-01 19:00:00")}
	err := e.scheduler.Create(ctx, t2)
	assert.ErrorIs(t, err, ErrRoomConflict)
	assert.Equal(t, "RoomConflict", Kind(err))
	assert.Zero(t, t2.ID)

	t3 := &model.Showtime{MovieID: c.movie.ID, RoomID: c.room.ID,
		StartsAt: at(t, "2024-05-01 18:10:00"), EndsAt: at(t, "2024-05-01 20:00:00")}
	require.NoError(t, e.scheduler.Create(ctx, t3), "back to back showtimes do not overlap")

	// another room is unaffected
	other, err := e.catalog.CreateRoom(ctx, 10)
	require.NoError(t, err)
	t4 := &model.Showtime{MovieID: c.movie.ID, RoomID: other.ID,
		StartsAt: at(t, "2024-05-01 17:00:00"), EndsAt: at(t, "2024-05-01 19:00:00")}
	require.NoError(t, e.scheduler.Create(ctx, t4))

	list, err := e.scheduler.ListByRoom(ctx, c.room.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUpdateExcludesItself(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 5)

	moved := *c.show
	moved.StartsAt = at(t, "2024-05-01 16:05:00")
	require.NoError(t, e.scheduler.Update(ctx, &moved))

	late := &model.Showtime{MovieID: c.movie.ID, RoomID: c.room.ID,
		StartsAt: at(t, "2024-05-01 19:00:00"), EndsAt: at(t, "2024-05-01 21:00:00")}
	require.NoError(t, e.scheduler.Create(ctx, late))

	late.StartsAt = at(t, "2024-05-01 18:00:00")
	assert.ErrorIs(t, e.scheduler.Update(ctx, late), ErrRoomConflict)

	got, err := e.scheduler.Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 19:00:00", model.FormatTime(got.StartsAt), "rejected update leaves the row unchanged")

	assert.ErrorIs(t, e.scheduler.Update(ctx, &model.Showtime{ID: 999, MovieID: c.movie.ID, RoomID: c.room.ID,
		StartsAt: at(t, "2024-05-02 10:00:00"), EndsAt: at(t, "2024-05-02 12:00:00")}), ErrNotFound)
}

func TestScheduleValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 5)

	err := e.scheduler.Create(ctx, &model.Showtime{MovieID: 77, RoomID: 88,
		StartsAt: at(t, "2024-05-01 12:00:00"), EndsAt: at(t, "2024-05-01 11:00:00")})
	require.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t, []string{"end must be after start", "movie 77 does not exist", "room 88 does not exist"}, ve.Problems)

	ok, err := e.scheduler.CheckAvailability(ctx, &model.Showtime{RoomID: c.room.ID,
		StartsAt: at(t, "2024-05-01 10:00:00"), EndsAt: at(t, "2024-05-01 16:00:00")})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.scheduler.CheckAvailability(ctx, &model.Showtime{RoomID: c.room.ID,
		StartsAt: at(t, "2024-05-01 18:00:00"), EndsAt: at(t, "2024-05-01 19:00:00")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateFromDuration(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 5)

	st, err := e.scheduler.CreateFromDuration(ctx, c.movie.ID, c.room.ID, at(t, "2024-05-01 20:00:00"))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 22:10:00", model.FormatTime(st.EndsAt), "115 minutes plus 15 cleanup")

	_, err = e.scheduler.CreateFromDuration(ctx, 999, c.room.ID, at(t, "2024-05-02 20:00:00"))
	assert.ErrorIs(t, err, ErrValidation)

	day, err := e.scheduler.ListByDate(ctx, "2024-05-01")
	require.NoError(t, err)
	assert.Len(t, day, 2)
	_, err = e.scheduler.ListByDate(ctx, "May 1st")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPurchaseSingleSeat(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 50)
	seat := c.seats[0]

	rc, err := e.sales.Purchase(ctx, c.customer.ID, []model.SaleItem{{ShowtimeID: c.show.ID, SeatID: seat.ID}}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBasePriceCents, rc.Sale.TotalCents)
	assert.Equal(t, "2024-04-30 10:00:00", model.FormatTime(rc.Sale.SoldAt))
	require.Len(t, rc.Tickets, 1)

	assert.Equal(t, model.SeatOccupied, e.seatState(t, seat.ID))
	assert.Equal(t, 1, e.count(t, "tickets"))
	assert.Equal(t, 1, e.count(t, "sales"))
	assert.Equal(t, 1, e.count(t, "sale_tickets"))

	ok, err := e.sales.TicketAvailability(ctx, c.show.ID, seat.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, e.events.events, 1)
	assert.Equal(t, queue.EventSaleCompleted, e.events.events[0].Type)
	assert.Equal(t, rc.Sale.ID, e.events.events[0].SaleID)
}

func TestPurchaseSameSeatTwice(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 50)
	other, err := e.accounts.Register(ctx, "Bo", "bo@example.com", "", "secret2")
	require.NoError(t, err)
	item := []model.SaleItem{{ShowtimeID: c.show.ID, SeatID: c.seats[0].ID}}

	_, err = e.sales.Purchase(ctx, c.customer.ID, item, 0)
	require.NoError(t, err)

	_, err = e.sales.Purchase(ctx, other.ID, item, 0)
	assert.ErrorIs(t, err, ErrSeatAlreadyOccupied)
	assert.Equal(t, 1, e.count(t, "tickets"))
	assert.Equal(t, 1, e.count(t, "sales"))
}

func TestPurchaseIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 50)
	s1, s2, s3 := c.seats[0], c.seats[1], c.seats[2]

	_, err := e.sales.PurchaseOne(ctx, c.customer.ID, c.show.ID, s3.ID)
	require.NoError(t, err)

	items := []model.SaleItem{
		{ShowtimeID: c.show.ID, SeatID: s1.ID},
		{ShowtimeID: c.show.ID, SeatID: s2.ID},
		{ShowtimeID: c.show.ID, SeatID: s3.ID},
	}
	_, err = e.sales.Purchase(ctx, c.customer.ID, items, 0)
	assert.ErrorIs(t, err, ErrSeatAlreadyOccupied)
	assert.Equal(t, model.SeatFree, e.seatState(t, s1.ID))
	assert.Equal(t, model.SeatFree, e.seatState(t, s2.ID))
	assert.Equal(t, 1, e.count(t, "tickets"))
}

func TestPurchaseRollsBackInsideTransaction(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 50)
	s1, s2, s3 := c.seats[0], c.seats[1], c.seats[2]

	// a negative price violates the tickets CHECK constraint on the third insert
	e.sales.WithPricing(func(_ *model.Showtime, seat *model.Seat) int64 {
		if seat.ID == s3.ID {
			return -1
		}
		return 850
	})
	items := []model.SaleItem{
		{ShowtimeID: c.show.ID, SeatID: s1.ID},
		{ShowtimeID: c.show.ID, SeatID: s2.ID},
		{ShowtimeID: c.show.ID, SeatID: s3.ID},
	}
	_, err := e.sales.Purchase(ctx, c.customer.ID, items, 0)
	require.ErrorIs(t, err, ErrPurchaseFailed)
	assert.Equal(t, "PurchaseFailed", Kind(err))

	for _, s := range []model.Seat{s1, s2, s3} {
		assert.Equal(t, model.SeatFree, e.seatState(t, s.ID))
	}
	assert.Zero(t, e.count(t, "tickets"))
	assert.Zero(t, e.count(t, "sales"))
	assert.Zero(t, e.count(t, "sale_tickets"))
	assert.Empty(t, e.events.events)
}

func TestPurchaseDiscount(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 50)

	rc, err := e.sales.Purchase(ctx, c.customer.ID, []model.SaleItem{
		{ShowtimeID: c.show.ID, SeatID: c.seats[0].ID},
		{ShowtimeID: c.show.ID, SeatID: c.seats[1].ID},
	}, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1530), rc.Sale.TotalCents)
	assert.Equal(t, 10.0, rc.Sale.DiscountPercent)

	stored, err := e.sales.Get(ctx, session.Identity{UserID: c.customer.ID, Role: model.RoleCustomer}, rc.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1530), stored.TotalCents)
}

func TestPurchaseValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 5)
	other, err := e.catalog.CreateRoom(ctx, 5)
	require.NoError(t, err)
	foreign, err := e.registry.ListByRoom(ctx, other.ID)
	require.NoError(t, err)
	item := model.SaleItem{ShowtimeID: c.show.ID, SeatID: c.seats[0].ID}

	cases := []struct {
		name     string
		user     uint64
		items    []model.SaleItem
		discount float64
		want     error
	}{
		{"no items", c.customer.ID, nil, 0, ErrValidation},
		{"duplicate item", c.customer.ID, []model.SaleItem{item, item}, 0, ErrValidation},
		{"discount above 100", c.customer.ID, []model.SaleItem{item}, 101, ErrValidation},
		{"negative discount", c.customer.ID, []model.SaleItem{item}, -5, ErrValidation},
		{"unknown user", 999, []model.SaleItem{item}, 0, ErrNotFound},
		{"unknown showtime", c.customer.ID, []model.SaleItem{{ShowtimeID: 999, SeatID: c.seats[0].ID}}, 0, ErrNotFound},
		{"unknown seat", c.customer.ID, []model.SaleItem{{ShowtimeID: c.show.ID, SeatID: 9999}}, 0, ErrSeatNotFound},
		{"seat of another room", c.customer.ID, []model.SaleItem{{ShowtimeID: c.show.ID, SeatID: foreign[0].ID}}, 0, ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.sales.Purchase(ctx, tc.user, tc.items, tc.discount)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Zero(t, e.count(t, "tickets"))
}

func TestConcurrentPurchasesSellSeatOnce(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 5)
	item := []model.SaleItem{{ShowtimeID: c.show.ID, SeatID: c.seats[0].ID}}

	const buyers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.sales.Purchase(ctx, c.customer.ID, item, 0); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, e.count(t, "tickets"))
	assert.Equal(t, model.SeatOccupied, e.seatState(t, c.seats[0].ID))
}

func TestCancelRestoresSeats(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 5)
	owner := session.Identity{UserID: c.customer.ID, Role: model.RoleCustomer}

	rc, err := e.sales.Purchase(ctx, c.customer.ID, []model.SaleItem{
		{ShowtimeID: c.show.ID, SeatID: c.seats[0].ID},
		{ShowtimeID: c.show.ID, SeatID: c.seats[1].ID},
	}, 0)
	require.NoError(t, err)

	tickets, err := e.sales.Tickets(ctx, owner, rc.Sale.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	stranger := session.Identity{UserID: c.customer.ID + 100, Role: model.RoleCustomer}
	assert.ErrorIs(t, e.sales.Cancel(ctx, stranger, rc.Sale.ID), ErrUnauthorized)

	require.NoError(t, e.sales.Cancel(ctx, owner, rc.Sale.ID))
	assert.Equal(t, model.SeatFree, e.seatState(t, c.seats[0].ID))
	assert.Equal(t, model.SeatFree, e.seatState(t, c.seats[1].ID))
	assert.Zero(t, e.count(t, "tickets"))
	assert.Zero(t, e.count(t, "sales"))
	assert.Zero(t, e.count(t, "sale_tickets"))
	require.Len(t, e.events.events, 2)
	assert.Equal(t, queue.EventSaleCancelled, e.events.events[1].Type)
	assert.Len(t, e.events.events[1].Tickets, 2)

	assert.ErrorIs(t, e.sales.Cancel(ctx, owner, rc.Sale.ID), ErrNotFound)

	// the seat can be sold again
	_, err = e.sales.PurchaseOne(ctx, c.customer.ID, c.show.ID, c.seats[0].ID)
	require.NoError(t, err)
}

func TestDeletesRefusedWhenTicketsSold(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 5)
	_, err := e.sales.PurchaseOne(ctx, c.customer.ID, c.show.ID, c.seats[0].ID)
	require.NoError(t, err)

	assert.ErrorIs(t, e.scheduler.Delete(ctx, c.show.ID), ErrInUse)
	assert.ErrorIs(t, e.catalog.DeleteMovie(ctx, c.movie.ID), ErrInUse)
	assert.ErrorIs(t, e.catalog.DeleteRoom(ctx, c.room.ID), ErrInUse)
	assert.Equal(t, 1, e.count(t, "tickets"))

	empty, err := e.scheduler.CreateFromDuration(ctx, c.movie.ID, c.room.ID, at(t, "2024-05-02 10:00:00"))
	require.NoError(t, err)
	require.NoError(t, e.scheduler.Delete(ctx, empty.ID))
	assert.ErrorIs(t, e.scheduler.Delete(ctx, empty.ID), ErrNotFound)
}

func TestUpdateCannotMoveSoldShowtime(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 5)
	other, err := e.catalog.CreateRoom(ctx, 5)
	require.NoError(t, err)

	unsold := &model.Showtime{MovieID: c.movie.ID, RoomID: c.room.ID,
		StartsAt: at(t, "2024-05-02 16:00:00"), EndsAt: at(t, "2024-05-02 18:10:00")}
	require.NoError(t, e.scheduler.Create(ctx, unsold))
	unsold.RoomID = other.ID
	require.NoError(t, e.scheduler.Update(ctx, unsold), "a showtime without tickets may change room")

	_, err = e.sales.PurchaseOne(ctx, c.customer.ID, c.show.ID, c.seats[0].ID)
	require.NoError(t, err)

	moved := *c.show
	moved.RoomID = other.ID
	assert.ErrorIs(t, e.scheduler.Update(ctx, &moved), ErrInUse)
	got, err := e.scheduler.Get(ctx, c.show.ID)
	require.NoError(t, err)
	assert.Equal(t, c.room.ID, got.RoomID)

	retimed := *c.show
	retimed.StartsAt = at(t, "2024-05-01 16:30:00")
	retimed.EndsAt = at(t, "2024-05-01 18:40:00")
	require.NoError(t, e.scheduler.Update(ctx, &retimed), "same room updates stay allowed")
}

func TestSeatRegistry(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 3)
	id := c.seats[0].ID

	require.NoError(t, e.registry.Reserve(ctx, id))
	assert.ErrorIs(t, e.registry.Reserve(ctx, id), ErrSeatAlreadyOccupied)
	assert.ErrorIs(t, e.registry.Reserve(ctx, 9999), ErrSeatNotFound)

	ok, err := e.registry.IsAvailableForShowtime(ctx, c.show.ID, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, e.registry.Release(ctx, id))
	require.NoError(t, e.registry.Release(ctx, id))
	assert.ErrorIs(t, e.registry.Release(ctx, 9999), ErrSeatNotFound)

	free, err := e.registry.CountFree(ctx, c.room.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, free)

	_, err = e.registry.ListByRoom(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	err := e.catalog.CreateMovie(ctx, &model.Movie{Title: " ", DurationMinutes: 0})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 3)

	m := &model.Movie{Title: "Alien", DurationMinutes: 117, Genre: "Horror"}
	require.NoError(t, e.catalog.CreateMovie(ctx, m))
	m.Genre = "Sci-Fi"
	require.NoError(t, e.catalog.UpdateMovie(ctx, m))
	got, err := e.catalog.SearchByGenre(ctx, "SCI-FI")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alien", got[0].Title)

	assert.ErrorIs(t, e.catalog.UpdateMovie(ctx, &model.Movie{ID: 404, Title: "x", DurationMinutes: 1, Genre: "y"}), ErrNotFound)

	_, err = e.catalog.CreateRoom(ctx, 0)
	assert.ErrorIs(t, err, ErrValidation)
	room, err := e.catalog.CreateRoom(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, e.count(t, "seats"))
	require.NoError(t, e.catalog.DeleteRoom(ctx, room.ID))
	assert.Zero(t, e.count(t, "seats"), "seats go with their room")

	require.NoError(t, e.catalog.DeleteMovie(ctx, m.ID))
	_, err = e.catalog.GetMovie(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRoomResizesSeats(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	c := e.cinema(t, 5)

	room, err := e.catalog.UpdateRoom(ctx, c.room.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, room.SeatCount)
	seats, err := e.registry.ListByRoom(ctx, c.room.ID)
	require.NoError(t, err)
	require.Len(t, seats, 8)
	for i, s := range seats {
		assert.Equal(t, i+1, s.Number)
	}

	_, err = e.sales.PurchaseOne(ctx, c.customer.ID, c.show.ID, seats[5].ID) // seat #6
	require.NoError(t, err)
	_, err = e.catalog.UpdateRoom(ctx, c.room.ID, 4)
	assert.ErrorIs(t, err, ErrInUse)
	got, err := e.catalog.GetRoom(ctx, c.room.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.SeatCount, "refused shrink leaves the room unchanged")

	room, err = e.catalog.UpdateRoom(ctx, c.room.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, room.SeatCount)
	free, err := e.registry.CountFree(ctx, c.room.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, free)

	_, err = e.catalog.UpdateRoom(ctx, c.room.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.catalog.UpdateRoom(ctx, 999, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	u, err := e.accounts.Register(ctx, "Ana", "Ana@Example.com", "", "secret1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, u.Role)

	_, err = e.accounts.Register(ctx, "Ana 2", "ana@example.com", "", "secret1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.accounts.Register(ctx, "", "nope", "", "123")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 3)

	got, err := e.accounts.Authenticate(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	for i := 0; i < 3; i++ {
		_, err = e.accounts.Authenticate(ctx, "ana@example.com", "wrong")
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
	_, err = e.accounts.Authenticate(ctx, "ana@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUnauthorized, "locked out after three failures")

	admin, err := e.accounts.EnsureAdmin(ctx, "Root", "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	again, err := e.accounts.EnsureAdmin(ctx, "Root", "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)
}

func TestKindAndPublicMessage(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "ValidationError", Kind(invalid("x")))
	assert.Equal(t, "NotFound", Kind(classify(repository.ErrMovieNotFound)))
	assert.Equal(t, "SeatNotFound", Kind(classify(repository.ErrSeatNotFound)))
	assert.Equal(t, "SeatAlreadyOccupied", Kind(classify(repository.ErrTicketExists)))
	assert.Equal(t, "PurchaseFailed", Kind(fmt.Errorf("%w: %w", ErrPurchaseFailed, classify(repository.ErrSeatOccupied))))
	assert.Equal(t, "StorageError", Kind(classify(sql.ErrConnDone)))
	assert.Equal(t, "internal storage error", PublicMessage(classify(sql.ErrConnDone), false))
	assert.Contains(t, PublicMessage(classify(sql.ErrConnDone), true), "connection")
	assert.Equal(t, "Unauthorized", Kind(session.ErrExpired))
}
