package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/database/dbtest"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type fixture struct {
	db        *sql.DB
	rooms     *RoomRepo
	seats     *SeatRepo
	movies    *MovieRepo
	showtimes *ShowtimeRepo
	tickets   *TicketRepo
	sales     *SaleRepo
	users     *UserRepo
}

func newFixture(t *testing.T) *fixture {
	db := dbtest.Open(t)
	return &fixture{
		db:        db,
		rooms:     NewRoomRepo(db),
		seats:     NewSeatRepo(db),
		movies:    NewMovieRepo(db),
		showtimes: NewShowtimeRepo(db),
		tickets:   NewTicketRepo(db),
		sales:     NewSaleRepo(db),
		users:     NewUserRepo(db),
	}
}

func (f *fixture) inTx(t *testing.T, fn func(tx *sql.Tx) error) error {
	t.Helper()
	tx, err := f.db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (f *fixture) room(t *testing.T, seats int) *model.Room {
	t.Helper()
	room := &model.Room{SeatCount: seats}
	require.NoError(t, f.inTx(t, func(tx *sql.Tx) error {
		if err := f.rooms.CreateTx(context.Background(), tx, room); err != nil {
			return err
		}
		return f.seats.CreateForRoomTx(context.Background(), tx, room.ID, seats)
	}))
	return room
}

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := model.ParseTime(s)
	require.NoError(t, err)
	return v
}

func TestSeatsGeneratedInOrder(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, 12)

	seats, err := f.seats.ListByRoom(context.Background(), room.ID)
	require.NoError(t, err)
	require.Len(t, seats, 12)
	for i, s := range seats {
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, model.SeatFree, s.State)
	}
	free, err := f.seats.CountFree(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, free)
}

func TestSeatStateTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	room := f.room(t, 2)
	seats, err := f.seats.ListByRoom(ctx, room.ID)
	require.NoError(t, err)
	id := seats[0].ID

	require.NoError(t, f.seats.MarkOccupied(ctx, id))
	assert.ErrorIs(t, f.seats.MarkOccupied(ctx, id), ErrSeatOccupied)
	assert.ErrorIs(t, f.seats.MarkOccupied(ctx, 9999), ErrSeatNotFound)

	require.NoError(t, f.seats.MarkFree(ctx, id))
	require.NoError(t, f.seats.MarkFree(ctx, id), "releasing a free seat is a no-op")
	assert.ErrorIs(t, f.seats.MarkFree(ctx, 9999), ErrSeatNotFound)

	s, err := f.seats.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, s.Occupied())
}

func TestFindOverlapping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	room := f.room(t, 5)
	movie := &model.Movie{Title: "Heat", DurationMinutes: 115, Genre: "Crime"}
	require.NoError(t, f.movies.Create(ctx, movie))

	existing := &model.Showtime{MovieID: movie.ID, RoomID: room.ID,
		StartsAt: ts(t, "2024-05-01 16:00:00"), EndsAt: ts(t, "2024-05-01 18:10:00")}
	require.NoError(t, f.inTx(t, func(tx *sql.Tx) error { return f.showtimes.CreateTx(ctx, tx, existing) }))

	cases := []struct {
		name       string
		start, end string
		exclude    uint64
		want       int
	}{
		{"overlapping tail", "2024-05-01 17:00:00", "2024-05-01 19:00:00", 0, 1},
		{"back to back", "2024-05-01 18:10:00", "2024-05-01 20:00:00", 0, 0},
		{"ends at start", "2024-05-01 14:00:00", "2024-05-01 16:00:00", 0, 0},
		{"contained", "2024-05-01 16:30:00", "2024-05-01 17:00:00", 0, 1},
		{"self excluded", "2024-05-01 16:00:00", "2024-05-01 18:10:00", existing.ID, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []model.Showtime
			require.NoError(t, f.inTx(t, func(tx *sql.Tx) error {
				var err error
				got, err = f.showtimes.FindOverlappingTx(ctx, tx, room.ID, tc.start, tc.end, tc.exclude)
				return err
			}))
			assert.Len(t, got, tc.want)
		})
	}

	byDate, err := f.showtimes.ListByStartPrefix(ctx, "2024-05-01")
	require.NoError(t, err)
	assert.Len(t, byDate, 1)
	byDate, err = f.showtimes.ListByStartPrefix(ctx, "2024-05-02")
	require.NoError(t, err)
	assert.Empty(t, byDate)
}

func TestTicketUniquenessAndSaleLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	room := f.room(t, 3)
	seats, err := f.seats.ListByRoom(ctx, room.ID)
	require.NoError(t, err)
	movie := &model.Movie{Title: "Alien", DurationMinutes: 117, Genre: "Horror"}
	require.NoError(t, f.movies.Create(ctx, movie))
	show := &model.Showtime{MovieID: movie.ID, RoomID: room.ID,
		StartsAt: ts(t, "2024-05-01 20:00:00"), EndsAt: ts(t, "2024-05-01 22:12:00")}
	require.NoError(t, f.inTx(t, func(tx *sql.Tx) error { return f.showtimes.CreateTx(ctx, tx, show) }))
	user := &model.User{Name: "Ana", Email: "Ana@Example.com", PasswordHash: "x", Role: model.RoleCustomer}
	require.NoError(t, f.users.Create(ctx, user))

	sale := &model.Sale{UserID: user.ID, SoldAt: ts(t, "2024-04-30 10:00:00"), TotalCents: 850}
	require.NoError(t, f.inTx(t, func(tx *sql.Tx) error {
		tk := &model.Ticket{ShowtimeID: show.ID, SeatID: seats[0].ID, PriceCents: 850}
		if err := f.tickets.CreateTx(ctx, tx, tk); err != nil {
			return err
		}
		if err := f.sales.CreateTx(ctx, tx, sale); err != nil {
			return err
		}
		return f.sales.LinkTicketsTx(ctx, tx, sale.ID, []uint64{tk.ID})
	}))

	err = f.inTx(t, func(tx *sql.Tx) error {
		return f.tickets.CreateTx(ctx, tx, &model.Ticket{ShowtimeID: show.ID, SeatID: seats[0].ID, PriceCents: 850})
	})
	assert.ErrorIs(t, err, ErrTicketExists)

	ok, err := f.tickets.Exists(ctx, show.ID, seats[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	linked, err := f.tickets.ListBySale(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, int64(850), linked[0].PriceCents)

	got, err := f.sales.GetByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-30 10:00:00", model.FormatTime(got.SoldAt))

	list, err := f.sales.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUserEmailUnique(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.users.Create(ctx, &model.User{Name: "A", Email: "a@x.io", PasswordHash: "h", Role: model.RoleCustomer}))
	err := f.users.Create(ctx, &model.User{Name: "B", Email: " A@X.io ", PasswordHash: "h", Role: model.RoleCustomer})
	assert.ErrorIs(t, err, ErrEmailExists)

	u, err := f.users.GetByEmail(ctx, "A@x.IO")
	require.NoError(t, err)
	assert.Equal(t, "A", u.Name)

	_, err = f.users.GetByID(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMovieSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, m := range []model.Movie{
		{Title: "The Matrix", DurationMinutes: 136, Genre: "Sci-Fi"},
		{Title: "Matrix Reloaded", DurationMinutes: 138, Genre: "Sci-Fi"},
		{Title: "100% Love", DurationMinutes: 90, Genre: "Romance"},
	} {
		m := m
		require.NoError(t, f.movies.Create(ctx, &m))
	}

	got, err := f.movies.SearchByTitle(ctx, "matrix")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.movies.SearchByTitle(ctx, "100%")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.movies.SearchByGenre(ctx, "sci-fi")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
