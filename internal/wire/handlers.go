package wire

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/protocol"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/session"
)

// maxSaleItems bounds the number of tickets in one SALE_CREATE.
const maxSaleItems = 100

type access int

const (
	public access = iota
	authenticated
	adminOnly
)

// call is one request being served.
type call struct {
	conn *connState
	sess *session.Session
	args *protocol.Args
}

func (c *call) identity() session.Identity {
	id, _ := c.sess.CurrentUser()
	return id
}

type handlerFunc func(ctx context.Context, c *call) ([]string, error)

type route struct {
	access access
	fn     handlerFunc
}

func (s *Server) buildRoutes() map[protocol.Op]route {
	return map[protocol.Op]route{
		protocol.OpLogin:    {public, s.login},
		protocol.OpLogout:   {public, s.logout},
		protocol.OpRegister: {public, s.register},

		protocol.OpMovieList:        {public, s.movieList},
		protocol.OpMovieGet:         {public, s.movieGet},
		protocol.OpMovieCreate:      {adminOnly, s.movieCreate},
		protocol.OpMovieUpdate:      {adminOnly, s.movieUpdate},
		protocol.OpMovieDelete:      {adminOnly, s.movieDelete},
		protocol.OpMovieSearchTitle: {public, s.movieSearchTitle},
		protocol.OpMovieSearchGenre: {public, s.movieSearchGenre},

		protocol.OpShowtimeList:    {public, s.showtimeList},
		protocol.OpShowtimeGet:     {public, s.showtimeGet},
		protocol.OpShowtimeCreate:  {adminOnly, s.showtimeCreate},
		protocol.OpShowtimeUpdate:  {adminOnly, s.showtimeUpdate},
		protocol.OpShowtimeDelete:  {adminOnly, s.showtimeDelete},
		protocol.OpShowtimeByMovie: {public, s.showtimeByMovie},
		protocol.OpShowtimeByRoom:  {public, s.showtimeByRoom},
		protocol.OpShowtimeByDate:  {public, s.showtimeByDate},

		protocol.OpRoomList:      {public, s.roomList},
		protocol.OpRoomGet:       {public, s.roomGet},
		protocol.OpSeatsByRoom:   {public, s.seatsByRoom},
		protocol.OpRoomCreate:    {adminOnly, s.roomCreate},
		protocol.OpRoomDelete:    {adminOnly, s.roomDelete},
		protocol.OpRoomUpdate:    {adminOnly, s.roomUpdate},
		protocol.OpRoomFreeSeats: {public, s.roomFreeSeats},

		protocol.OpTicketCreate:       {authenticated, s.ticketCreate},
		protocol.OpTicketAvailability: {public, s.ticketAvailability},
		protocol.OpSaleCreate:         {authenticated, s.saleCreate},
		protocol.OpSaleListByUser:     {authenticated, s.saleListByUser},
		protocol.OpSaleGet:            {authenticated, s.saleGet},
		protocol.OpSaleGetTickets:     {authenticated, s.saleGetTickets},
		protocol.OpSaleCancel:         {authenticated, s.saleCancel},
	}
}

func (s *Server) dispatch(ctx context.Context, st *connState, req protocol.Message) protocol.Message {
	rt, ok := s.routes[req.Op]
	if !ok {
		return protocol.Error("ValidationError", fmt.Sprintf("unknown opcode %d", req.Op))
	}
	c := &call{conn: st, args: req.Args()}
	if st.sid != "" {
		sess, err := s.store.Touch(ctx, st.sid)
		if err != nil {
			st.log.Info("session ended", zap.Error(err))
			st.sid = ""
		} else {
			c.sess = sess
		}
	}
	var err error
	switch rt.access {
	case authenticated:
		_, err = c.sess.RequireUser()
	case adminOnly:
		err = c.sess.RequireRole(model.RoleAdmin)
	}
	var fields []string
	if err == nil {
		fields, err = rt.fn(ctx, c)
	}
	if err != nil {
		return s.failure(st, c, req.Op, err)
	}
	return protocol.OK(fields...)
}

func (s *Server) failure(st *connState, c *call, op protocol.Op, err error) protocol.Message {
	kind := service.Kind(err)
	if kind == "StorageError" || kind == "PurchaseFailed" {
		st.log.Error("request failed", zap.Stringer("op", op), zap.Error(err))
	} else {
		st.log.Debug("request rejected", zap.Stringer("op", op), zap.String("kind", kind), zap.Error(err))
	}
	return protocol.Error(kind, service.PublicMessage(err, c.identity().IsAdmin()))
}

// badArgs reports unreadable request fields as a validation failure.
func badArgs(a *protocol.Args) error {
	if err := a.Err(); err != nil {
		return &service.ValidationError{Problems: []string{err.Error()}}
	}
	return nil
}

func roleCode(r model.Role) string {
	if r == model.RoleAdmin {
		return "1"
	}
	return "0"
}

// Authentication.

func (s *Server) login(ctx context.Context, c *call) ([]string, error) {
	email := c.args.String("email")
	password := c.args.String("password")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	u, err := s.svc.Accounts.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if c.conn.sid != "" {
		_ = s.store.Delete(ctx, c.conn.sid)
	}
	sess, err := s.store.Create(ctx, session.Identity{UserID: u.ID, Role: u.Role, Name: u.Name})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrStorage, err)
	}
	c.conn.sid = sess.ID
	c.conn.log.Info("login", zap.Uint64("user_id", u.ID))
	return []string{protocol.Uint(u.ID), roleCode(u.Role), u.Name}, nil
}

func (s *Server) logout(ctx context.Context, c *call) ([]string, error) {
	if c.conn.sid != "" {
		_ = s.store.Delete(ctx, c.conn.sid)
		c.conn.sid = ""
	}
	return nil, nil
}

func (s *Server) register(ctx context.Context, c *call) ([]string, error) {
	name := c.args.String("name")
	email := c.args.String("email")
	phone := c.args.String("phone")
	password := c.args.String("password")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	u, err := s.svc.Accounts.Register(ctx, name, email, phone, password)
	if err != nil {
		return nil, err
	}
	return []string{protocol.Uint(u.ID)}, nil
}

// Movies.

func movieFields(m model.Movie) []string {
	return []string{protocol.Uint(m.ID), m.Title, protocol.Int(m.DurationMinutes), m.Genre}
}

func movieList(list []model.Movie) []string {
	out := []string{protocol.Int(len(list))}
	for _, m := range list {
		out = append(out, movieFields(m)...)
	}
	return out
}

func (s *Server) movieList(ctx context.Context, c *call) ([]string, error) {
	list, err := s.svc.Catalog.ListMovies(ctx)
	if err != nil {
		return nil, err
	}
	return movieList(list), nil
}

func (s *Server) movieGet(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	m, err := s.svc.Catalog.GetMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	return movieFields(*m), nil
}

func (s *Server) movieCreate(ctx context.Context, c *call) ([]string, error) {
	m := &model.Movie{
		Title:           c.args.String("title"),
		DurationMinutes: c.args.Int("duration"),
		Genre:           c.args.String("genre"),
	}
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	if err := s.svc.Catalog.CreateMovie(ctx, m); err != nil {
		return nil, err
	}
	return []string{protocol.Uint(m.ID)}, nil
}

func (s *Server) movieUpdate(ctx context.Context, c *call) ([]string, error) {
	m := &model.Movie{
		ID:              c.args.Uint("id"),
		Title:           c.args.String("title"),
		DurationMinutes: c.args.Int("duration"),
		Genre:           c.args.String("genre"),
	}
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	return nil, s.svc.Catalog.UpdateMovie(ctx, m)
}

func (s *Server) movieDelete(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	return nil, s.svc.Catalog.DeleteMovie(ctx, id)
}

func (s *Server) movieSearchTitle(ctx context.Context, c *call) ([]string, error) {
	q := c.args.String("title")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	list, err := s.svc.Catalog.SearchByTitle(ctx, q)
	if err != nil {
		return nil, err
	}
	return movieList(list), nil
}

func (s *Server) movieSearchGenre(ctx context.Context, c *call) ([]string, error) {
	g := c.args.String("genre")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	list, err := s.svc.Catalog.SearchByGenre(ctx, g)
	if err != nil {
		return nil, err
	}
	return movieList(list), nil
}

// Showtimes.

func showtimeFields(st model.Showtime) []string {
	return []string{
		protocol.Uint(st.ID), protocol.Uint(st.MovieID), protocol.Uint(st.RoomID),
		protocol.Time(st.StartsAt), protocol.Time(st.EndsAt),
	}
}

func showtimeList(list []model.Showtime) []string {
	out := []string{protocol.Int(len(list))}
	for _, st := range list {
		out = append(out, showtimeFields(st)...)
	}
	return out
}

func (s *Server) showtimeList(ctx context.Context, c *call) ([]string, error) {
	list, err := s.svc.Scheduler.List(ctx)
	if err != nil {
		return nil, err
	}
	return showtimeList(list), nil
}

func (s *Server) showtimeGet(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	st, err := s.svc.Scheduler.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return showtimeFields(*st), nil
}

// showtimeCreate derives the end from the movie duration when the end
// field is empty or absent.
func (s *Server) showtimeCreate(ctx context.Context, c *call) ([]string, error) {
	movieID := c.args.Uint("movie_id")
	roomID := c.args.Uint("room_id")
	start := c.args.Time("start", false)
	var end time.Time
	if c.args.Remaining() > 0 {
		end = c.args.Time("end", true)
	}
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	if end.IsZero() {
		st, err := s.svc.Scheduler.CreateFromDuration(ctx, movieID, roomID, start)
		if err != nil {
			return nil, err
		}
		return showtimeFields(*st), nil
	}
	st := &model.Showtime{MovieID: movieID, RoomID: roomID, StartsAt: start, EndsAt: end}
	if err := s.svc.Scheduler.Create(ctx, st); err != nil {
		return nil, err
	}
	return showtimeFields(*st), nil
}

func (s *Server) showtimeUpdate(ctx context.Context, c *call) ([]string, error) {
	st := &model.Showtime{
		ID:       c.args.Uint("id"),
		MovieID:  c.args.Uint("movie_id"),
		RoomID:   c.args.Uint("room_id"),
		StartsAt: c.args.Time("start", false),
		EndsAt:   c.args.Time("end", false),
	}
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	if err := s.svc.Scheduler.Update(ctx, st); err != nil {
		return nil, err
	}
	return showtimeFields(*st), nil
}

func (s *Server) showtimeDelete(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	return nil, s.svc.Scheduler.Delete(ctx, id)
}

func (s *Server) showtimeByMovie(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("movie_id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	list, err := s.svc.Scheduler.ListByMovie(ctx, id)
	if err != nil {
		return nil, err
	}
	return showtimeList(list), nil
}

func (s *Server) showtimeByRoom(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("room_id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	list, err := s.svc.Scheduler.ListByRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	return showtimeList(list), nil
}

func (s *Server) showtimeByDate(ctx context.Context, c *call) ([]string, error) {
	prefix := c.args.String("date")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	list, err := s.svc.Scheduler.ListByDate(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return showtimeList(list), nil
}

// Rooms and seats.

func (s *Server) roomList(ctx context.Context, c *call) ([]string, error) {
	list, err := s.svc.Catalog.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := []string{protocol.Int(len(list))}
	for _, r := range list {
		out = append(out, protocol.Uint(r.ID), protocol.Int(r.SeatCount))
	}
	return out, nil
}

func (s *Server) roomGet(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	r, err := s.svc.Catalog.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	return []string{protocol.Uint(r.ID), protocol.Int(r.SeatCount)}, nil
}

func (s *Server) seatsByRoom(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("room_id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	seats, err := s.svc.Seats.ListByRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []string{protocol.Int(len(seats))}
	for _, st := range seats {
		out = append(out, protocol.Uint(st.ID), protocol.Uint(st.RoomID), protocol.Int(st.Number), protocol.Bool(st.Occupied()))
	}
	return out, nil
}

func (s *Server) roomCreate(ctx context.Context, c *call) ([]string, error) {
	n := c.args.Int("seat_count")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	r, err := s.svc.Catalog.CreateRoom(ctx, n)
	if err != nil {
		return nil, err
	}
	return []string{protocol.Uint(r.ID)}, nil
}

// roomUpdate resizes a room and answers the room.
func (s *Server) roomUpdate(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("id")
	n := c.args.Int("seat_count")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	r, err := s.svc.Catalog.UpdateRoom(ctx, id, n)
	if err != nil {
		return nil, err
	}
	return []string{protocol.Uint(r.ID), protocol.Int(r.SeatCount)}, nil
}

func (s *Server) roomDelete(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	return nil, s.svc.Catalog.DeleteRoom(ctx, id)
}

func (s *Server) roomFreeSeats(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("room_id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	n, err := s.svc.Seats.CountFree(ctx, id)
	if err != nil {
		return nil, err
	}
	return []string{protocol.Int(n)}, nil
}

// Tickets and sales.

func (s *Server) ticketCreate(ctx context.Context, c *call) ([]string, error) {
	showtimeID := c.args.Uint("showtime_id")
	seatID := c.args.Uint("seat_id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	rc, err := s.svc.Sales.PurchaseOne(ctx, c.identity().UserID, showtimeID, seatID)
	if err != nil {
		return nil, err
	}
	return []string{protocol.Uint(rc.Tickets[0].ID), protocol.Uint(rc.Sale.ID)}, nil
}

func (s *Server) ticketAvailability(ctx context.Context, c *call) ([]string, error) {
	showtimeID := c.args.Uint("showtime_id")
	seatID := c.args.Uint("seat_id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	ok, err := s.svc.Sales.TicketAvailability(ctx, showtimeID, seatID)
	if err != nil {
		return nil, err
	}
	return []string{protocol.Bool(ok)}, nil
}

func (s *Server) saleCreate(ctx context.Context, c *call) ([]string, error) {
	n := c.args.Int("count")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	if n <= 0 || n > maxSaleItems {
		return nil, &service.ValidationError{Problems: []string{fmt.Sprintf("ticket count must be between 1 and %d", maxSaleItems)}}
	}
	items := make([]model.SaleItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, model.SaleItem{
			ShowtimeID: c.args.Uint(fmt.Sprintf("showtime_id[%d]", i)),
			SeatID:     c.args.Uint(fmt.Sprintf("seat_id[%d]", i)),
		})
	}
	discount := c.args.Float("discount")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	rc, err := s.svc.Sales.Purchase(ctx, c.identity().UserID, items, discount)
	if err != nil {
		return nil, err
	}
	return []string{protocol.Uint(rc.Sale.ID)}, nil
}

// saleListByUser lists the caller's sales.  Admins may name another user.
func (s *Server) saleListByUser(ctx context.Context, c *call) ([]string, error) {
	me := c.identity()
	userID := me.UserID
	if c.args.Remaining() > 0 {
		if other := c.args.Uint("user_id"); other != 0 && other != userID {
			if !me.IsAdmin() {
				return nil, fmt.Errorf("%w: only admins may list other users' sales", service.ErrUnauthorized)
			}
			userID = other
		}
		if err := badArgs(c.args); err != nil {
			return nil, err
		}
	}
	list, err := s.svc.Sales.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []string{protocol.Int(len(list))}
	for _, sale := range list {
		out = append(out, protocol.Uint(sale.ID), protocol.Time(sale.SoldAt), protocol.Money(sale.TotalCents))
	}
	return out, nil
}

func (s *Server) saleGet(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	sale, err := s.svc.Sales.Get(ctx, c.identity(), id)
	if err != nil {
		return nil, err
	}
	return []string{
		protocol.Uint(sale.ID), protocol.Uint(sale.UserID), protocol.Time(sale.SoldAt),
		protocol.Float(sale.DiscountPercent), protocol.Money(sale.TotalCents),
	}, nil
}

func (s *Server) saleGetTickets(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("sale_id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	tickets, err := s.svc.Sales.Tickets(ctx, c.identity(), id)
	if err != nil {
		return nil, err
	}
	out := []string{protocol.Int(len(tickets))}
	for _, t := range tickets {
		out = append(out, protocol.Uint(t.ID), protocol.Uint(t.ShowtimeID), protocol.Uint(t.SeatID), protocol.Money(t.PriceCents))
	}
	return out, nil
}

func (s *Server) saleCancel(ctx context.Context, c *call) ([]string, error) {
	id := c.args.Uint("id")
	if err := badArgs(c.args); err != nil {
		return nil, err
	}
	return nil, s.svc.Sales.Cancel(ctx, c.identity(), id)
}
