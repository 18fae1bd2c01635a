// Package wire serves the booking core over TCP using the protocol
// package's line format.  Each connection runs in its own goroutine and
// owns its session; nothing about the caller is shared between
// connections.
package wire

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticketing/internal/metrics"
	"github.com/iliyamo/cinema-ticketing/internal/protocol"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/session"
)

// Services are the operations reachable over the wire.
type Services struct {
	Accounts  *service.Accounts
	Catalog   *service.Catalog
	Scheduler *service.Scheduler
	Sales     *service.Sales
	Seats     *service.SeatRegistry
}

// Server accepts connections and dispatches their requests.
type Server struct {
	svc     Services
	store   session.Store
	metrics *metrics.Metrics
	log     *zap.Logger
	routes  map[protocol.Op]route

	// IdleTimeout closes connections that send nothing for this long.
	IdleTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	closing  atomic.Bool
	nextID   atomic.Uint64
}

// New builds a server.  m may be nil.
func New(svc Services, store session.Store, m *metrics.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		svc:         svc,
		store:       store,
		metrics:     m,
		log:         log,
		IdleTimeout: 30 * time.Minute,
		conns:       make(map[net.Conn]struct{}),
	}
	s.routes = s.buildRoutes()
	return s
}

// ListenAndServe listens on addr and serves until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.  It returns nil after Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.log.Info("wire server listening", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(context.Background(), conn)
		}()
	}
}

// Shutdown stops accepting, closes open connections and waits for their
// goroutines, or for ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)
	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// track adds or removes c from the open set.  Adding fails once Shutdown
// has started; the check runs under mu so Shutdown either sees c or c sees
// closing.
func (s *Server) track(c net.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !add {
		delete(s.conns, c)
		return true
	}
	if s.closing.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

// connState is what one connection knows about its caller.
type connState struct {
	id  uint64
	sid string
	log *zap.Logger
}

// ServeConn handles one connection until it closes.  The session created
// by LOGIN on this connection is deleted when the connection ends.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	st := &connState{id: s.nextID.Add(1)}
	st.log = s.log.With(zap.Uint64("conn_id", st.id), zap.String("remote", conn.RemoteAddr().String()))
	if !s.track(conn, true) {
		_ = conn.Close()
		return
	}
	s.metrics.ConnOpened()
	st.log.Debug("connection opened")
	defer func() {
		if st.sid != "" {
			_ = s.store.Delete(context.WithoutCancel(ctx), st.sid)
		}
		s.track(conn, false)
		s.metrics.ConnClosed()
		_ = conn.Close()
		st.log.Debug("connection closed")
	}()

	r := protocol.NewReader(conn)
	for {
		if s.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))
		}
		req, err := r.Read()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				if !s.write(conn, st, protocol.Error("ValidationError", err.Error())) {
					return
				}
				continue
			}
			if !errors.Is(err, io.EOF) && !s.closing.Load() {
				st.log.Debug("read failed", zap.Error(err))
			}
			return
		}
		resp := s.dispatch(ctx, st, req)
		if !s.write(conn, st, resp) {
			return
		}
	}
}

func (s *Server) write(conn net.Conn, st *connState, m protocol.Message) bool {
	if _, err := conn.Write(m.Encode()); err != nil {
		st.log.Debug("write failed", zap.Error(err))
		return false
	}
	return true
}
