// Package session tracks who is acting on a connection or request.  A
// session is created at login, refreshed by every authenticated call and
// destroyed at logout, disconnect or after the configured idle timeout.
// Sessions are never shared between connections.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ErrUnauthorized is returned when no valid session exists or its role is
// insufficient for the operation.
var ErrUnauthorized = errors.New("unauthorized")

// ErrExpired is returned by Store.Touch for sessions idle for too long.
var ErrExpired = fmt.Errorf("session expired: %w", ErrUnauthorized)

// ErrUnknown is returned by Store.Touch for ids it never issued.
var ErrUnknown = fmt.Errorf("unknown session: %w", ErrUnauthorized)

// Identity is the authenticated principal carried by a session.
type Identity struct {
	UserID uint64     `json:"user_id"`
	Role   model.Role `json:"role"`
	Name   string     `json:"name"`
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == model.RoleAdmin }

// Session is one authenticated conversation with a client.
type Session struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// CurrentUser returns the identity bound to s.  A nil session is
// anonymous.
func (s *Session) CurrentUser() (Identity, bool) {
	if s == nil || s.Identity.UserID == 0 {
		return Identity{}, false
	}
	return s.Identity, true
}

// RequireUser returns the identity or ErrUnauthorized for anonymous callers.
func (s *Session) RequireUser() (Identity, error) {
	id, ok := s.CurrentUser()
	if !ok {
		return Identity{}, fmt.Errorf("%w: login required", ErrUnauthorized)
	}
	return id, nil
}

// RequireRole fails with ErrUnauthorized unless the session belongs to a
// user holding role.  Admins satisfy every role.
func (s *Session) RequireRole(role model.Role) error {
	id, err := s.RequireUser()
	if err != nil {
		return err
	}
	if id.Role != role && !id.IsAdmin() {
		return fmt.Errorf("%w: %s role required", ErrUnauthorized, role)
	}
	return nil
}

// idleFor reports whether s has been inactive for longer than idle.
func (s *Session) idleFor(now time.Time, idle time.Duration) bool {
	return idle > 0 && now.Sub(s.LastSeen) > idle
}

// Store keeps sessions between calls.  Touch refreshes the idle timer and
// returns a copy of the session.
type Store interface {
	Create(ctx context.Context, id Identity) (*Session, error)
	Touch(ctx context.Context, sid string) (*Session, error)
	Delete(ctx context.Context, sid string) error
}
