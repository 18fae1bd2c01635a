package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process.  It is used when Redis is not
// configured and by tests.
type MemoryStore struct {
	idle time.Duration
	now  func() time.Time

	mu    sync.Mutex
	items map[string]*Session
}

// NewMemoryStore returns a store whose sessions expire after idle of
// inactivity.  A zero idle disables expiry.
func NewMemoryStore(idle time.Duration) *MemoryStore {
	return &MemoryStore{idle: idle, now: time.Now, items: make(map[string]*Session)}
}

// WithClock replaces the time source; used by tests.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Create(_ context.Context, id Identity) (*Session, error) {
	now := m.now()
	s := &Session{ID: uuid.NewString(), Identity: id, CreatedAt: now, LastSeen: now}
	m.mu.Lock()
	m.sweep(now)
	m.items[s.ID] = s
	m.mu.Unlock()
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Touch(_ context.Context, sid string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[sid]
	if !ok {
		return nil, ErrUnknown
	}
	now := m.now()
	if s.idleFor(now, m.idle) {
		delete(m.items, sid)
		return nil, ErrExpired
	}
	s.LastSeen = now
	cp := *s
	return &cp, nil
}

// sweep drops expired sessions so abandoned logins do not accumulate.
// Callers hold m.mu.
func (m *MemoryStore) sweep(now time.Time) {
	if m.idle <= 0 {
		return
	}
	for sid, s := range m.items {
		if s.idleFor(now, m.idle) {
			delete(m.items, sid)
		}
	}
}

func (m *MemoryStore) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	delete(m.items, sid)
	m.mu.Unlock()
	return nil
}

// Len returns the number of live and not yet collected sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
