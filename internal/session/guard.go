package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginGuard counts failed logins per email and refuses further attempts
// once the limit is reached, until the lockout window passes.  Counters
// live in Redis when a client is given, otherwise in process.  Redis
// errors never block a login.
type LoginGuard struct {
	rdb    *redis.Client
	max    int
	window time.Duration
	now    func() time.Time

	mu  sync.Mutex
	mem map[string]attempts
}

type attempts struct {
	n     int
	until time.Time
}

// NewLoginGuard builds a guard.  max <= 0 disables it.
func NewLoginGuard(rdb *redis.Client, max int, window time.Duration) *LoginGuard {
	return &LoginGuard{rdb: rdb, max: max, window: window, now: time.Now, mem: make(map[string]attempts)}
}

func guardKey(email string) string {
	return "cinema:login_fail:" + strings.ToLower(strings.TrimSpace(email))
}

// Allowed reports whether another attempt for email may proceed.
func (g *LoginGuard) Allowed(ctx context.Context, email string) bool {
	if g == nil || g.max <= 0 {
		return true
	}
	key := guardKey(email)
	if g.rdb != nil {
		n, err := g.rdb.Get(ctx, key).Int()
		if err != nil {
			return true
		}
		return n < g.max
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.mem[key]
	if !ok || g.now().After(a.until) {
		return true
	}
	return a.n < g.max
}

// Failed records a failed attempt for email.
func (g *LoginGuard) Failed(ctx context.Context, email string) {
	if g == nil || g.max <= 0 {
		return
	}
	key := guardKey(email)
	if g.rdb != nil {
		_, _ = g.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Incr(ctx, key)
			p.Expire(ctx, key, g.window)
			return nil
		})
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	a := g.mem[key]
	if now.After(a.until) {
		a = attempts{}
	}
	a.n++
	a.until = now.Add(g.window)
	g.mem[key] = a
}

// Reset clears the counter after a successful login.
func (g *LoginGuard) Reset(ctx context.Context, email string) {
	if g == nil || g.max <= 0 {
		return
	}
	key := guardKey(email)
	if g.rdb != nil {
		_ = g.rdb.Del(ctx, key).Err()
		return
	}
	g.mu.Lock()
	delete(g.mem, key)
	g.mu.Unlock()
}
