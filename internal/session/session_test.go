package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestRoleGate(t *testing.T) {
	var anon *Session
	_, ok := anon.CurrentUser()
	assert.False(t, ok)
	assert.ErrorIs(t, anon.RequireRole(model.RoleCustomer), ErrUnauthorized)

	customer := &Session{Identity: Identity{UserID: 2, Role: model.RoleCustomer}}
	assert.NoError(t, customer.RequireRole(model.RoleCustomer))
	assert.ErrorIs(t, customer.RequireRole(model.RoleAdmin), ErrUnauthorized)

	admin := &Session{Identity: Identity{UserID: 1, Role: model.RoleAdmin}}
	assert.NoError(t, admin.RequireRole(model.RoleAdmin))
	assert.NoError(t, admin.RequireRole(model.RoleCustomer))
}

func TestMemoryStoreIdleExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(10 * time.Minute).WithClock(clock.now)

	s, err := store.Create(ctx, Identity{UserID: 7, Role: model.RoleCustomer, Name: "Ana"})
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)

	clock.t = clock.t.Add(9 * time.Minute)
	got, err := store.Touch(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Identity.UserID)

	// the previous touch reset the idle timer
	clock.t = clock.t.Add(9 * time.Minute)
	_, err = store.Touch(ctx, s.ID)
	require.NoError(t, err)

	clock.t = clock.t.Add(11 * time.Minute)
	_, err = store.Touch(ctx, s.ID)
	assert.ErrorIs(t, err, ErrExpired)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, store.Len())

	_, err = store.Touch(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestMemoryStoreCreateDropsExpired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(10 * time.Minute).WithClock(clock.now)

	old, err := store.Create(ctx, Identity{UserID: 1, Role: model.RoleCustomer})
	require.NoError(t, err)
	_, err = store.Create(ctx, Identity{UserID: 2, Role: model.RoleCustomer})
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	clock.t = clock.t.Add(11 * time.Minute)
	_, err = store.Create(ctx, Identity{UserID: 3, Role: model.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	_, err = store.Touch(ctx, old.ID)
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestMemoryStoreSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	a, err := store.Create(ctx, Identity{UserID: 1, Role: model.RoleAdmin})
	require.NoError(t, err)
	b, err := store.Create(ctx, Identity{UserID: 2, Role: model.RoleCustomer})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, store.Delete(ctx, a.ID))
	_, err = store.Touch(ctx, a.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
	got, err := store.Touch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Identity.UserID)
}

func TestLoginGuardInMemory(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	g := NewLoginGuard(nil, 2, 5*time.Minute)
	g.now = clock.now

	assert.True(t, g.Allowed(ctx, "a@x.io"))
	g.Failed(ctx, "a@x.io")
	g.Failed(ctx, " A@X.io")
	assert.False(t, g.Allowed(ctx, "a@x.io"))
	assert.True(t, g.Allowed(ctx, "b@x.io"))

	clock.t = clock.t.Add(6 * time.Minute)
	assert.True(t, g.Allowed(ctx, "a@x.io"))

	g.Failed(ctx, "a@x.io")
	g.Reset(ctx, "a@x.io")
	assert.True(t, g.Allowed(ctx, "a@x.io"))

	var disabled *LoginGuard
	assert.True(t, disabled.Allowed(ctx, "a@x.io"))
}
