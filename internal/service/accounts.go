package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/session"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// Accounts registers and authenticates users.
type Accounts struct {
	users *repository.UserRepo
	guard *session.LoginGuard
	cost  int
	log   *zap.Logger
}

// NewAccounts returns an account service hashing with bcrypt cost.  guard
// may be nil to disable the failed-login limit.
func NewAccounts(r Repos, guard *session.LoginGuard, cost int, log *zap.Logger) *Accounts {
	if log == nil {
		log = zap.NewNop()
	}
	return &Accounts{users: r.Users, guard: guard, cost: cost, log: log}
}

// Register creates a customer account.
func (a *Accounts) Register(ctx context.Context, name, email, phone, password string) (*model.User, error) {
	return a.create(ctx, name, email, phone, password, model.RoleCustomer)
}

func (a *Accounts) create(ctx context.Context, name, email, phone, password string, role model.Role) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	var p problems
	if name == "" {
		p.addf("name is required")
	}
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		p.addf("a valid email is required")
	}
	if len(password) < utils.MinPasswordLen {
		p.addf("password must be at least %d characters", utils.MinPasswordLen)
	}
	if err := p.err(); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password, a.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", ErrStorage, err)
	}
	u := &model.User{Name: name, Email: email, Phone: strings.TrimSpace(phone), PasswordHash: hash, Role: role}
	if err := a.users.Create(ctx, u); err != nil {
		return nil, classify(err)
	}
	a.log.Info("user registered", zap.Uint64("user_id", u.ID), zap.String("role", string(role)))
	return u, nil
}

// Authenticate checks the credentials and returns the user.  After too many
// failures for one email further attempts are refused until the lockout
// window passes.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	if !a.guard.Allowed(ctx, email) {
		return nil, fmt.Errorf("%w: too many failed login attempts, try again later", ErrUnauthorized)
	}
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, classify(err)
	}
	if u == nil || !utils.VerifyPassword(u.PasswordHash, password) {
		a.guard.Failed(ctx, email)
		a.log.Info("login failed", zap.String("email", strings.ToLower(strings.TrimSpace(email))))
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	a.guard.Reset(ctx, email)
	return u, nil
}

// EnsureAdmin creates the admin account unless a user with that email
// exists already.
func (a *Accounts) EnsureAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if err == nil {
		if u.Role != model.RoleAdmin {
			a.log.Warn("admin email belongs to a non-admin account", zap.Uint64("user_id", u.ID))
		}
		return u, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, classify(err)
	}
	return a.create(ctx, name, email, "", password, model.RoleAdmin)
}

func (a *Accounts) GetUser(ctx context.Context, id uint64) (*model.User, error) {
	u, err := a.users.GetByID(ctx, id)
	return u, classify(err)
}
