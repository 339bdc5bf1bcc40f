package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/logibot/core/logger"
	"github.com/m3rciful/logibot/session"
	"github.com/m3rciful/logibot/storage"
)

var (
	// ErrUnknownAdmin means no administrator with the id is registered.
	ErrUnknownAdmin = errors.New("auth: unknown admin")
)

// AdminSource is the subset of the admin repository the gate needs.
type AdminSource interface {
	GetByID(ctx context.Context, id int) (storage.Admin, error)
	Exists(ctx context.Context, id int) (bool, error)
}

// AdminGate tracks which actors are signed in as administrators.
// Admin access is a separate grant on top of the customer session and
// does not touch the session store.
type AdminGate struct {
	admins AdminSource
	hasher *Hasher

	mu     sync.Mutex
	active map[session.ActorID]struct{}
}

// NewAdminGate builds the admin access gate.
func NewAdminGate(admins AdminSource, hasher *Hasher) *AdminGate {
	return &AdminGate{
		admins: admins,
		hasher: hasher,
		active: make(map[session.ActorID]struct{}),
	}
}

// Exists reports whether an admin with the given id is registered.
func (g *AdminGate) Exists(ctx context.Context, id int) (bool, error) {
	return g.admins.Exists(ctx, id)
}

// Authenticate checks the admin credentials and grants the actor admin
// access on success.
func (g *AdminGate) Authenticate(ctx context.Context, actor session.ActorID, id int, password string) error {
	admin, err := g.admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUnknownAdmin
		}
		return fmt.Errorf("admin authenticate: %w", err)
	}

	if !g.hasher.Verify(password, admin.PasswordHash) {
		logger.Warn(ctx, "service.admins", "admin.auth.rejected",
			slog.Int64("chat_id", int64(actor)),
			slog.Int("admin_id", id),
		)
		return ErrBadPassword
	}

	g.mu.Lock()
	g.active[actor] = struct{}{}
	g.mu.Unlock()

	logger.Info(ctx, "service.admins", "admin.auth.accepted",
		slog.Int64("chat_id", int64(actor)),
		slog.Int("admin_id", id),
	)
	return nil
}

// IsAdmin reports whether the actor holds an admin grant.
func (g *AdminGate) IsAdmin(actor session.ActorID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[actor]
	return ok
}

// Revoke drops the actor's admin grant; the bool reports whether one existed.
func (g *AdminGate) Revoke(actor session.ActorID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[actor]
	delete(g.active, actor)
	return ok
}
