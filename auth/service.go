package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/logibot/core/logger"
	"github.com/m3rciful/logibot/session"
	"github.com/m3rciful/logibot/storage"
)

var (
	// ErrUnknownEmail means no customer is registered with the email.
	ErrUnknownEmail = errors.New("auth: unknown email")
	// ErrBadPassword means the password did not match the stored hash.
	ErrBadPassword = errors.New("auth: bad password")
	// ErrNotAuthenticated means the actor's session carries no customer identity.
	ErrNotAuthenticated = errors.New("auth: not authenticated")
)

// CustomerSource is the subset of the customer repository auth needs.
type CustomerSource interface {
	GetByEmail(ctx context.Context, email string) (storage.Customer, error)
	GetByID(ctx context.Context, id int) (storage.Customer, error)
}

// Service binds customer credentials to session auth state.
type Service struct {
	sessions  *session.Store
	customers CustomerSource
	hasher    *Hasher
}

// NewService builds the customer authentication service.
func NewService(sessions *session.Store, customers CustomerSource, hasher *Hasher) *Service {
	return &Service{sessions: sessions, customers: customers, hasher: hasher}
}

// Authenticate checks the credentials and, on success, marks the actor's
// session authenticated and attaches the customer identity to it.
func (s *Service) Authenticate(ctx context.Context, actor session.ActorID, email, password string) (storage.Customer, error) {
	customer, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Customer{}, ErrUnknownEmail
		}
		return storage.Customer{}, fmt.Errorf("authenticate: %w", err)
	}

	if !s.hasher.Verify(password, customer.PasswordHash) {
		logger.Warn(ctx, "session", "auth.rejected",
			slog.Int64("chat_id", int64(actor)),
			slog.Int("customer_id", customer.ID),
		)
		return storage.Customer{}, ErrBadPassword
	}

	s.sessions.SetAuth(actor, session.AuthContext{Authenticated: true, CustomerID: customer.ID})
	s.sessions.SetState(ctx, actor, session.StateAuthenticated)

	logger.Info(ctx, "session", "auth.accepted",
		slog.Int64("chat_id", int64(actor)),
		slog.Int("customer_id", customer.ID),
	)
	return customer, nil
}

// IsAuthenticated reports whether the actor's session carries a customer
// identity. The probe refreshes the session like any other interaction.
func (s *Service) IsAuthenticated(actor session.ActorID) bool {
	sess, ok := s.sessions.Get(actor)
	return ok && sess.Auth.Authenticated
}

// Customer returns the authenticated customer behind the actor's session.
func (s *Service) Customer(ctx context.Context, actor session.ActorID) (storage.Customer, error) {
	sess, ok := s.sessions.Get(actor)
	if !ok || !sess.Auth.Authenticated {
		return storage.Customer{}, ErrNotAuthenticated
	}
	customer, err := s.customers.GetByID(ctx, sess.Auth.CustomerID)
	if err != nil {
		return storage.Customer{}, fmt.Errorf("authenticated customer: %w", err)
	}
	return customer, nil
}

// Logout clears the session's customer identity and returns the customer
// that was signed in, for the farewell message.
func (s *Service) Logout(ctx context.Context, actor session.ActorID) (storage.Customer, bool) {
	customer, err := s.Customer(ctx, actor)
	if err != nil {
		return storage.Customer{}, false
	}

	s.sessions.ClearAuth(actor)
	s.sessions.SetState(ctx, actor, session.StateUnauthenticated)

	logger.Info(ctx, "session", "auth.logout",
		slog.Int64("chat_id", int64(actor)),
		slog.Int("customer_id", customer.ID),
	)
	return customer, true
}
