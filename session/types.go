package session

import (
	"time"

	"github.com/google/uuid"
)

// ActorID identifies a conversation participant. Telegram chat ids map onto it directly.
type ActorID int64

// State is the lifecycle state of a session.
type State uint8

const (
	// StateStarted marks a freshly created session before any authentication attempt.
	StateStarted State = iota
	// StateLoginInProgress marks a session whose actor is inside the login dialog.
	StateLoginInProgress
	// StateAuthenticated marks a session whose customer login succeeded.
	StateAuthenticated
	// StateUnauthenticated marks a session whose customer login failed or was reset.
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "STARTED"
	case StateLoginInProgress:
		return "LOGIN_IN_PROGRESS"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

// AuthContext carries the customer identity attached to a session.
// It lives and dies with the session and is never persisted.
type AuthContext struct {
	Authenticated bool
	CustomerID    int
}

// Session is the live interaction window of one actor.
// Invariant: LastAccessed >= CreatedAt.
type Session struct {
	ID           uuid.UUID
	Actor        ActorID
	CreatedAt    time.Time
	LastAccessed time.Time
	State        State
	Auth         AuthContext
}

// Clock supplies current time; swappable in tests.
type Clock func() time.Time
