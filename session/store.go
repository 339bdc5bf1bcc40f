package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/logibot/core/logger"
)

const shardCount = 16

type shard struct {
	mu       sync.RWMutex
	sessions map[ActorID]*Session
}

// Store keeps per-actor sessions in sharded in-memory maps.
// Mutations of one actor's session are atomic under its shard lock;
// actors on different shards never contend.
type Store struct {
	shards [shardCount]*shard
	now    Clock
}

// NewStore builds an empty store. A nil clock defaults to time.Now.
func NewStore(now Clock) *Store {
	if now == nil {
		now = time.Now
	}
	s := &Store{now: now}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[ActorID]*Session)}
	}
	return s
}

func (s *Store) shardFor(actor ActorID) *shard {
	return s.shards[uint64(actor)%shardCount]
}

// Create makes a fresh session for the actor, replacing any prior one.
func (s *Store) Create(ctx context.Context, actor ActorID) Session {
	now := s.now()
	sess := &Session{
		ID:           uuid.New(),
		Actor:        actor,
		CreatedAt:    now,
		LastAccessed: now,
		State:        StateStarted,
	}

	sh := s.shardFor(actor)
	sh.mu.Lock()
	sh.sessions[actor] = sess
	sh.mu.Unlock()

	logger.Debug(ctx, "session", "session.created",
		slog.String("session_id", sess.ID.String()),
		slog.Int64("chat_id", int64(actor)),
		slog.String("session_state", sess.State.String()),
	)
	return *sess
}

// Get returns the actor's session and refreshes its last-access time.
// Any interaction keeps a session alive, not just explicit probes.
func (s *Store) Get(actor ActorID) (Session, bool) {
	sh := s.shardFor(actor)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[actor]
	if !ok {
		return Session{}, false
	}
	sess.LastAccessed = s.now()
	return *sess, true
}

// Peek returns the session without refreshing the last-access time.
func (s *Store) Peek(actor ActorID) (Session, bool) {
	sh := s.shardFor(actor)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	sess, ok := sh.sessions[actor]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Invalidate removes the session unconditionally; a second call is a no-op.
func (s *Store) Invalidate(ctx context.Context, actor ActorID) {
	sh := s.shardFor(actor)
	sh.mu.Lock()
	sess, ok := sh.sessions[actor]
	if ok {
		delete(sh.sessions, actor)
	}
	sh.mu.Unlock()

	if ok {
		logger.Debug(ctx, "session", "session.invalidated",
			slog.String("session_id", sess.ID.String()),
			slog.Int64("chat_id", int64(actor)),
		)
	}
}

// IsActive reports whether the session exists and has not idled out.
// It deliberately does not refresh LastAccessed: a liveness probe must
// not itself extend the session, only Get does.
func (s *Store) IsActive(actor ActorID, idleTimeout time.Duration) bool {
	sh := s.shardFor(actor)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	sess, ok := sh.sessions[actor]
	if !ok {
		return false
	}
	return s.now().Sub(sess.LastAccessed) <= idleTimeout
}

// SetState updates the lifecycle state of an existing session and refreshes
// its last-access time. Missing sessions are reported via the bool result.
func (s *Store) SetState(ctx context.Context, actor ActorID, state State) bool {
	sh := s.shardFor(actor)
	sh.mu.Lock()
	sess, ok := sh.sessions[actor]
	if ok {
		sess.State = state
		sess.LastAccessed = s.now()
	}
	sh.mu.Unlock()

	if ok {
		logger.Debug(ctx, "session", "session.state",
			slog.Int64("chat_id", int64(actor)),
			slog.String("session_state", state.String()),
		)
	}
	return ok
}

// SetAuth attaches the customer identity to an existing session.
func (s *Store) SetAuth(actor ActorID, auth AuthContext) bool {
	sh := s.shardFor(actor)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[actor]
	if !ok {
		return false
	}
	sess.Auth = auth
	sess.LastAccessed = s.now()
	return true
}

// ClearAuth drops the customer identity from an existing session.
func (s *Store) ClearAuth(actor ActorID) bool {
	return s.SetAuth(actor, AuthContext{})
}

// Sweep removes every session idle longer than the timeout and returns
// the number of evicted sessions.
func (s *Store) Sweep(idleTimeout time.Duration) int {
	now := s.now()
	evicted := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for actor, sess := range sh.sessions {
			if now.Sub(sess.LastAccessed) > idleTimeout {
				delete(sh.sessions, actor)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

// Len reports the number of live sessions across all shards.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
