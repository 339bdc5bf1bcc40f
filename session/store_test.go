package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestStoreCreateReplacesExisting(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk.Now)
	ctx := context.Background()

	first := store.Create(ctx, 42)
	if !store.SetState(ctx, 42, StateAuthenticated) {
		t.Fatal("SetState on existing session returned false")
	}
	store.SetAuth(42, AuthContext{Authenticated: true, CustomerID: 7})

	second := store.Create(ctx, 42)
	if second.ID == first.ID {
		t.Fatal("replacement session kept the old id")
	}
	if second.State != StateStarted {
		t.Fatalf("replacement state = %s, want STARTED", second.State)
	}
	if second.Auth.Authenticated {
		t.Fatal("replacement session kept the old auth context")
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d sessions, want 1", store.Len())
	}
}

func TestStoreGetRefreshesLastAccess(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk.Now)
	store.Create(context.Background(), 1)

	clk.Advance(10 * time.Minute)
	got, ok := store.Get(1)
	if !ok {
		t.Fatal("session missing")
	}
	if !got.LastAccessed.Equal(clk.Now()) {
		t.Fatalf("Get did not refresh: last access %v, now %v", got.LastAccessed, clk.Now())
	}
	if got.LastAccessed.Before(got.CreatedAt) {
		t.Fatal("LastAccessed before CreatedAt")
	}
}

func TestStoreIsActiveDoesNotRefresh(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk.Now)
	store.Create(context.Background(), 1)

	// Probing liveness repeatedly must not extend the session.
	for i := 0; i < 3; i++ {
		clk.Advance(10 * time.Minute)
		store.IsActive(1, 30*time.Minute)
	}
	clk.Advance(1 * time.Minute)
	if store.IsActive(1, 30*time.Minute) {
		t.Fatal("session still active 31m after last refresh")
	}
}

func TestStoreExpiryIsMonotonic(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk.Now)
	ctx := context.Background()
	store.Create(ctx, 5)

	clk.Advance(31 * time.Minute)
	if store.IsActive(5, 30*time.Minute) {
		t.Fatal("expired session reported active")
	}
	clk.Advance(time.Hour)
	if store.IsActive(5, 30*time.Minute) {
		t.Fatal("expired session resurrected without Create")
	}

	store.Create(ctx, 5)
	if !store.IsActive(5, 30*time.Minute) {
		t.Fatal("fresh session reported inactive")
	}
}

func TestStoreInvalidateIdempotent(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk.Now)
	ctx := context.Background()
	store.Create(ctx, 9)

	store.Invalidate(ctx, 9)
	if _, ok := store.Peek(9); ok {
		t.Fatal("session survived invalidation")
	}
	// Second call must be a silent no-op.
	store.Invalidate(ctx, 9)
}

func TestStoreSetStateOnMissingSession(t *testing.T) {
	store := NewStore(newFakeClock().Now)
	if store.SetState(context.Background(), 123, StateAuthenticated) {
		t.Fatal("SetState reported success for a missing session")
	}
	if store.SetAuth(123, AuthContext{Authenticated: true}) {
		t.Fatal("SetAuth reported success for a missing session")
	}
}

func TestStoreSweepEvictsOnlyIdle(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk.Now)
	ctx := context.Background()

	store.Create(ctx, 1)
	store.Create(ctx, 2)

	clk.Advance(20 * time.Minute)
	store.Get(2) // keep actor 2 fresh
	clk.Advance(15 * time.Minute)

	evicted := store.Sweep(30 * time.Minute)
	if evicted != 1 {
		t.Fatalf("evicted %d sessions, want 1", evicted)
	}
	if _, ok := store.Peek(1); ok {
		t.Fatal("idle session survived sweep")
	}
	if _, ok := store.Peek(2); !ok {
		t.Fatal("fresh session was swept")
	}
}

func TestStoreConcurrentActorsIsolated(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for actor := ActorID(0); actor < 64; actor++ {
		wg.Add(1)
		go func(a ActorID) {
			defer wg.Done()
			store.Create(ctx, a)
			for i := 0; i < 50; i++ {
				store.Get(a)
				store.SetState(ctx, a, StateAuthenticated)
				store.IsActive(a, time.Minute)
			}
		}(actor)
	}
	wg.Wait()

	if store.Len() != 64 {
		t.Fatalf("store has %d sessions, want 64", store.Len())
	}
}
