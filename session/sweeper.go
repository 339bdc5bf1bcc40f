package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/logibot/core/logger"
)

const (
	// DefaultIdleTimeout is how long a session may stay untouched before eviction.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultSweepInterval is how often the sweeper scans the store.
	DefaultSweepInterval = 5 * time.Minute
)

// Sweeper periodically evicts idle sessions from a Store.
// Eviction here is advisory cleanup: IsActive re-checks the same predicate
// on every access, so a session expires correctly even between sweeps.
type Sweeper struct {
	store       *Store
	idleTimeout time.Duration
	interval    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper builds a sweeper; non-positive durations fall back to defaults.
func NewSweeper(store *Store, idleTimeout, interval time.Duration) *Sweeper {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:       store,
		idleTimeout: idleTimeout,
		interval:    interval,
	}
}

// Start launches the background sweep loop. It is a no-op when already running.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)

	logger.Info(ctx, "session", "sweeper.started",
		slog.Duration("interval", s.interval),
		slog.Duration("idle_timeout", s.idleTimeout),
	)
}

// Stop cancels the loop and waits for it to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "session", "sweeper.stopped",
				slog.Int("active", s.store.Len()),
			)
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	start := time.Now()
	evicted := s.store.Sweep(s.idleTimeout)
	if evicted == 0 {
		return
	}
	logger.Info(ctx, "session", "sweeper.evicted",
		slog.String("status", "expired"),
		slog.Int("evicted", evicted),
		slog.Int("active", s.store.Len()),
		slog.Duration("duration", logger.Took(start)),
	)
}
