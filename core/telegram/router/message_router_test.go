package router

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	tele "gopkg.in/telebot.v4"
)

// fakeCtx implements the parts of tele.Context the text route touches.
type fakeCtx struct {
	tele.Context

	text   string
	chat   *tele.Chat
	sender *tele.User
	store  map[string]any
}

func newFakeCtx(chat *tele.Chat, sender *tele.User, text string) *fakeCtx {
	return &fakeCtx{
		text:   text,
		chat:   chat,
		sender: sender,
		store:  make(map[string]any),
	}
}

func (f *fakeCtx) Text() string           { return f.text }
func (f *fakeCtx) Chat() *tele.Chat       { return f.chat }
func (f *fakeCtx) Sender() *tele.User     { return f.sender }
func (f *fakeCtx) Update() tele.Update    { return tele.Update{ID: 1} }
func (f *fakeCtx) Get(k string) any       { return f.store[k] }
func (f *fakeCtx) Set(k string, v any)    { f.store[k] = v }
func (f *fakeCtx) Send(any, ...any) error { return nil }

// recordLocker captures the keys handed to Acquire.
type recordLocker struct {
	mu   sync.Mutex
	keys []int64
}

func (r *recordLocker) Acquire(actorID int64) func() {
	r.mu.Lock()
	r.keys = append(r.keys, actorID)
	r.mu.Unlock()
	return func() {}
}

// keyedLock serializes per key, like the dispatcher's production locker.
type keyedLock struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (k *keyedLock) Acquire(actorID int64) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[int64]*sync.Mutex)
	}
	m, ok := k.locks[actorID]
	if !ok {
		m = &sync.Mutex{}
		k.locks[actorID] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// overlapDialog reports whether two interceptions ever ran concurrently.
type overlapDialog struct {
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (d *overlapDialog) Intercept(tele.Context) (string, bool, error) {
	if d.inFlight.Add(1) > 1 {
		d.overlap.Store(true)
	}
	runtime.Gosched()
	if d.inFlight.Add(-1) > 0 {
		d.overlap.Store(true)
	}
	return "dialog", true, nil
}

func TestDefaultActorKey(t *testing.T) {
	chat := &tele.Chat{ID: 100}
	sender := &tele.User{ID: 7}

	if got := DefaultActorKey(newFakeCtx(chat, sender, "x")); got != 100 {
		t.Fatalf("chat present: key = %d, want 100", got)
	}
	if got := DefaultActorKey(newFakeCtx(nil, sender, "x")); got != 7 {
		t.Fatalf("sender fallback: key = %d, want 7", got)
	}
	if got := DefaultActorKey(newFakeCtx(nil, nil, "x")); got != 0 {
		t.Fatalf("no ids: key = %d, want 0", got)
	}
}

func TestTextRouteLockKeyIsActorKey(t *testing.T) {
	lock := &recordLocker{}
	routes := TextRoutes(lock, &overlapDialog{}, nil, TextOptions{})
	handler := routes[0].Handler

	// Two senders in one chat must contend for the same slot.
	chat := &tele.Chat{ID: 100}
	for _, sender := range []int64{1, 2} {
		c := newFakeCtx(chat, &tele.User{ID: sender}, "hi")
		if err := handler(c); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	// No sender at all still acquires a slot.
	if err := handler(newFakeCtx(nil, nil, "hi")); err != nil {
		t.Fatalf("handler: %v", err)
	}

	want := []int64{100, 100, 0}
	if len(lock.keys) != len(want) {
		t.Fatalf("acquired keys %v, want %v", lock.keys, want)
	}
	for i, key := range want {
		if lock.keys[i] != key {
			t.Fatalf("acquired keys %v, want %v", lock.keys, want)
		}
	}
}

func TestTextRouteSerializesSendersOfOneChat(t *testing.T) {
	dialog := &overlapDialog{}
	routes := TextRoutes(&keyedLock{}, dialog, nil, TextOptions{})
	handler := routes[0].Handler

	chat := &tele.Chat{ID: 100}
	var wg sync.WaitGroup
	for sender := int64(1); sender <= 4; sender++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = handler(newFakeCtx(chat, &tele.User{ID: id}, "hi"))
			}
		}(sender)
	}
	wg.Wait()

	if dialog.overlap.Load() {
		t.Fatal("two senders of one chat were dispatched concurrently")
	}
}
