package session

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex serializes work per key while keys stay independent.
// Entries are refcounted and removed once the last holder releases,
// so the map does not grow with the total number of actors seen.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

// NewKeyedMutex returns an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[int64]*lockEntry)}
}

// Acquire blocks until the key's slot is free and returns its release func.
// The release func must be called exactly once.
func (k *KeyedMutex) Acquire(key int64) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.entries, key)
			}
			k.mu.Unlock()
		})
	}
}
