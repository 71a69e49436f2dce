package store

import "sync"

// keyLock is a one-slot semaphore shared by every caller of the same
// key. Goroutines blocked on the channel are woken in FIFO order, which
// gives the queue-of-continuations behavior the dispatch and trip
// services rely on.
type keyLock struct {
	ch      chan struct{}
	waiters int
}

type lockTable struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*keyLock)}
}

// WithLock runs fn while holding the named lock. Callers sharing a key
// serialize; callers on different keys proceed concurrently. Locks are
// not reentrant: fn must not call WithLock for the same key.
func (t *lockTable) WithLock(key string, fn func() error) error {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		t.locks[key] = l
	}
	l.waiters++
	t.mu.Unlock()

	l.ch <- struct{}{}
	defer func() {
		<-l.ch

		t.mu.Lock()
		l.waiters--
		if l.waiters == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}()

	return fn()
}

// DispatchLockKey serializes matching decisions for one trip.
func DispatchLockKey(tripID string) string {
	return "dispatch:" + tripID
}

// TripLockKey serializes lifecycle transitions for one trip.
func TripLockKey(tripID string) string {
	return "trip:" + tripID
}
