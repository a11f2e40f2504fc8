package alerts

import (
	"fmt"
	"sync"
)

// keyedMutex serializes alert creation per (carID, alertType) pair so
// the dedup read-then-create sequence cannot race with itself inside
// one process. Entries are reference counted and removed when idle.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

func (k *keyedMutex) lock(carID uint, alertType string) func() {
	key := fmt.Sprintf("%d:%s", carID, alertType)

	k.mu.Lock()
	entry, exists := k.locks[key]

	if !exists {
		entry = &keyLock{}
		k.locks[key] = entry
	}

	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--

		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
