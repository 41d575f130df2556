package lock

import "sync"

// KeyedMutex serializes operations per string key. The aggregator locks
// on student+group, the resolver on group, the ledger on student.
// Mutex entries are never removed; the key space (students, groups) is
// bounded by the school's size.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex constructs an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *KeyedMutex) Lock(key string) {
	k.mutexFor(key).Lock()
}

// Unlock releases the mutex for key. Panics if Lock was never called
// for the key, matching sync.Mutex semantics.
func (k *KeyedMutex) Unlock(key string) {
	k.mutexFor(key).Unlock()
}

func (k *KeyedMutex) mutexFor(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
