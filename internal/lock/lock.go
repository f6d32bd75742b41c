// Package lock provides per-key mutual exclusion inside one process.
package lock

import "sync"

// Keyed hands out one mutex per key. Entries are reference counted and
// dropped when the last holder unlocks, so the map does not grow with the
// number of keys ever seen.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyed returns an empty Keyed lock set.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

// Lock blocks until key is free and returns the function that releases it.
func (k *Keyed) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
