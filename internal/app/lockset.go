package app

import (
	"sort"
	"sync"
)

// lockset hands out one mutex per key. The map guard is only held while
// looking an entry up or releasing it, so keys never wait on each other.
type lockset struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newLockset() *lockset {
	return &lockset{locks: make(map[string]*refLock)}
}

func (l *lockset) lock(key string) func() {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &refLock{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// lockAll takes several keys in sorted order to avoid lock-order inversions.
func (l *lockset) lockAll(keys ...string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	unlocks := make([]func(), 0, len(sorted))
	for i, k := range sorted {
		if i > 0 && sorted[i-1] == k {
			continue
		}
		unlocks = append(unlocks, l.lock(k))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

func (l *lockset) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
