package util

import (
	"sync"
)

// Latest is a last-value cache. Writers never block and readers only
// ever see the newest value; intermediate values are overwritten.
type Latest[T any] struct {
	mu      sync.Mutex
	value   T
	set     bool
	updated chan struct{}
}

func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{
		updated: make(chan struct{}, 1),
	}
}

// Store replaces the cached value and flags it as updated.
func (l *Latest[T]) Store(v T) {
	l.mu.Lock()
	l.value = v
	l.set = true
	l.mu.Unlock()

	select {
	case l.updated <- struct{}{}:
	default:
		// an update is already flagged
	}
}

// Load returns the cached value and whether anything was ever stored.
func (l *Latest[T]) Load() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.set
}

// Updated is signalled once after one or more calls to Store.
func (l *Latest[T]) Updated() <-chan struct{} {
	return l.updated
}

// TryTake consumes a pending update flag without blocking. It returns the
// current value and true if an update was pending.
func (l *Latest[T]) TryTake() (T, bool) {
	select {
	case <-l.updated:
		v, _ := l.Load()
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// HasPending reports whether an update is waiting to be consumed.
func (l *Latest[T]) HasPending() bool {
	return len(l.updated) > 0
}
