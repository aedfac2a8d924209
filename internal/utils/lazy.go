package utils

import (
	"context"
	"sync"
)

// Lazy holds a value that is expensive to build. The loader runs at most once
// successfully for the lifetime of the Lazy; concurrent first callers wait on
// the same load and all observe the same value. A failed load is reported to
// everyone waiting on it and is not kept, so the next caller loads again.
//
// The state lock is never held while loading, so Peek and Loaded answer
// immediately even when a load is in flight.
type Lazy[T any] struct {
	mu       sync.Mutex
	load     func(ctx context.Context) (T, error)
	value    T
	done     bool
	inflight *lazyCall
	hits     int
	misses   int
}

type lazyCall struct {
	finished chan struct{}
	err      error
}

func NewLazy[T any](load func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{load: load}
}

// Get returns the value, loading it first if needed. A caller waiting on
// somebody else's load gives up when its own ctx is done.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	var zero T
	for {
		l.mu.Lock()
		if l.done {
			l.hits += 1
			value := l.value
			l.mu.Unlock()
			return value, nil
		}

		if call := l.inflight; call != nil {
			l.mu.Unlock()
			select {
			case <-call.finished:
				if call.err != nil {
					return zero, call.err
				}
				continue
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		l.misses += 1
		call := &lazyCall{finished: make(chan struct{})}
		l.inflight = call
		l.mu.Unlock()

		value, err := l.load(ctx)

		l.mu.Lock()
		l.inflight = nil
		if err == nil {
			l.value = value
			l.done = true
		}
		call.err = err
		l.mu.Unlock()
		close(call.finished)

		if err != nil {
			return zero, err
		}
		return value, nil
	}
}

// Peek returns the value only if it has already been loaded.
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.done
}

func (l *Lazy[T]) Loaded() bool {
	_, ok := l.Peek()
	return ok
}

// Loading reports whether a load is in flight.
func (l *Lazy[T]) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflight != nil
}

func (l *Lazy[T]) HitRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hits+l.misses > 0 {
		return float64(l.hits) / float64(l.hits+l.misses)
	}
	return 0.0
}
