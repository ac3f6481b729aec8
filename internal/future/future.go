// internal/future/future.go
package future

import (
	"errors"
	"sync"
)

// Future is a single-assignment result produced by another goroutine.
// The first Complete or Fail wins; later calls are ignored.
type Future[T any] struct {
	once sync.Once
	done chan struct{}

	mu        sync.Mutex
	resolved  bool
	val       T
	err       error
	callbacks []func(T, error)
}

// New returns an unresolved future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already resolved with v.
func Completed[T any](v T) *Future[T] {
	f := New[T]()
	f.Complete(v)
	return f
}

// Failed returns a future already resolved with err.
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	f.Fail(err)
	return f
}

// Complete resolves the future with a value.
// Returns false if it was already resolved.
func (f *Future[T]) Complete(v T) bool {
	return f.resolve(v, nil)
}

// Fail resolves the future with an error.
// Returns false if it was already resolved.
func (f *Future[T]) Fail(err error) bool {
	if err == nil {
		err = errors.New("future: failed with nil error")
	}
	var zero T
	return f.resolve(zero, err)
}

func (f *Future[T]) resolve(v T, err error) bool {
	won := false
	f.once.Do(func() {
		won = true

		f.mu.Lock()
		f.val = v
		f.err = err
		f.resolved = true
		cbs := f.callbacks
		f.callbacks = nil
		close(f.done)
		f.mu.Unlock()

		for _, cb := range cbs {
			cb(v, err)
		}
	})
	return won
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future has resolved.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the resolved value and error.
// It must only be called after Done is closed.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.val, f.err
}

// WhenComplete registers fn to run on resolution.
// If already resolved, fn runs immediately on the calling goroutine.
func (f *Future[T]) WhenComplete(fn func(T, error)) *Future[T] {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return f
	}
	v, err := f.val, f.err
	f.mu.Unlock()

	fn(v, err)
	return f
}
