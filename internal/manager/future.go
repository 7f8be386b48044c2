package manager

import (
	"context"
	"sync"
)

// Future is the pending result of an asynchronous operation.
//
// A Future resolves exactly once. Waiters may abandon a Future through their
// context without affecting the operation itself.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// resolvedFuture returns a Future that is already complete.
func resolvedFuture[T any](v T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(v, err)
	return f
}

// resolve completes the Future. Later calls are ignored.
func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the Future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the Future resolves or ctx ends.
// When ctx ends first, Wait returns ctx.Err(); the operation keeps running.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the Future resolves and returns its outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}
