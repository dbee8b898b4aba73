// Package future provides single-assignment asynchronous result handles.
//
// A Future[V] is set exactly once, with either a value or an error, and
// supports a non-blocking readiness probe, blocking retrieval, and
// completion-triggered continuation chaining. Futures are the only way
// results move between tasks in the evaluation pipeline: a task that needs
// an unresolved value registers a continuation instead of blocking.
package future

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Future is a single-assignment handle to a value of type V or an error.
// The zero value is not usable; create futures with New, Ready, or Faulted.
type Future[V any] struct {
	mu        sync.Mutex
	done      chan struct{}
	val       V
	err       error
	set       bool
	callbacks []func(*Future[V])
}

// New creates an unresolved future.
func New[V any]() *Future[V] {
	return &Future[V]{done: make(chan struct{})}
}

// Ready creates a future already resolved to v.
func Ready[V any](v V) *Future[V] {
	f := New[V]()
	f.Set(v)
	return f
}

// Faulted creates a future already resolved to an error.
func Faulted[V any](err error) *Future[V] {
	f := New[V]()
	f.SetErr(err)
	return f
}

// Set resolves the future to v. Resolving a future twice is a programming
// error and panics.
func (f *Future[V]) Set(v V) {
	f.mu.Lock()
	if f.set {
		f.mu.Unlock()
		panic(errors.New("future: double assignment"))
	}
	f.val = v
	f.set = true
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(f)
	}
}

// SetErr resolves the future to an error.
func (f *Future[V]) SetErr(err error) {
	f.mu.Lock()
	if f.set {
		f.mu.Unlock()
		panic(errors.New("future: double assignment"))
	}
	f.err = err
	f.set = true
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(f)
	}
}

// Probe reports whether the future has been resolved. It never blocks.
func (f *Future[V]) Probe() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get blocks until the future resolves or the context is done, then returns
// the value or error it was resolved with.
func (f *Future[V]) Get(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Value returns the resolved value and error. It panics when called on an
// unresolved future.
func (f *Future[V]) Value() (V, error) {
	if !f.Probe() {
		panic(errors.New("future: Value called before resolution"))
	}
	return f.val, f.err
}

// OnReady registers fn to run once the future resolves. If the future is
// already resolved, fn runs immediately in the calling goroutine; otherwise
// it runs in the goroutine that resolves the future. Continuations must not
// block.
func (f *Future[V]) OnReady(fn func(*Future[V])) {
	f.mu.Lock()
	if !f.set {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn(f)
}

// Map derives a future resolved with fn applied to f's value. fn runs as an
// inline continuation, so it must be cheap and must not block; errors on f
// propagate without running fn.
func Map[A, B any](f *Future[A], fn func(A) (B, error)) *Future[B] {
	out := New[B]()
	f.OnReady(func(g *Future[A]) {
		v, err := g.Value()
		if err != nil {
			out.SetErr(err)
			return
		}
		b, err := fn(v)
		if err != nil {
			out.SetErr(err)
			return
		}
		out.Set(b)
	})
	return out
}
