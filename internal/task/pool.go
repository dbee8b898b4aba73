// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package task provides the shared priority task pool driving tile
// evaluation.
//
// Tasks are plain funcs scheduled at Normal or High priority. High priority
// is reserved for continuations that unblock downstream work, such as
// inserting a tile whose remote fetch just completed. A task must never
// block on an unresolved dependency; it registers a continuation against
// the dependency's future instead.
package task

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/tessell-ml/tessell/internal/future"
)

// Priority selects the task queue.
type Priority int

const (
	// Normal priority is the default for per-tile computation tasks.
	Normal Priority = iota
	// High priority runs before any queued normal-priority work. Used for
	// completion continuations.
	High
)

// Config controls pool behavior.
type Config struct {
	Workers int // Number of worker goroutines.
}

// DefaultConfig returns a pool configuration sized to the CPU count.
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}

// Pool is a priority task pool. Once spawned, a task always runs to
// completion; there is no cancellation.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	high   []func()
	normal []func()
	closed bool

	active atomic.Int64 // queued + running tasks
	wg     sync.WaitGroup
}

// NewPool creates a pool and starts its workers.
func NewPool(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	return p
}

// Submit schedules fn at the given priority. Submitting to a closed pool
// panics.
func (p *Pool) Submit(pri Priority, fn func()) {
	p.active.Add(1)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.active.Add(-1)
		panic("task: submit on closed pool")
	}
	if pri == High {
		p.high = append(p.high, fn)
	} else {
		p.normal = append(p.normal, fn)
	}
	p.mu.Unlock()
	p.cond.Signal()
}

// Active returns the number of tasks queued or running. A pool is quiescent
// when Active reports zero.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Close drains queued tasks, stops the workers, and waits for them to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.high) == 0 && len(p.normal) == 0 && !p.closed {
			p.cond.Wait()
		}
		var fn func()
		switch {
		case len(p.high) > 0:
			fn = p.high[0]
			p.high = p.high[1:]
		case len(p.normal) > 0:
			fn = p.normal[0]
			p.normal = p.normal[1:]
		default:
			// Closed and drained.
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		fn()
		p.active.Add(-1)
	}
}

// Spawn schedules fn and returns a future resolved with its result. Task
// failures are recorded on the future, never raised at the spawn site.
func Spawn[T any](p *Pool, pri Priority, fn func() (T, error)) *future.Future[T] {
	f := future.New[T]()
	p.Submit(pri, func() {
		v, err := fn()
		if err != nil {
			f.SetErr(err)
			return
		}
		f.Set(v)
	})
	return f
}

// Then schedules fn once arg resolves, at the given priority, and returns a
// future resolved with fn's result. An error on arg propagates to the
// returned future without running fn.
func Then[A, T any](p *Pool, pri Priority, arg *future.Future[A], fn func(A) (T, error)) *future.Future[T] {
	f := future.New[T]()
	arg.OnReady(func(a *future.Future[A]) {
		p.Submit(pri, func() {
			v, err := a.Value()
			if err != nil {
				f.SetErr(err)
				return
			}
			out, err := fn(v)
			if err != nil {
				f.SetErr(err)
				return
			}
			f.Set(out)
		})
	})
	return f
}

// Then2 schedules fn once both arguments resolve, at the given priority.
// The first operand error observed propagates to the returned future.
func Then2[A, B, T any](p *Pool, pri Priority, a *future.Future[A], b *future.Future[B], fn func(A, B) (T, error)) *future.Future[T] {
	f := future.New[T]()
	var remaining atomic.Int64
	remaining.Store(2)
	fire := func() {
		if remaining.Add(-1) != 0 {
			return
		}
		p.Submit(pri, func() {
			av, err := a.Value()
			if err != nil {
				f.SetErr(err)
				return
			}
			bv, err := b.Value()
			if err != nil {
				f.SetErr(err)
				return
			}
			out, err := fn(av, bv)
			if err != nil {
				f.SetErr(err)
				return
			}
			f.Set(out)
		})
	}
	a.OnReady(func(*future.Future[A]) { fire() })
	b.OnReady(func(*future.Future[B]) { fire() })
	return f
}
