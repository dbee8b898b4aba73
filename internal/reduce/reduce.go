// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package reduce folds an open-ended stream of operands, or operand pairs,
// into one asynchronous result.
//
// Operands are added one at a time, as values or as unresolved futures,
// until Submit closes the stream. Submit builds a binary fold tree over the
// operands and returns a single result future that resolves only after
// every operand has arrived and the whole tree has completed; no polling is
// required. The tree pairs adjacent operands left to right, bottom up, so
// its depth is logarithmic in the operand count. The combine function must
// be associative; if it is also commutative the result is independent of
// operand arrival order, otherwise it depends on this pairing.
package reduce

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/tessell-ml/tessell/internal/future"
	"github.com/tessell-ml/tessell/internal/task"
)

// Op folds operands of type A into an accumulator of type R.
type Op[A, R any] interface {
	// Identity returns a fresh identity accumulator.
	Identity() R
	// Reduce folds one operand into the accumulator and returns it.
	Reduce(acc R, arg A) R
	// Combine merges two partial accumulators. It must be associative.
	Combine(a, b R) R
}

// PairOp folds operand pairs, typically by accumulating their product.
type PairOp[L, R, Res any] interface {
	Identity() Res
	// ReducePair folds one operand pair into the accumulator.
	ReducePair(acc Res, left L, right R) Res
	Combine(a, b Res) Res
}

// Task accumulates single operands. Create with NewTask, feed with Add or
// AddFuture, close with exactly one Submit.
type Task[A, R any] struct {
	pool *task.Pool
	op   Op[A, R]

	mu        sync.Mutex
	leaves    []*future.Future[A]
	submitted bool
}

// NewTask creates a reduction over op scheduling its fold on pool.
func NewTask[A, R any](pool *task.Pool, op Op[A, R]) *Task[A, R] {
	return &Task[A, R]{pool: pool, op: op}
}

// Add appends an already-available operand.
func (t *Task[A, R]) Add(v A) {
	t.AddFuture(future.Ready(v))
}

// AddFuture appends an operand that may not have resolved yet. Adding
// after Submit is a programming error.
func (t *Task[A, R]) AddFuture(f *future.Future[A]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.submitted {
		panic(errors.New("reduce: add after submit"))
	}
	t.leaves = append(t.leaves, f)
}

// Submit closes the operand stream and returns the result future. The
// future resolves once every operand has arrived and the fold completes;
// it reports not-ready at every point before then.
func (t *Task[A, R]) Submit() *future.Future[R] {
	t.mu.Lock()
	if t.submitted {
		panic(errors.New("reduce: submitted twice"))
	}
	t.submitted = true
	leaves := t.leaves
	t.leaves = nil
	t.mu.Unlock()

	if len(leaves) == 0 {
		return future.Ready(t.op.Identity())
	}
	partials := make([]*future.Future[R], len(leaves))
	for i, leaf := range leaves {
		partials[i] = task.Then(t.pool, task.Normal, leaf, func(a A) (R, error) {
			return t.op.Reduce(t.op.Identity(), a), nil
		})
	}
	return foldTree(t.pool, partials, t.op.Combine)
}

// PairTask accumulates operand pairs. Same lifecycle as Task.
type PairTask[L, R, Res any] struct {
	pool *task.Pool
	op   PairOp[L, R, Res]

	mu        sync.Mutex
	leaves    []*future.Future[Res]
	submitted bool
}

// NewPairTask creates a pair reduction over op scheduling its fold on pool.
func NewPairTask[L, R, Res any](pool *task.Pool, op PairOp[L, R, Res]) *PairTask[L, R, Res] {
	return &PairTask[L, R, Res]{pool: pool, op: op}
}

// Add appends an already-available operand pair.
func (t *PairTask[L, R, Res]) Add(left L, right R) {
	t.AddFutures(future.Ready(left), future.Ready(right))
}

// AddFutures appends an operand pair, either side of which may not have
// resolved yet. Adding after Submit is a programming error.
func (t *PairTask[L, R, Res]) AddFutures(left *future.Future[L], right *future.Future[R]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.submitted {
		panic(errors.New("reduce: add after submit"))
	}
	leaf := task.Then2(t.pool, task.Normal, left, right, func(l L, r R) (Res, error) {
		return t.op.ReducePair(t.op.Identity(), l, r), nil
	})
	t.leaves = append(t.leaves, leaf)
}

// Submit closes the pair stream and returns the result future.
func (t *PairTask[L, R, Res]) Submit() *future.Future[Res] {
	t.mu.Lock()
	if t.submitted {
		panic(errors.New("reduce: submitted twice"))
	}
	t.submitted = true
	leaves := t.leaves
	t.leaves = nil
	t.mu.Unlock()

	if len(leaves) == 0 {
		return future.Ready(t.op.Identity())
	}
	return foldTree(t.pool, leaves, t.op.Combine)
}

// foldTree merges partial results by pairing adjacent entries left to
// right until one remains. Each level completes independently, so the
// total depth is O(log n).
func foldTree[R any](pool *task.Pool, partials []*future.Future[R], combine func(R, R) R) *future.Future[R] {
	for len(partials) > 1 {
		next := make([]*future.Future[R], 0, (len(partials)+1)/2)
		for i := 0; i+1 < len(partials); i += 2 {
			next = append(next, task.Then2(pool, task.Normal, partials[i], partials[i+1],
				func(a, b R) (R, error) { return combine(a, b), nil }))
		}
		if len(partials)%2 == 1 {
			next = append(next, partials[len(partials)-1])
		}
		partials = next
	}
	return partials[0]
}
