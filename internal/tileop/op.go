// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tileop composes tile operators with lazy evaluation, optional
// result permutation, and consume-vs-copy selection.
//
// Operators state their capabilities explicitly: a fresh-storage Apply, a
// permuting ApplyPerm, and a Consume variant that may reuse the argument's
// storage, guarded by a static Consumable flag. The wrappers in this
// package are the only callers of the consuming variants and enforce the
// consumability contract: consumption requires a consumable operand and no
// requested permutation.
package tileop

import (
	"github.com/tessell-ml/tessell/internal/tile"
	"github.com/tessell-ml/tessell/internal/tiling"
)

// Unary is the capability contract for single-operand tile operators. The
// operator object is shared read-only across all tiles of one evaluator and
// must not be mutated after construction.
type Unary[T tile.Elem] interface {
	// Apply evaluates the operator into fresh storage.
	Apply(arg *tile.Tile[T]) *tile.Tile[T]
	// ApplyPerm evaluates the operator and permutes the result. The result
	// never aliases arg.
	ApplyPerm(arg *tile.Tile[T], perm tiling.Permutation) *tile.Tile[T]
	// Consume evaluates the operator, reusing arg's storage when the
	// operator is consumable; otherwise it behaves like Apply.
	Consume(arg *tile.Tile[T]) *tile.Tile[T]
	// Consumable reports whether Consume actually reuses storage.
	Consumable() bool
}

// Binary is the capability contract for two-operand tile operators. The
// ApplyZero variants handle a structurally-zero operand paired with a
// nonzero result; they are chosen at plan construction from the operand
// shapes, never probed at run time.
type Binary[T tile.Elem] interface {
	Apply(left, right *tile.Tile[T]) *tile.Tile[T]
	ApplyPerm(left, right *tile.Tile[T], perm tiling.Permutation) *tile.Tile[T]
	// ApplyZeroLeft evaluates with a structurally-zero left operand.
	ApplyZeroLeft(right *tile.Tile[T]) *tile.Tile[T]
	// ApplyZeroRight evaluates with a structurally-zero right operand.
	ApplyZeroRight(left *tile.Tile[T]) *tile.Tile[T]
	// ConsumeLeft evaluates reusing left's storage when possible.
	ConsumeLeft(left, right *tile.Tile[T]) *tile.Tile[T]
	// ConsumeRight evaluates reusing right's storage when possible.
	ConsumeRight(left, right *tile.Tile[T]) *tile.Tile[T]
	ConsumableLeft() bool
	ConsumableRight() bool
}

// Noop passes tiles through unchanged. It is the operator of an unpermuted,
// unscaled array wrap. Consuming hands the argument straight through.
type Noop[T tile.Elem] struct{}

func (Noop[T]) Apply(arg *tile.Tile[T]) *tile.Tile[T] { return arg.Clone() }
func (Noop[T]) ApplyPerm(arg *tile.Tile[T], perm tiling.Permutation) *tile.Tile[T] {
	return arg.Permute(perm)
}
func (Noop[T]) Consume(arg *tile.Tile[T]) *tile.Tile[T] { return arg }
func (Noop[T]) Consumable() bool                        { return true }

// Scale multiplies every element by Factor.
type Scale[T tile.Elem] struct {
	Factor T
}

func (s Scale[T]) Apply(arg *tile.Tile[T]) *tile.Tile[T] { return tile.Scale(arg, s.Factor) }
func (s Scale[T]) ApplyPerm(arg *tile.Tile[T], perm tiling.Permutation) *tile.Tile[T] {
	return tile.ScaleTo(arg.Permute(perm), s.Factor)
}
func (s Scale[T]) Consume(arg *tile.Tile[T]) *tile.Tile[T] { return tile.ScaleTo(arg, s.Factor) }
func (Scale[T]) Consumable() bool                          { return true }

// Neg negates every element.
type Neg[T tile.Elem] struct{}

func (Neg[T]) Apply(arg *tile.Tile[T]) *tile.Tile[T] { return tile.Neg(arg) }
func (Neg[T]) ApplyPerm(arg *tile.Tile[T], perm tiling.Permutation) *tile.Tile[T] {
	return tile.NegTo(arg.Permute(perm))
}
func (Neg[T]) Consume(arg *tile.Tile[T]) *tile.Tile[T] { return tile.NegTo(arg) }
func (Neg[T]) Consumable() bool                        { return true }

// Fn applies an arbitrary elementwise function.
type Fn[T tile.Elem] struct {
	F func(T) T
}

func (f Fn[T]) Apply(arg *tile.Tile[T]) *tile.Tile[T] { return tile.Map(arg, f.F) }
func (f Fn[T]) ApplyPerm(arg *tile.Tile[T], perm tiling.Permutation) *tile.Tile[T] {
	return tile.MapTo(arg.Permute(perm), f.F)
}
func (f Fn[T]) Consume(arg *tile.Tile[T]) *tile.Tile[T] { return tile.MapTo(arg, f.F) }
func (Fn[T]) Consumable() bool                          { return true }

// Add is elementwise addition. A zero operand passes the other side
// through.
type Add[T tile.Elem] struct{}

func (Add[T]) Apply(l, r *tile.Tile[T]) *tile.Tile[T] { return tile.Add(l, r) }
func (Add[T]) ApplyPerm(l, r *tile.Tile[T], perm tiling.Permutation) *tile.Tile[T] {
	return tile.Add(l, r).Permute(perm)
}
func (Add[T]) ApplyZeroLeft(r *tile.Tile[T]) *tile.Tile[T]  { return r.Clone() }
func (Add[T]) ApplyZeroRight(l *tile.Tile[T]) *tile.Tile[T] { return l.Clone() }
func (Add[T]) ConsumeLeft(l, r *tile.Tile[T]) *tile.Tile[T] { return tile.AddTo(l, r) }
func (Add[T]) ConsumeRight(l, r *tile.Tile[T]) *tile.Tile[T] {
	return tile.AddTo(r, l)
}
func (Add[T]) ConsumableLeft() bool  { return true }
func (Add[T]) ConsumableRight() bool { return true }

// Subt is elementwise subtraction.
type Subt[T tile.Elem] struct{}

func (Subt[T]) Apply(l, r *tile.Tile[T]) *tile.Tile[T] { return tile.Sub(l, r) }
func (Subt[T]) ApplyPerm(l, r *tile.Tile[T], perm tiling.Permutation) *tile.Tile[T] {
	return tile.Sub(l, r).Permute(perm)
}
func (Subt[T]) ApplyZeroLeft(r *tile.Tile[T]) *tile.Tile[T]  { return tile.Neg(r) }
func (Subt[T]) ApplyZeroRight(l *tile.Tile[T]) *tile.Tile[T] { return l.Clone() }
func (Subt[T]) ConsumeLeft(l, r *tile.Tile[T]) *tile.Tile[T] { return tile.SubTo(l, r) }
func (Subt[T]) ConsumeRight(l, r *tile.Tile[T]) *tile.Tile[T] {
	// r <- l - r, reusing r's storage.
	return tile.AddTo(tile.NegTo(r), l)
}
func (Subt[T]) ConsumableLeft() bool  { return true }
func (Subt[T]) ConsumableRight() bool { return true }

// Mult is the elementwise (Hadamard) product. A structurally-zero operand
// forces a zero result, so the zero variants must never be reached; the
// plan construction rules them out.
type Mult[T tile.Elem] struct{}

func (Mult[T]) Apply(l, r *tile.Tile[T]) *tile.Tile[T] { return tile.Mult(l, r) }
func (Mult[T]) ApplyPerm(l, r *tile.Tile[T], perm tiling.Permutation) *tile.Tile[T] {
	return tile.Mult(l, r).Permute(perm)
}
func (Mult[T]) ApplyZeroLeft(*tile.Tile[T]) *tile.Tile[T] {
	panic("tileop: product with a structurally-zero operand cannot be nonzero")
}
func (Mult[T]) ApplyZeroRight(*tile.Tile[T]) *tile.Tile[T] {
	panic("tileop: product with a structurally-zero operand cannot be nonzero")
}
func (Mult[T]) ConsumeLeft(l, r *tile.Tile[T]) *tile.Tile[T]  { return tile.MultTo(l, r) }
func (Mult[T]) ConsumeRight(l, r *tile.Tile[T]) *tile.Tile[T] { return tile.MultTo(r, l) }
func (Mult[T]) ConsumableLeft() bool                          { return true }
func (Mult[T]) ConsumableRight() bool                         { return true }
