// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tileop

import (
	"github.com/pkg/errors"

	"github.com/tessell-ml/tessell/internal/tile"
	"github.com/tessell-ml/tessell/internal/tiling"
)

// UnaryWrapper composes a unary operator with an optional result
// permutation and selects between the operator's consuming and fresh
// evaluation paths per operand. When a permutation is requested the
// consuming path is disabled: permutation always produces fresh,
// non-aliased storage.
type UnaryWrapper[T tile.Elem] struct {
	op   Unary[T]
	perm tiling.Permutation
}

// NewUnaryWrapper validates the operator contract and binds the
// permutation. A nil permutation requests plain evaluation.
func NewUnaryWrapper[T tile.Elem](op Unary[T], perm tiling.Permutation) UnaryWrapper[T] {
	if op == nil {
		panic(errors.New("tileop: nil unary operator"))
	}
	return UnaryWrapper[T]{op: op, perm: perm}
}

// Permutation returns the permutation applied to results, nil for none.
func (w UnaryWrapper[T]) Permutation() tiling.Permutation { return w.perm }

// Apply forces the operand if it is lazy and applies the operator,
// consuming the operand's storage only when no permutation is requested,
// the operand is consumable, and the operator has a consuming path.
func (w UnaryWrapper[T]) Apply(arg Pending[T]) *tile.Tile[T] {
	t := arg.Force()
	if w.perm != nil {
		return w.op.ApplyPerm(t, w.perm)
	}
	if arg.Consumable() && w.op.Consumable() {
		return w.op.Consume(t)
	}
	return w.op.Apply(t)
}

// BinaryWrapper is the two-operand analogue of UnaryWrapper. A nil operand
// marks a structurally-zero tile; which side may be zero is decided at plan
// construction, and a zero operand routes to the operator's zero variant.
type BinaryWrapper[T tile.Elem] struct {
	op   Binary[T]
	perm tiling.Permutation
}

// NewBinaryWrapper validates the operator contract and binds the
// permutation.
func NewBinaryWrapper[T tile.Elem](op Binary[T], perm tiling.Permutation) BinaryWrapper[T] {
	if op == nil {
		panic(errors.New("tileop: nil binary operator"))
	}
	return BinaryWrapper[T]{op: op, perm: perm}
}

// Permutation returns the permutation applied to results, nil for none.
func (w BinaryWrapper[T]) Permutation() tiling.Permutation { return w.perm }

// Apply forces the operands and applies the operator. At most one operand
// may be nil (structurally zero). Consumption follows the same contract as
// UnaryWrapper, preferring the left operand's storage.
func (w BinaryWrapper[T]) Apply(left, right Pending[T]) *tile.Tile[T] {
	switch {
	case left == nil && right == nil:
		panic(errors.New("tileop: both operands structurally zero"))
	case left == nil:
		out := w.op.ApplyZeroLeft(right.Force())
		if w.perm != nil {
			out = out.Permute(w.perm)
		}
		return out
	case right == nil:
		out := w.op.ApplyZeroRight(left.Force())
		if w.perm != nil {
			out = out.Permute(w.perm)
		}
		return out
	}

	lt, rt := left.Force(), right.Force()
	if w.perm != nil {
		return w.op.ApplyPerm(lt, rt, w.perm)
	}
	if left.Consumable() && w.op.ConsumableLeft() {
		return w.op.ConsumeLeft(lt, rt)
	}
	if right.Consumable() && w.op.ConsumableRight() {
		return w.op.ConsumeRight(lt, rt)
	}
	return w.op.Apply(lt, rt)
}
