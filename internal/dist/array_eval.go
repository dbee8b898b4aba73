// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dist

import (
	"context"

	"github.com/tessell-ml/tessell/internal/future"
	"github.com/tessell-ml/tessell/internal/pmap"
	"github.com/tessell-ml/tessell/internal/shape"
	"github.com/tessell-ml/tessell/internal/task"
	"github.com/tessell-ml/tessell/internal/tile"
	"github.com/tessell-ml/tessell/internal/tileop"
	"github.com/tessell-ml/tessell/internal/tiling"
)

// ArrayEval wraps an array's tiles in lazy tiles carrying a per-tile
// conversion op, deferring the conversion to the consumer. Its store is
// local-only: a lazy tile must be forced by the rank that holds it, so
// consumers must share the array's process map.
type ArrayEval[T tile.Elem] struct {
	*evalBase[T]
	arr     *Array[T]
	op      tileop.Unary[T]
	invPerm tiling.Permutation
}

// NewArrayEval plans a lazy view of arr. op is shared by every tile task
// and must be stateless or internally synchronized. A non-nil perm permutes
// the view: tile ordinals are remapped and the permutation is fused into
// the per-tile conversion, so forcing a lazy tile yields permuted contents.
func NewArrayEval[T tile.Elem](arr *Array[T], op tileop.Unary[T], perm tiling.Permutation, shp shape.Shape, pm pmap.ProcessMap) *ArrayEval[T] {
	if perm != nil {
		op = permOp[T]{op: op, perm: perm}
	}
	e := &ArrayEval[T]{
		arr:     arr,
		op:      op,
		invPerm: perm.Inverse(),
	}
	e.evalBase = newEvalBase[T](arr.w, arr.tr.Permute(perm), shp, pm, true)
	e.impl = e
	return e
}

// permOp fuses a result permutation into a conversion op. Permuting always
// writes fresh storage, so the consuming path degenerates to the plain one.
type permOp[T tile.Elem] struct {
	op   tileop.Unary[T]
	perm tiling.Permutation
}

func (p permOp[T]) Apply(arg *tile.Tile[T]) *tile.Tile[T] {
	return p.op.ApplyPerm(arg, p.perm)
}

func (p permOp[T]) ApplyPerm(arg *tile.Tile[T], q tiling.Permutation) *tile.Tile[T] {
	return p.op.ApplyPerm(arg, p.perm.Compose(q))
}

func (p permOp[T]) Consume(arg *tile.Tile[T]) *tile.Tile[T] {
	return p.op.ApplyPerm(arg, p.perm)
}

func (p permOp[T]) Consumable() bool { return p.op.Consumable() }

func (e *ArrayEval[T]) evalChildren(context.Context) error { return nil }
func (e *ArrayEval[T]) waitChildren(context.Context) error { return nil }

func (e *ArrayEval[T]) evalTiles(context.Context) (int, error) {
	count := 0
	for ord := range e.pm.Local() {
		if e.shp.IsZero(ord) {
			continue
		}
		src := sourceOrd(e.arr.tr, e.tr, e.invPerm, ord)
		// A tile fetched from a remote owner arrives as a private copy,
		// so the conversion may consume it. A locally owned tile is
		// shared with the array and must be preserved.
		consumable := !e.arr.IsLocal(src)
		op := e.op
		tf := e.arr.FindTile(src)
		if tf.Probe() {
			// The source tile is already here; wrap it without a task.
			if t, err := tf.Value(); err != nil {
				e.insertFuture(ord, future.Faulted[tileop.Pending[T]](err))
			} else {
				e.insert(ord, tileop.NewLazyTile(t, op, consumable))
			}
		} else {
			// Wrap as soon as the tile lands. High priority: downstream
			// tasks are already waiting on this tile.
			e.insertFuture(ord, task.Then(e.w.Pool(), task.High, tf,
				func(t *tile.Tile[T]) (tileop.Pending[T], error) {
					return tileop.NewLazyTile(t, op, consumable), nil
				}))
		}
		count++
	}
	return count, nil
}
