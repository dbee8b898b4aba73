// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dist

import (
	"context"

	"github.com/tessell-ml/tessell/internal/pmap"
	"github.com/tessell-ml/tessell/internal/shape"
	"github.com/tessell-ml/tessell/internal/task"
	"github.com/tessell-ml/tessell/internal/tile"
	"github.com/tessell-ml/tessell/internal/tileop"
	"github.com/tessell-ml/tessell/internal/tiling"
)

// UnaryEval applies an element-wise op, optionally fused with a
// permutation, to every nonzero tile of a child source.
type UnaryEval[T tile.Elem] struct {
	*evalBase[T]
	child   Source[T]
	wrap    tileop.UnaryWrapper[T]
	invPerm tiling.Permutation
}

// NewUnaryEval plans op over child. A non-nil perm permutes the result and
// disables argument consumption inside the op application.
func NewUnaryEval[T tile.Elem](child Source[T], op tileop.Unary[T], perm tiling.Permutation, shp shape.Shape, pm pmap.ProcessMap) *UnaryEval[T] {
	e := &UnaryEval[T]{
		child:   child,
		wrap:    tileop.NewUnaryWrapper(op, perm),
		invPerm: perm.Inverse(),
	}
	e.evalBase = newEvalBase[T](child.World(), child.TRange().Permute(perm), shp, pm, false)
	e.impl = e
	return e
}

func (e *UnaryEval[T]) evalChildren(ctx context.Context) error { return e.child.Evaluate(ctx) }
func (e *UnaryEval[T]) waitChildren(context.Context) error     { return nil }

func (e *UnaryEval[T]) evalTiles(context.Context) (int, error) {
	count := 0
	for ord := range e.pm.Local() {
		if e.shp.IsZero(ord) {
			continue
		}
		src := sourceOrd(e.child.TRange(), e.tr, e.invPerm, ord)
		wrap := e.wrap
		e.insertFuture(ord, task.Then(e.w.Pool(), task.Normal, e.child.Find(src),
			func(p tileop.Pending[T]) (tileop.Pending[T], error) {
				return tileop.NewEager(wrap.Apply(p), false), nil
			}))
		count++
	}
	return count, nil
}
