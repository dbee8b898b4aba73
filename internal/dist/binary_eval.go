// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dist

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tessell-ml/tessell/internal/pmap"
	"github.com/tessell-ml/tessell/internal/shape"
	"github.com/tessell-ml/tessell/internal/task"
	"github.com/tessell-ml/tessell/internal/tile"
	"github.com/tessell-ml/tessell/internal/tileop"
	"github.com/tessell-ml/tessell/internal/tiling"
)

// BinaryEval combines two identically tiled sources tile by tile. An
// operand tile that is structurally zero is passed to the op's zero-operand
// variant instead of being fetched.
type BinaryEval[T tile.Elem] struct {
	*evalBase[T]
	left, right Source[T]
	wrap        tileop.BinaryWrapper[T]
	invPerm     tiling.Permutation
}

// NewBinaryEval plans op over left and right, which must share a tiling. A
// non-nil perm permutes the result and disables operand consumption inside
// the op application.
func NewBinaryEval[T tile.Elem](left, right Source[T], op tileop.Binary[T], perm tiling.Permutation, shp shape.Shape, pm pmap.ProcessMap) (*BinaryEval[T], error) {
	if !left.TRange().Equal(right.TRange()) {
		return nil, errors.Errorf("dist: operand tilings differ: %s vs %s", left.TRange(), right.TRange())
	}
	e := &BinaryEval[T]{
		left:    left,
		right:   right,
		wrap:    tileop.NewBinaryWrapper(op, perm),
		invPerm: perm.Inverse(),
	}
	e.evalBase = newEvalBase[T](left.World(), left.TRange().Permute(perm), shp, pm, false)
	e.impl = e
	return e, nil
}

func (e *BinaryEval[T]) evalChildren(ctx context.Context) error {
	var wg sync.WaitGroup
	var lerr, rerr error
	wg.Add(2)
	go func() { defer wg.Done(); lerr = e.left.Evaluate(ctx) }()
	go func() { defer wg.Done(); rerr = e.right.Evaluate(ctx) }()
	wg.Wait()
	return multierr.Combine(lerr, rerr)
}

func (e *BinaryEval[T]) waitChildren(context.Context) error { return nil }

func (e *BinaryEval[T]) evalTiles(context.Context) (int, error) {
	count := 0
	for ord := range e.pm.Local() {
		if e.shp.IsZero(ord) {
			continue
		}
		src := sourceOrd(e.left.TRange(), e.tr, e.invPerm, ord)
		lz := e.left.Shape().IsZero(src)
		rz := e.right.Shape().IsZero(src)
		wrap := e.wrap
		pool := e.w.Pool()
		switch {
		case lz && rz:
			return count, errors.Errorf("dist: result tile %d is nonzero but both operand tiles are zero", ord)
		case lz:
			e.insertFuture(ord, task.Then(pool, task.Normal, e.right.Find(src),
				func(r tileop.Pending[T]) (tileop.Pending[T], error) {
					return tileop.NewEager(wrap.Apply(nil, r), false), nil
				}))
		case rz:
			e.insertFuture(ord, task.Then(pool, task.Normal, e.left.Find(src),
				func(l tileop.Pending[T]) (tileop.Pending[T], error) {
					return tileop.NewEager(wrap.Apply(l, nil), false), nil
				}))
		default:
			e.insertFuture(ord, task.Then2(pool, task.Normal, e.left.Find(src), e.right.Find(src),
				func(l, r tileop.Pending[T]) (tileop.Pending[T], error) {
					return tileop.NewEager(wrap.Apply(l, r), false), nil
				}))
		}
		count++
	}
	return count, nil
}
