// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dist

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tessell-ml/tessell/internal/future"
	"github.com/tessell-ml/tessell/internal/pmap"
	"github.com/tessell-ml/tessell/internal/reduce"
	"github.com/tessell-ml/tessell/internal/shape"
	"github.com/tessell-ml/tessell/internal/tile"
	"github.com/tessell-ml/tessell/internal/tileop"
	"github.com/tessell-ml/tessell/internal/tiling"
)

// ContractEval contracts two matrix-tiled sources: result tile (i,j) is
// the inner-dimension sum of left (i,k) times right (k,j), folded by a
// pair reduction per output tile. Pairs with a structurally zero factor
// are skipped. The result is unpermuted; compose with a Noop UnaryEval to
// permute a contraction.
type ContractEval[T tile.Elem] struct {
	*evalBase[T]
	left, right Source[T]
	m, k, n     int
}

// NewContractEval plans the contraction of left (m by k tiles) and right
// (k by n tiles). The inner tilings must match boundary for boundary.
func NewContractEval[T tile.Elem](left, right Source[T], shp shape.Shape, pm pmap.ProcessMap) (*ContractEval[T], error) {
	if left.TRange().Rank() != 2 || right.TRange().Rank() != 2 {
		return nil, errors.Errorf("dist: contraction wants matrix operands, got ranks %d and %d",
			left.TRange().Rank(), right.TRange().Rank())
	}
	if !left.TRange().Dim(1).Equal(right.TRange().Dim(0)) {
		return nil, errors.Errorf("dist: inner tilings differ: %v vs %v",
			left.TRange().Dim(1).Bounds(), right.TRange().Dim(0).Bounds())
	}
	e := &ContractEval[T]{
		left:  left,
		right: right,
		m:     left.TRange().Dim(0).Tiles(),
		k:     left.TRange().Dim(1).Tiles(),
		n:     right.TRange().Dim(1).Tiles(),
	}
	tr := tiling.MustTiledRange(left.TRange().Dim(0), right.TRange().Dim(1))
	e.evalBase = newEvalBase[T](left.World(), tr, shp, pm, false)
	e.impl = e
	return e, nil
}

func (e *ContractEval[T]) evalChildren(ctx context.Context) error {
	var wg sync.WaitGroup
	var lerr, rerr error
	wg.Add(2)
	go func() { defer wg.Done(); lerr = e.left.Evaluate(ctx) }()
	go func() { defer wg.Done(); rerr = e.right.Evaluate(ctx) }()
	wg.Wait()
	return multierr.Combine(lerr, rerr)
}

func (e *ContractEval[T]) waitChildren(context.Context) error { return nil }

func (e *ContractEval[T]) evalTiles(context.Context) (int, error) {
	count := 0
	for ord := range e.pm.Local() {
		if e.shp.IsZero(ord) {
			continue
		}
		idx := e.tr.Idx(ord)
		i, j := idx[0], idx[1]
		rt := reduce.NewPairTask[*tile.Tile[T], *tile.Tile[T], *tile.Tile[T]](
			e.w.Pool(), gemmOp[T]{extents: e.tr.TileExtents(ord)})
		pairs := 0
		for kk := 0; kk < e.k; kk++ {
			lord := i*e.k + kk
			rord := kk*e.n + j
			if shape.ZeroProduct(e.left.Shape(), e.right.Shape(), lord, rord) {
				continue
			}
			rt.AddFutures(forced(e.left.Find(lord)), forced(e.right.Find(rord)))
			pairs++
		}
		if pairs == 0 {
			return count, errors.Errorf("dist: result tile %d is nonzero but every factor pair is zero", ord)
		}
		e.insertFuture(ord, future.Map(rt.Submit(), func(t *tile.Tile[T]) (tileop.Pending[T], error) {
			return tileop.NewEager(t, false), nil
		}))
		count++
	}
	return count, nil
}

// forced strips the pending wrapper off a child tile. Contraction factors
// arrive eager, so forcing is a pointer read and may repeat across the
// output tiles sharing the factor.
func forced[T tile.Elem](f *future.Future[tileop.Pending[T]]) *future.Future[*tile.Tile[T]] {
	return future.Map(f, func(p tileop.Pending[T]) (*tile.Tile[T], error) {
		return p.Force(), nil
	})
}

// gemmOp accumulates tile products into a zero-initialized result tile.
type gemmOp[T tile.Elem] struct {
	extents []int
}

func (op gemmOp[T]) Identity() *tile.Tile[T] { return tile.New[T](op.extents...) }

func (gemmOp[T]) ReducePair(acc, l, r *tile.Tile[T]) *tile.Tile[T] {
	return tile.Gemm(acc, l, r)
}

func (gemmOp[T]) Combine(a, b *tile.Tile[T]) *tile.Tile[T] {
	return tile.AddTo(a, b)
}
