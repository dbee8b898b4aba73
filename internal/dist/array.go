// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dist

import (
	"context"
	"slices"

	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"

	"github.com/tessell-ml/tessell/internal/future"
	"github.com/tessell-ml/tessell/internal/pmap"
	"github.com/tessell-ml/tessell/internal/shape"
	"github.com/tessell-ml/tessell/internal/tile"
	"github.com/tessell-ml/tessell/internal/tileop"
	"github.com/tessell-ml/tessell/internal/tiling"
	"github.com/tessell-ml/tessell/internal/world"
)

// Array is a distributed tile tensor: a tiled range, a shape, an ownership
// map, and a write-once store of this rank's tiles. Structurally zero tiles
// are never stored.
type Array[T tile.Elem] struct {
	w     *world.World
	tr    *tiling.TiledRange
	shp   shape.Shape
	pm    pmap.ProcessMap
	store *world.Container[*tile.Tile[T]]
}

// NewArray creates this rank's instance of a distributed array. Every rank
// of the group must create its arrays in the same order.
func NewArray[T tile.Elem](w *world.World, tr *tiling.TiledRange, shp shape.Shape, pm pmap.ProcessMap) *Array[T] {
	if shp.Tiles() != tr.NumTiles() {
		panic(errors.Errorf("dist: shape covers %d tiles, tiled range has %d", shp.Tiles(), tr.NumTiles()))
	}
	if pm.Tiles() != tr.NumTiles() {
		panic(errors.Errorf("dist: process map covers %d tiles, tiled range has %d", pm.Tiles(), tr.NumTiles()))
	}
	return &Array[T]{
		w:   w,
		tr:  tr,
		shp: shp,
		pm:  pm,
		store: world.NewContainer[*tile.Tile[T]](w, pm, world.ContainerOpts[*tile.Tile[T]]{
			Clone: func(t *tile.Tile[T]) *tile.Tile[T] { return t.Clone() },
		}),
	}
}

func (a *Array[T]) World() *world.World        { return a.w }
func (a *Array[T]) TRange() *tiling.TiledRange { return a.tr }
func (a *Array[T]) Shape() shape.Shape         { return a.shp }
func (a *Array[T]) PMap() pmap.ProcessMap      { return a.pm }

// IsLocal reports whether this rank owns the tile at ord.
func (a *Array[T]) IsLocal(ord int) bool { return a.pm.IsLocal(ord) }

// SetTile stores the local tile at ord. The ordinal must be locally owned,
// structurally nonzero, unset, and t's extents must match the tiling.
func (a *Array[T]) SetTile(ord int, t *tile.Tile[T]) {
	if a.shp.IsZero(ord) {
		panic(errors.Errorf("dist: set of structurally zero tile %d", ord))
	}
	if want := a.tr.TileExtents(ord); !slices.Equal(t.Extents(), want) {
		panic(errors.Errorf("dist: tile %d has extents %v, tiling wants %v", ord, t.Extents(), want))
	}
	a.store.Set(ord, t)
}

// FindTile returns a future for the tile at ord, fetching from the owner if
// it is remote. It never blocks. Asking for a structurally zero tile is a
// programming error.
func (a *Array[T]) FindTile(ord int) *future.Future[*tile.Tile[T]] {
	if a.shp.IsZero(ord) {
		panic(errors.Errorf("dist: find of structurally zero tile %d", ord))
	}
	return a.store.Find(ord)
}

// Tile blocks until the tile at ord is available and returns it.
func (a *Array[T]) Tile(ctx context.Context, ord int) (*tile.Tile[T], error) {
	if a.shp.IsZero(ord) {
		panic(errors.Errorf("dist: get of structurally zero tile %d", ord))
	}
	return a.store.Get(ctx, ord)
}

// FromDense builds a dense-shaped array from a row-major element slice,
// filling this rank's tiles concurrently. data is indexed relative to the
// tiling's lower bounds.
func FromDense[T tile.Elem](w *world.World, tr *tiling.TiledRange, data []T, pm pmap.ProcessMap) (*Array[T], error) {
	if len(data) != tr.Elements() {
		return nil, errors.Errorf("dist: dense data has %d elements, tiled range has %d", len(data), tr.Elements())
	}
	a := NewArray[T](w, tr, shape.NewDense(tr.NumTiles()), pm)
	var local []int
	for ord := range pm.Local() {
		local = append(local, ord)
	}
	err := traverse.Each(len(local), func(i int) error {
		ord := local[i]
		t := tile.New[T](tr.TileExtents(ord)...)
		scatterTile(tr, ord, data, t.Data(), true)
		a.SetTile(ord, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Dense gathers the whole array into a row-major element slice, fetching
// remote tiles concurrently. Structurally zero tiles contribute zeros.
func (a *Array[T]) Dense(ctx context.Context) ([]T, error) {
	out := make([]T, a.tr.Elements())
	err := traverse.Each(a.tr.NumTiles(), func(ord int) error {
		if a.shp.IsZero(ord) {
			return nil
		}
		t, err := a.Tile(ctx, ord)
		if err != nil {
			return err
		}
		scatterTile(a.tr, ord, out, t.Data(), false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scatterTile copies between the global dense slice and one tile's row-major
// data. gather reads dense into block; otherwise block is written to dense.
func scatterTile[T tile.Elem](tr *tiling.TiledRange, ord int, dense []T, block []T, gather bool) {
	lo, hi := tr.TileBounds(ord)
	rank := tr.Rank()
	// Strides of the global dense layout, one entry per dimension.
	strides := make([]int, rank)
	s := 1
	for d := rank - 1; d >= 0; d-- {
		strides[d] = s
		s *= tr.Dim(d).Elements()
	}
	idx := make([]int, rank)
	copy(idx, lo)
	for k := 0; k < len(block); k++ {
		off := 0
		for d := 0; d < rank; d++ {
			off += (idx[d] - tr.Dim(d).Start()) * strides[d]
		}
		if gather {
			block[k] = dense[off]
		} else {
			dense[off] = block[k]
		}
		for d := rank - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < hi[d] {
				break
			}
			idx[d] = lo[d]
		}
	}
}

// ArraySource adapts an array into an expression leaf. Tiles fetched from a
// remote owner arrive as private copies and are consumable; locally owned
// tiles are shared with the array and are not.
type ArraySource[T tile.Elem] struct {
	arr *Array[T]
}

// NewArraySource wraps arr as an expression leaf.
func NewArraySource[T tile.Elem](arr *Array[T]) *ArraySource[T] {
	return &ArraySource[T]{arr: arr}
}

func (s *ArraySource[T]) World() *world.World        { return s.arr.w }
func (s *ArraySource[T]) TRange() *tiling.TiledRange { return s.arr.tr }
func (s *ArraySource[T]) Shape() shape.Shape         { return s.arr.shp }
func (s *ArraySource[T]) PMap() pmap.ProcessMap      { return s.arr.pm }

func (s *ArraySource[T]) Find(ord int) *future.Future[tileop.Pending[T]] {
	consumable := !s.arr.IsLocal(ord)
	return future.Map(s.arr.FindTile(ord), func(t *tile.Tile[T]) (tileop.Pending[T], error) {
		return tileop.NewEager(t, consumable), nil
	})
}

// Evaluate is a no-op: the array's tiles already exist.
func (s *ArraySource[T]) Evaluate(context.Context) error { return nil }

// Wait is a no-op: leaf tiles are produced by their writers, not by
// evaluation.
func (s *ArraySource[T]) Wait(context.Context) error { return nil }
