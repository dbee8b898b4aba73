// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package array is the public API of the tessell tile-tensor engine.
//
// It re-exports the engine's building blocks — tiled index ranges, process
// maps, structural shapes, distributed arrays, and the expression
// evaluators — and adds the expression-level entry points most programs
// need:
//
//	g := array.NewGroup(4, array.DefaultConfig())
//	defer g.Close()
//	err := g.Run(func(w *array.World) error {
//		tr := array.MustTiledRange(array.MustRange1(0, 512, 1024), array.MustRange1(0, 512, 1024))
//		a, _ := array.FromDense(w, tr, adata, array.NewBlocked(w.Rank(), w.Size(), tr.NumTiles()))
//		b, _ := array.FromDense(w, tr, bdata, array.NewBlocked(w.Rank(), w.Size(), tr.NumTiles()))
//		c, err := array.Contract(ctx, a, b)
//		...
//	})
//
// Every rank of a group executes the same plan in the same order; all
// cross-rank coordination happens through the engine.
package array

import (
	"github.com/tessell-ml/tessell/internal/dist"
	"github.com/tessell-ml/tessell/internal/pmap"
	"github.com/tessell-ml/tessell/internal/shape"
	"github.com/tessell-ml/tessell/internal/tile"
	"github.com/tessell-ml/tessell/internal/tiling"
	"github.com/tessell-ml/tessell/internal/world"
)

// Elem constrains tile element types.
type Elem = tile.Elem

// Tile is a dense row-major block of elements.
type Tile[T Elem] = tile.Tile[T]

// NewTile allocates a zero-filled tile.
func NewTile[T Elem](extents ...int) *Tile[T] { return tile.New[T](extents...) }

// TileFromSlice wraps row-major data as a tile.
func TileFromSlice[T Elem](data []T, extents ...int) (*Tile[T], error) {
	return tile.FromSlice(data, extents...)
}

// Tiling types.
type (
	Range1      = tiling.Range1
	TiledRange  = tiling.TiledRange
	Permutation = tiling.Permutation
)

// NewRange1 builds a one-dimensional tiling from strictly increasing
// boundaries.
func NewRange1(bounds ...int) (Range1, error) { return tiling.NewRange1(bounds...) }

// MustRange1 is NewRange1 panicking on invalid boundaries.
func MustRange1(bounds ...int) Range1 { return tiling.MustRange1(bounds...) }

// UniformRange1 tiles n elements into blocks of tileSize.
func UniformRange1(n, tileSize int) (Range1, error) { return tiling.UniformRange1(n, tileSize) }

// NewTiledRange builds the cartesian product of per-dimension tilings.
func NewTiledRange(dims ...Range1) (*TiledRange, error) { return tiling.NewTiledRange(dims...) }

// MustTiledRange is NewTiledRange panicking on invalid dimensions.
func MustTiledRange(dims ...Range1) *TiledRange { return tiling.MustTiledRange(dims...) }

// NewPermutation builds a permutation from a bijective image list.
func NewPermutation(p ...int) (Permutation, error) { return tiling.NewPermutation(p...) }

// MustPermutation is NewPermutation panicking on invalid input.
func MustPermutation(p ...int) Permutation { return tiling.MustPermutation(p...) }

// Ownership maps.
type ProcessMap = pmap.ProcessMap

// NewBlocked assigns contiguous ordinal ranges to ranks.
func NewBlocked(rank, size, tiles int) ProcessMap { return pmap.NewBlocked(rank, size, tiles) }

// NewCyclic assigns ordinals round-robin.
func NewCyclic(rank, size, tiles int) ProcessMap { return pmap.NewCyclic(rank, size, tiles) }

// NewHash assigns ordinals by hashing.
func NewHash(rank, size, tiles int) ProcessMap { return pmap.NewHash(rank, size, tiles) }

// Structural sparsity.
type Shape = shape.Shape

// DenseShape marks every tile nonzero.
func DenseShape(tiles int) Shape { return shape.NewDense(tiles) }

// SparseShape marks tiles zero when their norm estimate falls below the
// default threshold.
func SparseShape(norms []float64) Shape { return shape.NewSparse(norms) }

// Runtime types.
type (
	World  = world.World
	Group  = world.Group
	Config = world.Config
)

// NewGroup creates an in-process group of n cooperating ranks.
func NewGroup(n int, cfg Config) *Group { return world.NewGroup(n, cfg) }

// DefaultConfig sizes the runtime for the local machine.
func DefaultConfig() Config { return world.DefaultConfig() }

// Distributed array and expression types.
type (
	Array[T Elem]  = dist.Array[T]
	Source[T Elem] = dist.Source[T]
)

// NewArray creates an empty distributed array; tiles are written with
// SetTile on their owning ranks.
func NewArray[T Elem](w *World, tr *TiledRange, shp Shape, pm ProcessMap) *Array[T] {
	return dist.NewArray[T](w, tr, shp, pm)
}

// FromDense scatters a row-major element slice into a dense-shaped array.
func FromDense[T Elem](w *World, tr *TiledRange, data []T, pm ProcessMap) (*Array[T], error) {
	return dist.FromDense(w, tr, data, pm)
}
