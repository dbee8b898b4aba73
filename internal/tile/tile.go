// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tile provides the dense block of elements that is the unit of
// ownership, distribution, and computation.
//
// Tiles are row-major and carry their own extents. Kernels come in a fresh
// variant that allocates the result and, where storage reuse is sound, a
// consuming variant that writes through the argument's backing array. The
// consuming variants are only reached through the tile-operation wrappers,
// which enforce the consumability contract.
package tile

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/tessell-ml/tessell/internal/tiling"
)

// Elem constrains tile element types.
type Elem interface {
	constraints.Float | constraints.Integer
}

// Tile is a dense row-major block.
type Tile[T Elem] struct {
	extents []int
	strides []int
	data    []T
}

// New creates a zero-filled tile with the given per-dimension extents.
func New[T Elem](extents ...int) *Tile[T] {
	n := 1
	for i, e := range extents {
		if e <= 0 {
			panic(errors.Errorf("tile: invalid extent %d in dimension %d", e, i))
		}
		n *= e
	}
	ext := make([]int, len(extents))
	copy(ext, extents)
	return &Tile[T]{
		extents: ext,
		strides: rowMajorStrides(ext),
		data:    make([]T, n),
	}
}

// FromSlice creates a tile backed by a copy of data.
func FromSlice[T Elem](data []T, extents ...int) (*Tile[T], error) {
	t := New[T](extents...)
	if len(data) != len(t.data) {
		return nil, errors.Errorf("tile: data length %d does not match extents %v", len(data), extents)
	}
	copy(t.data, data)
	return t, nil
}

func rowMajorStrides(extents []int) []int {
	strides := make([]int, len(extents))
	if len(extents) == 0 {
		return strides
	}
	strides[len(extents)-1] = 1
	for i := len(extents) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * extents[i+1]
	}
	return strides
}

// Rank returns the number of dimensions.
func (t *Tile[T]) Rank() int { return len(t.extents) }

// Extents returns the per-dimension element counts.
func (t *Tile[T]) Extents() []int { return t.extents }

// Len returns the number of elements.
func (t *Tile[T]) Len() int { return len(t.data) }

// Data returns the backing slice. Mutating it mutates the tile.
func (t *Tile[T]) Data() []T { return t.data }

// At returns the element at a multi-index.
func (t *Tile[T]) At(idx ...int) T {
	return t.data[t.offset(idx)]
}

// SetAt stores v at a multi-index.
func (t *Tile[T]) SetAt(v T, idx ...int) {
	t.data[t.offset(idx)] = v
}

func (t *Tile[T]) offset(idx []int) int {
	if len(idx) != len(t.extents) {
		panic(errors.Errorf("tile: index rank %d does not match tile rank %d", len(idx), len(t.extents)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.extents[i] {
			panic(errors.Errorf("tile: index %d out of range [0,%d) in dimension %d", v, t.extents[i], i))
		}
		off += v * t.strides[i]
	}
	return off
}

// Clone returns a deep copy.
func (t *Tile[T]) Clone() *Tile[T] {
	c := New[T](t.extents...)
	copy(c.data, t.data)
	return c
}

// Equal reports elementwise equality of extents and data.
func (t *Tile[T]) Equal(other *Tile[T]) bool {
	if len(t.extents) != len(other.extents) {
		return false
	}
	for i := range t.extents {
		if t.extents[i] != other.extents[i] {
			return false
		}
	}
	for i := range t.data {
		if t.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// Norm returns the Frobenius norm of the tile, the magnitude estimate used
// by sparse shapes.
func (t *Tile[T]) Norm() float64 {
	var sum float64
	for _, v := range t.data {
		f := float64(v)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// Permute returns a fresh tile with indices reordered: the element at idx
// moves to perm.Apply(idx). A nil permutation clones.
func (t *Tile[T]) Permute(perm tiling.Permutation) *Tile[T] {
	if perm == nil {
		return t.Clone()
	}
	if perm.Dim() != len(t.extents) {
		panic(errors.Errorf("tile: permutation dim %d does not match tile rank %d", perm.Dim(), len(t.extents)))
	}
	out := New[T](perm.ApplyInts(t.extents)...)
	idx := make([]int, len(t.extents))
	for _, v := range t.data {
		out.data[out.offset(perm.Apply(idx))] = v
		increment(idx, t.extents)
	}
	return out
}

// increment advances a row-major multi-index by one element.
func increment(idx, extents []int) {
	for d := len(idx) - 1; d >= 0; d-- {
		idx[d]++
		if idx[d] < extents[d] {
			return
		}
		idx[d] = 0
	}
}

func sameExtents[T Elem](a, b *Tile[T]) {
	if len(a.extents) != len(b.extents) {
		panic(errors.Errorf("tile: rank mismatch %d vs %d", len(a.extents), len(b.extents)))
	}
	for i := range a.extents {
		if a.extents[i] != b.extents[i] {
			panic(errors.Errorf("tile: extent mismatch %v vs %v", a.extents, b.extents))
		}
	}
}
