// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tiling maps global element index spaces onto tiles.
//
// A Range1 partitions one dimension into contiguous tiles by a strictly
// increasing boundary list. A TiledRange is the cartesian product of Range1
// partitions; it fixes a bijection between tile ordinals and tile
// multi-indices at construction time. A Permutation describes an index
// reordering applied to a result.
package tiling

import (
	"sort"

	"github.com/pkg/errors"
)

// Range1 is a tiled one-dimensional index range.
//
// Boundaries {0, 3, 7, 10, 20, 100} describe five tiles:
// [0,3), [3,7), [7,10), [10,20), [20,100).
type Range1 struct {
	bounds []int
}

// NewRange1 creates a Range1 from tile boundaries.
// At least two boundaries are required and they must be strictly increasing.
func NewRange1(bounds ...int) (Range1, error) {
	if len(bounds) < 2 {
		return Range1{}, errors.Errorf("tiling: need at least 2 boundaries, got %d", len(bounds))
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return Range1{}, errors.Errorf(
				"tiling: boundaries must be strictly increasing, got %d after %d at position %d",
				bounds[i], bounds[i-1], i)
		}
	}
	b := make([]int, len(bounds))
	copy(b, bounds)
	return Range1{bounds: b}, nil
}

// MustRange1 is like NewRange1 but panics on invalid boundaries.
func MustRange1(bounds ...int) Range1 {
	r, err := NewRange1(bounds...)
	if err != nil {
		panic(err)
	}
	return r
}

// UniformRange1 creates a Range1 covering [0, n) with tiles of the given
// size; the last tile may be smaller.
func UniformRange1(n, tileSize int) (Range1, error) {
	if n <= 0 || tileSize <= 0 {
		return Range1{}, errors.Errorf("tiling: invalid uniform range n=%d tileSize=%d", n, tileSize)
	}
	bounds := []int{0}
	for b := tileSize; b < n; b += tileSize {
		bounds = append(bounds, b)
	}
	bounds = append(bounds, n)
	return NewRange1(bounds...)
}

// Tiles returns the number of tiles.
func (r Range1) Tiles() int {
	if len(r.bounds) == 0 {
		return 0
	}
	return len(r.bounds) - 1
}

// Start returns the first element index covered by the range.
func (r Range1) Start() int { return r.bounds[0] }

// End returns one past the last element index covered by the range.
func (r Range1) End() int { return r.bounds[len(r.bounds)-1] }

// Elements returns the total number of elements covered by the range.
func (r Range1) Elements() int { return r.End() - r.Start() }

// Tile returns the half-open element interval [lo, hi) of tile i.
func (r Range1) Tile(i int) (lo, hi int) {
	return r.bounds[i], r.bounds[i+1]
}

// TileSize returns the number of elements in tile i.
func (r Range1) TileSize(i int) int {
	return r.bounds[i+1] - r.bounds[i]
}

// Find maps an element index to the tile containing it.
// The second return value is false when the element lies outside the range.
func (r Range1) Find(element int) (int, bool) {
	if len(r.bounds) == 0 || element < r.Start() || element >= r.End() {
		return 0, false
	}
	// First boundary strictly greater than element; the tile is one before it.
	i := sort.Search(len(r.bounds), func(i int) bool { return r.bounds[i] > element })
	return i - 1, true
}

// Equal reports whether two ranges have identical boundaries.
func (r Range1) Equal(other Range1) bool {
	if len(r.bounds) != len(other.bounds) {
		return false
	}
	for i := range r.bounds {
		if r.bounds[i] != other.bounds[i] {
			return false
		}
	}
	return true
}

// Bounds returns a copy of the boundary list.
func (r Range1) Bounds() []int {
	b := make([]int, len(r.bounds))
	copy(b, r.bounds)
	return b
}
