// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tiling

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// TiledRange is the cartesian product of per-dimension Range1 tilings.
//
// Tiles are identified either by a multi-index (one tile coordinate per
// dimension) or by a flat ordinal in row-major order. The mapping between
// the two is a bijection fixed at construction.
type TiledRange struct {
	dims    []Range1
	strides []int // row-major tile strides
	tiles   int   // total tile count
}

// NewTiledRange creates a TiledRange from per-dimension tilings.
func NewTiledRange(dims ...Range1) (*TiledRange, error) {
	if len(dims) == 0 {
		return nil, errors.New("tiling: tiled range needs at least one dimension")
	}
	tr := &TiledRange{
		dims:    make([]Range1, len(dims)),
		strides: make([]int, len(dims)),
		tiles:   1,
	}
	copy(tr.dims, dims)
	for i := len(dims) - 1; i >= 0; i-- {
		tr.strides[i] = tr.tiles
		tr.tiles *= dims[i].Tiles()
	}
	return tr, nil
}

// MustTiledRange is like NewTiledRange but panics on error.
func MustTiledRange(dims ...Range1) *TiledRange {
	tr, err := NewTiledRange(dims...)
	if err != nil {
		panic(err)
	}
	return tr
}

// Rank returns the number of dimensions.
func (tr *TiledRange) Rank() int { return len(tr.dims) }

// NumTiles returns the total number of tiles.
func (tr *TiledRange) NumTiles() int { return tr.tiles }

// Dim returns the Range1 tiling of dimension d.
func (tr *TiledRange) Dim(d int) Range1 { return tr.dims[d] }

// TilesPerDim returns the tile count of every dimension.
func (tr *TiledRange) TilesPerDim() []int {
	out := make([]int, len(tr.dims))
	for i, d := range tr.dims {
		out[i] = d.Tiles()
	}
	return out
}

// Ord maps a tile multi-index to its flat ordinal.
func (tr *TiledRange) Ord(idx []int) int {
	if len(idx) != len(tr.dims) {
		panic(errors.Errorf("tiling: index rank %d does not match range rank %d", len(idx), len(tr.dims)))
	}
	ord := 0
	for i, v := range idx {
		if v < 0 || v >= tr.dims[i].Tiles() {
			panic(errors.Errorf("tiling: tile index %d out of range [0,%d) in dimension %d",
				v, tr.dims[i].Tiles(), i))
		}
		ord += v * tr.strides[i]
	}
	return ord
}

// Idx maps a flat tile ordinal to its multi-index.
func (tr *TiledRange) Idx(ord int) []int {
	if ord < 0 || ord >= tr.tiles {
		panic(errors.Errorf("tiling: tile ordinal %d out of range [0,%d)", ord, tr.tiles))
	}
	idx := make([]int, len(tr.dims))
	for i, s := range tr.strides {
		idx[i] = ord / s
		ord %= s
	}
	return idx
}

// TileExtents returns the per-dimension element counts of the tile at ord.
func (tr *TiledRange) TileExtents(ord int) []int {
	idx := tr.Idx(ord)
	out := make([]int, len(idx))
	for i, v := range idx {
		out[i] = tr.dims[i].TileSize(v)
	}
	return out
}

// TileBounds returns the per-dimension half-open element intervals of the
// tile at ord.
func (tr *TiledRange) TileBounds(ord int) (lo, hi []int) {
	idx := tr.Idx(ord)
	lo = make([]int, len(idx))
	hi = make([]int, len(idx))
	for i, v := range idx {
		lo[i], hi[i] = tr.dims[i].Tile(v)
	}
	return lo, hi
}

// ElementToTile maps a global element multi-index to the multi-index of the
// tile containing it. The second return value is false when the element lies
// outside the range.
func (tr *TiledRange) ElementToTile(element []int) ([]int, bool) {
	if len(element) != len(tr.dims) {
		return nil, false
	}
	idx := make([]int, len(element))
	for i, e := range element {
		t, ok := tr.dims[i].Find(e)
		if !ok {
			return nil, false
		}
		idx[i] = t
	}
	return idx, true
}

// Elements returns the total number of elements covered by the range.
func (tr *TiledRange) Elements() int {
	n := 1
	for _, d := range tr.dims {
		n *= d.Elements()
	}
	return n
}

// Permute returns the tiled range describing the result of applying perm:
// dimension p[i] of the result is dimension i of the receiver.
func (tr *TiledRange) Permute(perm Permutation) *TiledRange {
	if perm == nil {
		out, _ := NewTiledRange(tr.dims...)
		return out
	}
	if perm.Dim() != len(tr.dims) {
		panic(errors.Errorf("tiling: permutation dim %d does not match range rank %d", perm.Dim(), len(tr.dims)))
	}
	dims := make([]Range1, len(tr.dims))
	for i, v := range perm {
		dims[v] = tr.dims[i]
	}
	out, _ := NewTiledRange(dims...)
	return out
}

// Equal reports whether two tiled ranges have identical tilings.
func (tr *TiledRange) Equal(other *TiledRange) bool {
	if len(tr.dims) != len(other.dims) {
		return false
	}
	for i := range tr.dims {
		if !tr.dims[i].Equal(other.dims[i]) {
			return false
		}
	}
	return true
}

// String renders the tiling, one boundary list per dimension.
func (tr *TiledRange) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, d := range tr.dims {
		if i > 0 {
			b.WriteString(" x ")
		}
		fmt.Fprintf(&b, "%v", d.Bounds())
	}
	b.WriteByte(')')
	return b.String()
}
