// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package shape tracks per-tile structural sparsity.
//
// A Shape answers, per tile ordinal, whether the tile is structurally zero.
// It is consulted before any task for that tile is created, so zero tiles
// never enter the evaluation pipeline. Sparse shapes additionally carry a
// magnitude estimate per tile (a norm), which composes through elementwise
// and contraction operations at plan-construction time.
package shape

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// DefaultThreshold is the norm below which a tile is treated as
// structurally zero.
const DefaultThreshold = 1e-12

// Shape is the per-tile structural-zero predicate.
type Shape interface {
	// IsZero reports whether the tile at ord is structurally zero.
	IsZero(ord int) bool
	// IsDense reports whether no tile is ever structurally zero.
	IsDense() bool
	// Tiles returns the size of the tile ordinal space.
	Tiles() int
}

// Dense is a shape with no structural zeros.
type Dense struct {
	tiles int
}

// NewDense creates a dense shape over tiles ordinals.
func NewDense(tiles int) Dense { return Dense{tiles: tiles} }

func (d Dense) IsZero(int) bool { return false }
func (d Dense) IsDense() bool   { return true }
func (d Dense) Tiles() int      { return d.tiles }

// Sparse is a shape backed by per-tile norm estimates. A tile whose norm is
// below the threshold is structurally zero.
type Sparse struct {
	norms     []float64
	threshold float64
}

// NewSparse creates a sparse shape from per-tile norms using
// DefaultThreshold.
func NewSparse(norms []float64) *Sparse {
	return NewSparseThreshold(norms, DefaultThreshold)
}

// NewSparseThreshold creates a sparse shape with an explicit zero threshold.
func NewSparseThreshold(norms []float64, threshold float64) *Sparse {
	n := make([]float64, len(norms))
	copy(n, norms)
	return &Sparse{norms: n, threshold: threshold}
}

func (s *Sparse) IsZero(ord int) bool { return s.norms[ord] < s.threshold }
func (s *Sparse) IsDense() bool       { return false }
func (s *Sparse) Tiles() int          { return len(s.norms) }

// Norm returns the magnitude estimate of the tile at ord.
func (s *Sparse) Norm(ord int) float64 { return s.norms[ord] }

// Threshold returns the structural-zero threshold.
func (s *Sparse) Threshold() float64 { return s.threshold }

// Permute returns the shape of a permuted result: the norm of the source
// tile at ordinal i moves to the target ordinal produced by remap(i).
func (s *Sparse) Permute(remap func(ord int) int) *Sparse {
	norms := make([]float64, len(s.norms))
	for ord, n := range s.norms {
		norms[remap(ord)] = n
	}
	return &Sparse{norms: norms, threshold: s.threshold}
}

// Scale returns the shape of a scaled result. Norm estimates scale by
// |factor|; structural zeros are preserved.
func Scale[T constraints.Float](s Shape, factor T) Shape {
	sp, ok := s.(*Sparse)
	if !ok {
		return s
	}
	f := float64(factor)
	if f < 0 {
		f = -f
	}
	norms := make([]float64, len(sp.norms))
	for i, n := range sp.norms {
		norms[i] = n * f
	}
	return &Sparse{norms: norms, threshold: sp.threshold}
}

// Add returns the shape of an elementwise sum: a tile is zero only when it
// is zero in both operands. Norm estimates add.
func Add(a, b Shape) (Shape, error) {
	if a.Tiles() != b.Tiles() {
		return nil, errors.Errorf("shape: tile count mismatch %d vs %d", a.Tiles(), b.Tiles())
	}
	if a.IsDense() || b.IsDense() {
		return NewDense(a.Tiles()), nil
	}
	sa, sb := a.(*Sparse), b.(*Sparse)
	norms := make([]float64, a.Tiles())
	for i := range norms {
		norms[i] = sa.norms[i] + sb.norms[i]
	}
	return &Sparse{norms: norms, threshold: sa.threshold}, nil
}

// Mult returns the shape of a Hadamard product: a tile is zero when it is
// zero in either operand. Norm estimates multiply.
func Mult(a, b Shape) (Shape, error) {
	if a.Tiles() != b.Tiles() {
		return nil, errors.Errorf("shape: tile count mismatch %d vs %d", a.Tiles(), b.Tiles())
	}
	if a.IsDense() && b.IsDense() {
		return NewDense(a.Tiles()), nil
	}
	norms := make([]float64, a.Tiles())
	threshold := DefaultThreshold
	for i := range norms {
		norms[i] = norm(a, i) * norm(b, i)
	}
	if sa, ok := a.(*Sparse); ok {
		threshold = sa.threshold
	} else if sb, ok := b.(*Sparse); ok {
		threshold = sb.threshold
	}
	return &Sparse{norms: norms, threshold: threshold}, nil
}

// Contract returns the shape of a tile-matrix contraction: left is an
// m x k tile matrix, right is k x n, both in row-major ordinal order. The
// result norm of tile (i, j) is the sum over the contracted range of the
// operand norm products, so an output tile is structurally zero exactly
// when every one of its partial products pairs a zero tile.
func Contract(left, right Shape, m, k, n int) (Shape, error) {
	if left.Tiles() != m*k {
		return nil, errors.Errorf("shape: left tile count %d does not match %dx%d", left.Tiles(), m, k)
	}
	if right.Tiles() != k*n {
		return nil, errors.Errorf("shape: right tile count %d does not match %dx%d", right.Tiles(), k, n)
	}
	if left.IsDense() && right.IsDense() {
		return NewDense(m * n), nil
	}
	norms := make([]float64, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for kk := 0; kk < k; kk++ {
				sum += norm(left, i*k+kk) * norm(right, kk*n+j)
			}
			norms[i*n+j] = sum
		}
	}
	threshold := DefaultThreshold
	if sl, ok := left.(*Sparse); ok {
		threshold = sl.threshold
	} else if sr, ok := right.(*Sparse); ok {
		threshold = sr.threshold
	}
	return &Sparse{norms: norms, threshold: threshold}, nil
}

// ZeroProduct reports whether the partial product of the left tile at lord
// and the right tile at rord is structurally zero. Contraction uses this to
// skip operand pairs.
func ZeroProduct(left, right Shape, lord, rord int) bool {
	return left.IsZero(lord) || right.IsZero(rord)
}

// norm is the magnitude estimate used when composing shapes; dense tiles
// count as unit magnitude.
func norm(s Shape, ord int) float64 {
	if sp, ok := s.(*Sparse); ok {
		return sp.norms[ord]
	}
	return 1
}
