// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tile

import (
	"github.com/pkg/errors"
)

// Elementwise kernels. The *To variants write through dst's storage and
// return dst; they are the consuming paths.

// Add returns a + b in fresh storage.
func Add[T Elem](a, b *Tile[T]) *Tile[T] {
	sameExtents(a, b)
	out := New[T](a.extents...)
	for i := range out.data {
		out.data[i] = a.data[i] + b.data[i]
	}
	return out
}

// AddTo accumulates src into dst and returns dst.
func AddTo[T Elem](dst, src *Tile[T]) *Tile[T] {
	sameExtents(dst, src)
	for i := range dst.data {
		dst.data[i] += src.data[i]
	}
	return dst
}

// Sub returns a - b in fresh storage.
func Sub[T Elem](a, b *Tile[T]) *Tile[T] {
	sameExtents(a, b)
	out := New[T](a.extents...)
	for i := range out.data {
		out.data[i] = a.data[i] - b.data[i]
	}
	return out
}

// SubTo subtracts src from dst in place and returns dst.
func SubTo[T Elem](dst, src *Tile[T]) *Tile[T] {
	sameExtents(dst, src)
	for i := range dst.data {
		dst.data[i] -= src.data[i]
	}
	return dst
}

// Mult returns the Hadamard product a * b in fresh storage.
func Mult[T Elem](a, b *Tile[T]) *Tile[T] {
	sameExtents(a, b)
	out := New[T](a.extents...)
	for i := range out.data {
		out.data[i] = a.data[i] * b.data[i]
	}
	return out
}

// MultTo multiplies dst by src elementwise in place and returns dst.
func MultTo[T Elem](dst, src *Tile[T]) *Tile[T] {
	sameExtents(dst, src)
	for i := range dst.data {
		dst.data[i] *= src.data[i]
	}
	return dst
}

// Scale returns factor * t in fresh storage.
func Scale[T Elem](t *Tile[T], factor T) *Tile[T] {
	out := New[T](t.extents...)
	for i, v := range t.data {
		out.data[i] = v * factor
	}
	return out
}

// ScaleTo scales t in place and returns it.
func ScaleTo[T Elem](t *Tile[T], factor T) *Tile[T] {
	for i := range t.data {
		t.data[i] *= factor
	}
	return t
}

// Neg returns -t in fresh storage.
func Neg[T Elem](t *Tile[T]) *Tile[T] {
	out := New[T](t.extents...)
	for i, v := range t.data {
		out.data[i] = -v
	}
	return out
}

// NegTo negates t in place and returns it.
func NegTo[T Elem](t *Tile[T]) *Tile[T] {
	for i := range t.data {
		t.data[i] = -t.data[i]
	}
	return t
}

// Map returns f applied elementwise in fresh storage.
func Map[T Elem](t *Tile[T], f func(T) T) *Tile[T] {
	out := New[T](t.extents...)
	for i, v := range t.data {
		out.data[i] = f(v)
	}
	return out
}

// MapTo applies f elementwise in place and returns t.
func MapTo[T Elem](t *Tile[T], f func(T) T) *Tile[T] {
	for i, v := range t.data {
		t.data[i] = f(v)
	}
	return t
}

// Gemm accumulates the matrix product a x b into acc and returns acc. All
// three tiles must be rank 2, with a of extents [m, k], b of [k, n], and
// acc of [m, n]. This is the partial-product combine used by contraction.
func Gemm[T Elem](acc, a, b *Tile[T]) *Tile[T] {
	if acc.Rank() != 2 || a.Rank() != 2 || b.Rank() != 2 {
		panic(errors.Errorf("tile: gemm needs rank-2 tiles, got %d, %d, %d", acc.Rank(), a.Rank(), b.Rank()))
	}
	m, k := a.extents[0], a.extents[1]
	k2, n := b.extents[0], b.extents[1]
	if k != k2 || acc.extents[0] != m || acc.extents[1] != n {
		panic(errors.Errorf("tile: gemm extent mismatch %v x %v -> %v", a.extents, b.extents, acc.extents))
	}
	for i := 0; i < m; i++ {
		for kk := 0; kk < k; kk++ {
			av := a.data[i*k+kk]
			if av == 0 {
				continue
			}
			row := b.data[kk*n : (kk+1)*n]
			out := acc.data[i*n : (i+1)*n]
			for j, bv := range row {
				out[j] += av * bv
			}
		}
	}
	return acc
}
