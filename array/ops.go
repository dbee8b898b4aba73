// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package array

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tessell-ml/tessell/internal/dist"
	"github.com/tessell-ml/tessell/internal/shape"
	"github.com/tessell-ml/tessell/internal/tileop"
)

// Materialize evaluates an expression tree and copies its result tiles into
// a new distributed array. Every rank of the group must call it on its
// instance of the same tree.
func Materialize[T Elem](ctx context.Context, src Source[T]) (*Array[T], error) {
	if err := src.Evaluate(ctx); err != nil {
		return nil, err
	}
	if err := src.Wait(ctx); err != nil {
		return nil, err
	}
	out := dist.NewArray[T](src.World(), src.TRange(), src.Shape(), src.PMap())
	for ord := range src.PMap().Local() {
		if src.Shape().IsZero(ord) {
			continue
		}
		p, err := src.Find(ord).Get(ctx)
		if err != nil {
			return nil, err
		}
		out.SetTile(ord, p.Force())
	}
	return out, nil
}

// Scale returns a scaled by factor.
func Scale[T Elem](ctx context.Context, a *Array[T], factor T) (*Array[T], error) {
	shp := shape.Scale(a.Shape(), float64(factor))
	ev := dist.NewUnaryEval(dist.NewArraySource(a), tileop.Scale[T]{Factor: factor}, nil, shp, a.PMap())
	return Materialize[T](ctx, ev)
}

// Neg returns the elementwise negation of a.
func Neg[T Elem](ctx context.Context, a *Array[T]) (*Array[T], error) {
	ev := dist.NewUnaryEval(dist.NewArraySource(a), tileop.Neg[T]{}, nil, a.Shape(), a.PMap())
	return Materialize[T](ctx, ev)
}

// MapElems applies f to every element of a. f must be safe for concurrent
// use. The result keeps a's shape, so f must map zero to zero on arrays
// with structural sparsity.
func MapElems[T Elem](ctx context.Context, a *Array[T], f func(T) T) (*Array[T], error) {
	ev := dist.NewUnaryEval(dist.NewArraySource(a), tileop.Fn[T]{F: f}, nil, a.Shape(), a.PMap())
	return Materialize[T](ctx, ev)
}

// Permute returns a with its dimensions reordered by perm.
func Permute[T Elem](ctx context.Context, a *Array[T], perm Permutation) (*Array[T], error) {
	shp := a.Shape()
	if sp, ok := shp.(*shape.Sparse); ok {
		src := a.TRange()
		dst := src.Permute(perm)
		shp = sp.Permute(func(ord int) int { return dst.Ord(perm.Apply(src.Idx(ord))) })
	}
	pm := NewBlocked(a.World().Rank(), a.World().Size(), a.TRange().NumTiles())
	ev := dist.NewUnaryEval(dist.NewArraySource(a), tileop.Noop[T]{}, perm, shp, pm)
	return Materialize[T](ctx, ev)
}

// Add returns the elementwise sum of a and b, which must share a tiling.
func Add[T Elem](ctx context.Context, a, b *Array[T]) (*Array[T], error) {
	return binary(ctx, a, b, tileop.Add[T]{}, shape.Add)
}

// Subt returns the elementwise difference of a and b.
func Subt[T Elem](ctx context.Context, a, b *Array[T]) (*Array[T], error) {
	return binary(ctx, a, b, tileop.Subt[T]{}, shape.Add)
}

// Mult returns the Hadamard product of a and b.
func Mult[T Elem](ctx context.Context, a, b *Array[T]) (*Array[T], error) {
	return binary(ctx, a, b, tileop.Mult[T]{}, shape.Mult)
}

func binary[T Elem](ctx context.Context, a, b *Array[T], op tileop.Binary[T], shapeOf func(Shape, Shape) (Shape, error)) (*Array[T], error) {
	shp, err := shapeOf(a.Shape(), b.Shape())
	if err != nil {
		return nil, err
	}
	ev, err := dist.NewBinaryEval(dist.NewArraySource(a), dist.NewArraySource(b), op, nil, shp, a.PMap())
	if err != nil {
		return nil, err
	}
	return Materialize[T](ctx, ev)
}

// Contract returns the matrix product of a (m by k tiles) and b (k by n
// tiles). The result is blocked over the group.
func Contract[T Elem](ctx context.Context, a, b *Array[T]) (*Array[T], error) {
	if a.TRange().Rank() != 2 || b.TRange().Rank() != 2 {
		return nil, errors.Errorf("array: contraction wants matrices, got ranks %d and %d",
			a.TRange().Rank(), b.TRange().Rank())
	}
	m := a.TRange().Dim(0).Tiles()
	n := b.TRange().Dim(1).Tiles()
	k := a.TRange().Dim(1).Tiles()
	shp, err := shape.Contract(a.Shape(), b.Shape(), m, k, n)
	if err != nil {
		return nil, err
	}
	pm := NewBlocked(a.World().Rank(), a.World().Size(), m*n)
	ev, err := dist.NewContractEval(dist.NewArraySource(a), dist.NewArraySource(b), shp, pm)
	if err != nil {
		return nil, err
	}
	return Materialize[T](ctx, ev)
}
