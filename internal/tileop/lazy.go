// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tileop

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/tessell-ml/tessell/internal/tile"
)

// Pending is a tile whose evaluated value may not exist yet: either an
// already-evaluated tile or a deferred operator application. It is a small
// closed set of wrapper types selected at construction, not probed by type
// identity at evaluation time.
type Pending[T tile.Elem] interface {
	// Force produces the evaluated tile. A lazy tile may be forced at most
	// once.
	Force() *tile.Tile[T]
	// Consumable reports whether the forced tile's storage belongs solely
	// to the caller and may be destructively reused.
	Consumable() bool
}

// Eager wraps an already-evaluated tile.
type Eager[T tile.Elem] struct {
	tile       *tile.Tile[T]
	consumable bool
}

// NewEager wraps t. When consumable is true the caller asserts exclusive
// ownership of t's storage.
func NewEager[T tile.Elem](t *tile.Tile[T], consumable bool) Eager[T] {
	return Eager[T]{tile: t, consumable: consumable}
}

func (e Eager[T]) Force() *tile.Tile[T] { return e.tile }
func (e Eager[T]) Consumable() bool     { return e.consumable }

// LazyTile defers an operator application to an array tile. It owns the
// input tile, shares the evaluator's immutable operator object, and records
// whether the input may be consumed. It converts to the evaluated tile
// exactly once, on demand.
type LazyTile[T tile.Elem] struct {
	tile    *tile.Tile[T]
	op      Unary[T] // shared across all tiles of one evaluator, read-only
	consume bool
	forced  atomic.Bool
}

// NewLazyTile creates a deferred application of op to t. consume marks t's
// storage as exclusively owned, allowing op's consuming path.
func NewLazyTile[T tile.Elem](t *tile.Tile[T], op Unary[T], consume bool) *LazyTile[T] {
	return &LazyTile[T]{tile: t, op: op, consume: consume}
}

// Force applies the deferred operator. Forcing twice is a programming
// error: the first forcing may have consumed the input tile's storage.
func (l *LazyTile[T]) Force() *tile.Tile[T] {
	if l.forced.Swap(true) {
		panic(errors.New("tileop: lazy tile forced twice"))
	}
	if l.consume {
		return l.op.Consume(l.tile)
	}
	return l.op.Apply(l.tile)
}

// Consumable reports whether the input tile was marked consumable, which
// in turn permits the downstream wrapper's consuming path on the forced
// result.
func (l *LazyTile[T]) Consumable() bool { return l.consume }

// MarshalBinary guards against serializing an unforced lazy tile. Lazy
// tiles never cross the wire; the owning evaluator's store is local-only.
func (l *LazyTile[T]) MarshalBinary() ([]byte, error) {
	panic(errors.New("tileop: lazy tile serialized before forcing"))
}
