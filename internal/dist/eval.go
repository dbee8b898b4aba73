// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dist implements distributed evaluation of tile-tensor
// expressions. An expression is planned as a tree of Sources; evaluating
// the root spawns tile tasks bottom-up across the group, and tiles flow
// between ranks through write-once containers without any evaluator
// blocking. Only Wait and the group fence block.
package dist

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/tessell-ml/tessell/internal/future"
	"github.com/tessell-ml/tessell/internal/pmap"
	"github.com/tessell-ml/tessell/internal/shape"
	"github.com/tessell-ml/tessell/internal/tile"
	"github.com/tessell-ml/tessell/internal/tileop"
	"github.com/tessell-ml/tessell/internal/tiling"
	"github.com/tessell-ml/tessell/internal/world"
)

// Source produces the tiles of one node of an expression tree. Concrete
// sources are the evaluators in this package plus ArraySource.
type Source[T tile.Elem] interface {
	World() *world.World
	TRange() *tiling.TiledRange
	Shape() shape.Shape
	PMap() pmap.ProcessMap

	// Find returns a future for the pending tile at ord. It never blocks;
	// remote ordinals resolve when the owner's tile is delivered.
	Find(ord int) *future.Future[tileop.Pending[T]]

	// Evaluate spawns the tile tasks of this source and, recursively, of
	// its children. It submits work and returns without waiting for it.
	Evaluate(ctx context.Context) error

	// Wait blocks until every locally owned tile of this source has been
	// produced. Tile-level errors surface on retrieval, not here.
	Wait(ctx context.Context) error
}

// evalImpl is the per-evaluator hook set driven by evalBase.Evaluate.
type evalImpl interface {
	// evalChildren starts evaluation of child sources.
	evalChildren(ctx context.Context) error
	// waitChildren blocks until child structure (not child tiles) is
	// available; evaluators that consume child tiles through futures
	// return immediately.
	waitChildren(ctx context.Context) error
	// evalTiles spawns one task chain per locally owned nonzero tile and
	// returns how many it spawned.
	evalTiles(ctx context.Context) (int, error)
}

// evalBase carries the state shared by every evaluator: the result
// metadata, the write-once tile store, and production bookkeeping.
type evalBase[T tile.Elem] struct {
	w     *world.World
	tr    *tiling.TiledRange
	shp   shape.Shape
	pm    pmap.ProcessMap
	store *world.Container[tileop.Pending[T]]
	impl  evalImpl

	mu        sync.Mutex
	evaluated bool
	produced  int
	expected  int // -1 until evalTiles has returned
	tasks     int
	done      *future.Future[struct{}]
}

func newEvalBase[T tile.Elem](w *world.World, tr *tiling.TiledRange, shp shape.Shape, pm pmap.ProcessMap, localOnly bool) *evalBase[T] {
	if shp.Tiles() != tr.NumTiles() {
		panic(errors.Errorf("dist: shape covers %d tiles, tiled range has %d", shp.Tiles(), tr.NumTiles()))
	}
	if pm.Tiles() != tr.NumTiles() {
		panic(errors.Errorf("dist: process map covers %d tiles, tiled range has %d", pm.Tiles(), tr.NumTiles()))
	}
	return &evalBase[T]{
		w:   w,
		tr:  tr,
		shp: shp,
		pm:  pm,
		store: world.NewContainer[tileop.Pending[T]](w, pm, world.ContainerOpts[tileop.Pending[T]]{
			Clone:     clonePending[T],
			LocalOnly: localOnly,
		}),
		expected: -1,
		done:     future.New[struct{}](),
	}
}

// clonePending copies an evaluated tile for delivery to a remote requester.
// The requester holds the only reference to the copy, so the delivered tile
// is always consumable. Unforced lazy tiles never travel.
func clonePending[T tile.Elem](p tileop.Pending[T]) tileop.Pending[T] {
	e, ok := p.(tileop.Eager[T])
	if !ok {
		panic(errors.New("dist: lazy tile requested remotely"))
	}
	return tileop.NewEager(e.Force().Clone(), true)
}

func (e *evalBase[T]) World() *world.World        { return e.w }
func (e *evalBase[T]) TRange() *tiling.TiledRange { return e.tr }
func (e *evalBase[T]) Shape() shape.Shape         { return e.shp }
func (e *evalBase[T]) PMap() pmap.ProcessMap      { return e.pm }

func (e *evalBase[T]) Find(ord int) *future.Future[tileop.Pending[T]] {
	return e.store.Find(ord)
}

// Evaluate drives the evaluator: children first, then one task chain per
// locally owned nonzero tile. It must be invoked exactly once.
func (e *evalBase[T]) Evaluate(ctx context.Context) error {
	e.mu.Lock()
	if e.evaluated {
		e.mu.Unlock()
		panic(errors.New("dist: evaluator evaluated twice"))
	}
	e.evaluated = true
	e.mu.Unlock()

	if err := e.impl.evalChildren(ctx); err != nil {
		return err
	}
	if err := e.impl.waitChildren(ctx); err != nil {
		return err
	}
	n, err := e.impl.evalTiles(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.tasks = n
	e.expected = n
	fire := e.produced == e.expected
	e.mu.Unlock()
	if fire {
		e.done.Set(struct{}{})
	}
	return nil
}

// Wait blocks until every local tile task has produced its result.
func (e *evalBase[T]) Wait(ctx context.Context) error {
	_, err := e.done.Get(ctx)
	return err
}

// TaskCount reports how many local tile tasks evaluation spawned. Valid
// after Evaluate returns.
func (e *evalBase[T]) TaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks
}

// insert stores an already-produced tile at ord.
func (e *evalBase[T]) insert(ord int, p tileop.Pending[T]) {
	e.store.Set(ord, p)
	e.produce()
}

// insertFuture stores the eventual result of a tile task at ord. Errors on
// f carry over to the stored tile; either way the tile counts as produced.
func (e *evalBase[T]) insertFuture(ord int, f *future.Future[tileop.Pending[T]]) {
	e.store.SetFuture(ord, f)
	f.OnReady(func(*future.Future[tileop.Pending[T]]) { e.produce() })
}

func (e *evalBase[T]) produce() {
	e.mu.Lock()
	e.produced++
	fire := e.produced == e.expected
	e.mu.Unlock()
	if fire {
		e.done.Set(struct{}{})
	}
}

var (
	_ Source[float64] = (*ArraySource[float64])(nil)
	_ Source[float64] = (*ArrayEval[float64])(nil)
	_ Source[float64] = (*UnaryEval[float64])(nil)
	_ Source[float64] = (*BinaryEval[float64])(nil)
	_ Source[float64] = (*ContractEval[float64])(nil)
)

// sourceOrd maps a result-tile ordinal back to the child ordinal feeding
// it. invPerm is the inverse of the permutation applied by the evaluator;
// nil means the tilings coincide.
func sourceOrd(src, dst *tiling.TiledRange, invPerm tiling.Permutation, ord int) int {
	if invPerm == nil {
		return ord
	}
	return src.Ord(invPerm.Apply(dst.Idx(ord)))
}
