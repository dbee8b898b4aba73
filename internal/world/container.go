// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package world

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/tessell-ml/tessell/internal/future"
	"github.com/tessell-ml/tessell/internal/pmap"
	"github.com/tessell-ml/tessell/internal/task"
)

// ContainerOpts configures a distributed container.
type ContainerOpts[V any] struct {
	// Clone copies a value delivered to a remote requester, so the
	// delivered copy belongs solely to the requester. Nil means values are
	// shared as-is (appropriate for immutable values).
	Clone func(V) V
	// LocalOnly forbids remote access. Containers holding unforced lazy
	// tiles are local-only: a lazy tile must never cross the wire.
	LocalOnly bool
}

// Container is a write-once distributed map from tile ordinal to a value of
// type V. Ownership follows the process map fixed at construction. A find
// that precedes the owner's set returns an unresolved future; setting the
// same ordinal twice is a programming error.
//
// Containers must be created in the same order on every rank of the group.
type Container[V any] struct {
	w    *World
	id   int
	pm   pmap.ProcessMap
	opts ContainerOpts[V]

	mu    sync.Mutex
	tiles map[int]*future.Future[V]
}

// NewContainer creates this rank's instance of a distributed container.
func NewContainer[V any](w *World, pm pmap.ProcessMap, opts ContainerOpts[V]) *Container[V] {
	c := &Container[V]{
		w:     w,
		pm:    pm,
		opts:  opts,
		tiles: make(map[int]*future.Future[V]),
	}
	c.id = w.register(c)
	return c
}

// World returns the world this container instance lives on.
func (c *Container[V]) World() *World { return c.w }

// PMap returns the container's ownership map.
func (c *Container[V]) PMap() pmap.ProcessMap { return c.pm }

// localFuture returns the future backing ord on this rank, creating it if
// no find or set has touched it yet.
func (c *Container[V]) localFuture(ord int) *future.Future[V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.tiles[ord]
	if !ok {
		f = future.New[V]()
		c.tiles[ord] = f
	}
	return f
}

// Set resolves the local tile at ord to v. The ordinal must be owned by this
// rank, and may be set at most once.
func (c *Container[V]) Set(ord int, v V) {
	if !c.pm.IsLocal(ord) {
		panic(errors.Errorf("world: set of ordinal %d on rank %d, owner is %d", ord, c.w.rank, c.pm.Owner(ord)))
	}
	f := c.localFuture(ord)
	if f.Probe() {
		panic(errors.Errorf("world: ordinal %d set twice", ord))
	}
	f.Set(v)
}

// SetFuture resolves the local tile at ord from src once src completes.
// Errors on src carry over to the tile.
func (c *Container[V]) SetFuture(ord int, src *future.Future[V]) {
	if !c.pm.IsLocal(ord) {
		panic(errors.Errorf("world: set of ordinal %d on rank %d, owner is %d", ord, c.w.rank, c.pm.Owner(ord)))
	}
	dst := c.localFuture(ord)
	if dst.Probe() {
		panic(errors.Errorf("world: ordinal %d set twice", ord))
	}
	src.OnReady(func(g *future.Future[V]) {
		v, err := g.Value()
		if err != nil {
			dst.SetErr(err)
			return
		}
		dst.Set(v)
	})
}

// Find returns a future for the tile at ord. Locally owned ordinals resolve
// from this rank's store; remote ordinals trigger a fetch from the owner
// and resolve when the owner's tile is delivered. Find never blocks.
func (c *Container[V]) Find(ord int) *future.Future[V] {
	if c.pm.IsLocal(ord) {
		return c.localFuture(ord)
	}
	if c.opts.LocalOnly {
		panic(errors.Errorf("world: remote find of ordinal %d on a local-only container", ord))
	}

	// One cached fetch per ordinal per rank.
	c.mu.Lock()
	if f, ok := c.tiles[ord]; ok {
		c.mu.Unlock()
		return f
	}
	f := future.New[V]()
	c.tiles[ord] = f
	c.mu.Unlock()

	owner := c.pm.Owner(ord)
	home := c.w.rank
	id := c.id
	group := c.w.group
	// Active message to the owner: chain a delivery back to this rank off
	// the owner's future for the tile.
	c.w.send(owner, task.High, func() {
		peer := group.worlds[owner].containerWait(id).(*Container[V])
		peer.localFuture(ord).OnReady(func(g *future.Future[V]) {
			group.worlds[owner].send(home, task.High, func() {
				v, err := g.Value()
				if err != nil {
					f.SetErr(errors.Wrapf(err, "world: fetch of ordinal %d from rank %d", ord, owner))
					return
				}
				if c.opts.Clone != nil {
					v = c.opts.Clone(v)
				}
				f.Set(v)
			})
		})
	})
	return f
}

// Get blocks until the tile at ord is available and returns it. Concurrent
// Gets are bounded by the world's fetch limit. This is the coarse,
// user-facing retrieval path; evaluator tasks use Find and continuations.
func (c *Container[V]) Get(ctx context.Context, ord int) (V, error) {
	if err := c.w.fetchLimit.Acquire(ctx, 1); err != nil {
		var zero V
		return zero, err
	}
	defer c.w.fetchLimit.Release(1)
	return c.Find(ord).Get(ctx)
}
