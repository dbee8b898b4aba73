// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package world provides the distributed execution context for tile
// evaluation.
//
// A Group is a set of cooperating SPMD worlds in one process, each with a
// rank and a task pool, connected by an in-memory active-message router.
// Every component of the evaluation pipeline receives its World explicitly
// at construction; there is no ambient global context.
package world

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grailbio/base/limiter"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tessell-ml/tessell/internal/task"
)

// Config controls per-world resources.
type Config struct {
	Pool       task.Config // Task pool sizing.
	MaxFetches int         // Bound on concurrent blocking remote retrievals per world.
}

// DefaultConfig returns a configuration sized to the host.
func DefaultConfig() Config {
	return Config{Pool: task.DefaultConfig(), MaxFetches: 32}
}

// Group is a set of cooperating worlds. All worlds in a group share one
// fence and route messages to each other by rank.
type Group struct {
	id     uuid.UUID
	worlds []*World

	mu      sync.Mutex
	cond    *sync.Cond
	arrived int
	gen     int
}

// NewGroup creates n worlds with ranks 0..n-1.
func NewGroup(n int, cfg Config) *Group {
	if n <= 0 {
		panic(errors.Errorf("world: group size must be positive, got %d", n))
	}
	if cfg.MaxFetches <= 0 {
		cfg.MaxFetches = DefaultConfig().MaxFetches
	}
	g := &Group{
		id:     uuid.New(),
		worlds: make([]*World, n),
	}
	g.cond = sync.NewCond(&g.mu)
	for rank := 0; rank < n; rank++ {
		w := &World{
			rank:       rank,
			size:       n,
			group:      g,
			pool:       task.NewPool(cfg.Pool),
			fetchLimit: limiter.New(),
			containers: make(map[int]any),
		}
		w.regCond = sync.NewCond(&w.mu)
		w.fetchLimit.Release(cfg.MaxFetches)
		g.worlds[rank] = w
	}
	return g
}

// Size returns the number of worlds in the group.
func (g *Group) Size() int { return len(g.worlds) }

// World returns the world at the given rank.
func (g *Group) World(rank int) *World { return g.worlds[rank] }

// Run executes fn once per world, each on its own goroutine, and returns
// the first error. This is the SPMD entry point: fn plays the role of one
// rank's main thread.
func (g *Group) Run(fn func(*World) error) error {
	var eg errgroup.Group
	for _, w := range g.worlds {
		eg.Go(func() error { return fn(w) })
	}
	return eg.Wait()
}

// Close stops every world's task pool, draining queued work first.
func (g *Group) Close() {
	for _, w := range g.worlds {
		w.pool.Close()
	}
}

// String identifies the group in debug output.
func (g *Group) String() string {
	return fmt.Sprintf("world.Group(%s, size=%d)", g.id, len(g.worlds))
}

// quiesced reports whether every pool in the group is idle.
func (g *Group) quiesced() bool {
	for _, w := range g.worlds {
		if w.pool.Active() != 0 {
			return false
		}
	}
	return true
}

// fence blocks until every rank has entered the fence and all task pools
// have quiesced. It is the only sanctioned coarse blocking point.
func (g *Group) fence() {
	g.mu.Lock()
	gen := g.gen
	g.arrived++
	if g.arrived < len(g.worlds) {
		for gen == g.gen {
			g.cond.Wait()
		}
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	// Last arriver: wait for quiescence, observed stably twice so a task
	// scheduled between reads cannot slip through.
	for {
		if g.quiesced() {
			time.Sleep(50 * time.Microsecond)
			if g.quiesced() {
				break
			}
		}
		time.Sleep(100 * time.Microsecond)
	}

	g.mu.Lock()
	g.arrived = 0
	g.gen++
	g.mu.Unlock()
	g.cond.Broadcast()
}

// World is one rank's view of the group: its identity, task pool, and
// container registry.
type World struct {
	rank       int
	size       int
	group      *Group
	pool       *task.Pool
	fetchLimit *limiter.Limiter

	mu         sync.Mutex
	regCond    *sync.Cond
	nextID     int
	containers map[int]any
}

// Rank returns this world's rank within the group.
func (w *World) Rank() int { return w.rank }

// Size returns the number of worlds in the group.
func (w *World) Size() int { return w.size }

// Group returns the group this world belongs to.
func (w *World) Group() *Group { return w.group }

// Pool returns this world's task pool.
func (w *World) Pool() *task.Pool { return w.pool }

// Fence blocks until all ranks reach the fence and all pending work in the
// group has completed.
func (w *World) Fence() { w.group.fence() }

// send schedules fn on the pool of the world at rank, at the given
// priority. This is the in-memory rendering of an active message.
func (w *World) send(rank int, pri task.Priority, fn func()) {
	w.group.worlds[rank].pool.Submit(pri, fn)
}

// register assigns the next container id. Containers must be registered in
// the same order on every rank; the returned id is how remote ranks address
// the container's peers.
func (w *World) register(c any) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.containers[id] = c
	w.regCond.Broadcast()
	return id
}

func (w *World) container(id int) any {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.containers[id]
	if !ok {
		panic(errors.Errorf("world: rank %d has no container %d; containers must be registered in the same order on every rank", w.rank, id))
	}
	return c
}

// containerWait returns the container with id, waiting out registration if
// this rank has not reached it yet. Fetches arrive from ranks that are
// ahead in plan construction; registration always comes from the rank's
// own program, never from a task, so the wait resolves.
func (w *World) containerWait(id int) any {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		if c, ok := w.containers[id]; ok {
			return c
		}
		w.regCond.Wait()
	}
}
