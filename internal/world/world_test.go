package world

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessell-ml/tessell/internal/pmap"
	"github.com/tessell-ml/tessell/internal/task"
)

func testConfig() Config {
	return Config{Pool: task.Config{Workers: 2}, MaxFetches: 4}
}

func TestGroupRanks(t *testing.T) {
	g := NewGroup(3, testConfig())
	defer g.Close()

	require.Equal(t, 3, g.Size())
	for r := 0; r < 3; r++ {
		assert.Equal(t, r, g.World(r).Rank())
		assert.Equal(t, 3, g.World(r).Size())
	}
}

func TestRunVisitsEveryRank(t *testing.T) {
	g := NewGroup(4, testConfig())
	defer g.Close()

	var visited atomic.Int64
	err := g.Run(func(w *World) error {
		visited.Add(1 << uint(w.Rank()))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0b1111), visited.Load())
}

func TestRunPropagatesError(t *testing.T) {
	g := NewGroup(2, testConfig())
	defer g.Close()

	boom := errors.New("rank failure")
	err := g.Run(func(w *World) error {
		if w.Rank() == 1 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestFenceWaitsForTasks(t *testing.T) {
	g := NewGroup(2, testConfig())
	defer g.Close()

	var done atomic.Int64
	err := g.Run(func(w *World) error {
		for i := 0; i < 50; i++ {
			w.Pool().Submit(task.Normal, func() { done.Add(1) })
		}
		w.Fence()
		if n := done.Load(); n != 100 {
			return errors.Errorf("fence released with %d of 100 tasks done", n)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestFenceWaitsForCrossRankChains(t *testing.T) {
	g := NewGroup(2, testConfig())
	defer g.Close()

	// A task on rank 0 schedules a task on rank 1 which schedules back.
	var hops atomic.Int64
	err := g.Run(func(w *World) error {
		if w.Rank() == 0 {
			w.Pool().Submit(task.Normal, func() {
				hops.Add(1)
				w.send(1, task.High, func() {
					hops.Add(1)
					w.send(0, task.High, func() { hops.Add(1) })
				})
			})
		}
		w.Fence()
		if n := hops.Load(); n != 3 {
			return errors.Errorf("fence released mid-chain at %d hops", n)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestContainerLocalSetFind(t *testing.T) {
	g := NewGroup(1, testConfig())
	defer g.Close()

	w := g.World(0)
	c := NewContainer[int](w, pmap.NewBlocked(0, 1, 10), ContainerOpts[int]{})

	f := c.Find(3)
	assert.False(t, f.Probe(), "find before set is unresolved")

	c.Set(3, 33)
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 33, v)
}

func TestContainerDoubleSetPanics(t *testing.T) {
	g := NewGroup(1, testConfig())
	defer g.Close()

	c := NewContainer[int](g.World(0), pmap.NewBlocked(0, 1, 4), ContainerOpts[int]{})
	c.Set(0, 1)
	assert.Panics(t, func() { c.Set(0, 2) })
}

func TestContainerSetOfRemoteOrdinalPanics(t *testing.T) {
	g := NewGroup(2, testConfig())
	defer g.Close()

	// Ordinals 0..4 belong to rank 0 under a blocked map of 10 tiles.
	c := NewContainer[int](g.World(1), pmap.NewBlocked(1, 2, 10), ContainerOpts[int]{})
	assert.Panics(t, func() { c.Set(0, 1) })
}

func TestContainerRemoteFetch(t *testing.T) {
	g := NewGroup(2, testConfig())
	defer g.Close()

	err := g.Run(func(w *World) error {
		pm := pmap.NewCyclic(w.Rank(), 2, 8)
		c := NewContainer[int](w, pm, ContainerOpts[int]{})
		for ord := range pm.Local() {
			c.Set(ord, ord*10)
		}
		// Every rank reads every ordinal, local or remote.
		for ord := 0; ord < 8; ord++ {
			v, err := c.Get(context.Background(), ord)
			if err != nil {
				return err
			}
			if v != ord*10 {
				return errors.Errorf("ordinal %d: got %d", ord, v)
			}
		}
		w.Fence()
		return nil
	})
	require.NoError(t, err)
}

func TestContainerRemoteFetchBeforeSet(t *testing.T) {
	g := NewGroup(2, testConfig())
	defer g.Close()

	err := g.Run(func(w *World) error {
		pm := pmap.NewBlocked(w.Rank(), 2, 4)
		c := NewContainer[int](w, pm, ContainerOpts[int]{})
		if w.Rank() == 1 {
			// Request rank 0's tile before rank 0 produces it.
			f := c.Find(0)
			w.Fence() // rank 0 sets only after this fence
			w.Fence()
			v, err := f.Get(context.Background())
			if err != nil {
				return err
			}
			if v != 7 {
				return errors.Errorf("got %d, want 7", v)
			}
			return nil
		}
		w.Fence()
		c.Set(0, 7)
		w.Fence()
		return nil
	})
	require.NoError(t, err)
}

func TestContainerCloneOnDelivery(t *testing.T) {
	g := NewGroup(2, testConfig())
	defer g.Close()

	type payload struct{ data []int }
	err := g.Run(func(w *World) error {
		pm := pmap.NewBlocked(w.Rank(), 2, 2)
		c := NewContainer[*payload](w, pm, ContainerOpts[*payload]{
			Clone: func(p *payload) *payload {
				d := make([]int, len(p.data))
				copy(d, p.data)
				return &payload{data: d}
			},
		})
		for ord := range pm.Local() {
			c.Set(ord, &payload{data: []int{ord, ord}})
		}
		// Blocked map over 2 tiles: rank r owns ordinal r.
		remote := 1 - w.Rank()
		p, err := c.Get(context.Background(), remote)
		if err != nil {
			return err
		}
		// The delivered copy is exclusively ours; scribbling on it must not
		// disturb the owner.
		p.data[0] = -1
		w.Fence()
		mine, err := c.Get(context.Background(), w.Rank())
		if err != nil {
			return err
		}
		if mine.data[0] != w.Rank() {
			return errors.Errorf("owner copy corrupted: %v", mine.data)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestLocalOnlyContainerRejectsRemoteFind(t *testing.T) {
	g := NewGroup(2, testConfig())
	defer g.Close()

	c := NewContainer[int](g.World(0), pmap.NewBlocked(0, 2, 10), ContainerOpts[int]{LocalOnly: true})
	assert.Panics(t, func() { c.Find(9) }) // rank 1's ordinal
	assert.NotPanics(t, func() { c.Find(0) })
}

func TestRegistrationOrderMismatchPanics(t *testing.T) {
	g := NewGroup(2, testConfig())
	defer g.Close()

	// Only rank 0 registers the container; addressing its peer on rank 1
	// directly is a programming error.
	c := NewContainer[int](g.World(0), pmap.NewBlocked(0, 2, 4), ContainerOpts[int]{})
	_ = c
	assert.Panics(t, func() { g.World(1).container(0) })
}

func TestFetchWaitsForPeerRegistration(t *testing.T) {
	g := NewGroup(2, testConfig())
	defer g.Close()
	ctx := context.Background()

	// Rank 0 constructs its container and fetches before rank 1 has even
	// registered its peer: the fetch parks until registration catches up.
	pm0 := pmap.NewBlocked(0, 2, 4)
	c0 := NewContainer[int](g.World(0), pm0, ContainerOpts[int]{})
	f := c0.Find(3) // rank 1's ordinal

	pm1 := pmap.NewBlocked(1, 2, 4)
	c1 := NewContainer[int](g.World(1), pm1, ContainerOpts[int]{})
	c1.Set(3, 42)

	v, err := f.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
