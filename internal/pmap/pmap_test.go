package pmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkPartition verifies that the maps for all ranks of one map family
// agree on ownership and together cover every ordinal exactly once.
func checkPartition(t *testing.T, maps []ProcessMap, tiles int) {
	t.Helper()
	owned := make([]int, tiles)
	for _, m := range maps {
		for ord := range m.Local() {
			owned[ord]++
			assert.True(t, m.IsLocal(ord))
			assert.Equal(t, m.Rank(), m.Owner(ord))
		}
	}
	for ord := 0; ord < tiles; ord++ {
		require.Equal(t, 1, owned[ord], "ordinal %d owned %d times", ord, owned[ord])
		// Every rank agrees on the owner.
		owner := maps[0].Owner(ord)
		for _, m := range maps[1:] {
			assert.Equal(t, owner, m.Owner(ord))
		}
	}
}

func TestBlockedPartition(t *testing.T) {
	const size, tiles = 4, 37
	maps := make([]ProcessMap, size)
	for r := 0; r < size; r++ {
		maps[r] = NewBlocked(r, size, tiles)
	}
	checkPartition(t, maps, tiles)
}

func TestBlockedContiguous(t *testing.T) {
	m := NewBlocked(1, 3, 10)
	var local []int
	for ord := range m.Local() {
		local = append(local, ord)
	}
	assert.Equal(t, []int{4, 5, 6, 7}, local)
}

func TestCyclicPartition(t *testing.T) {
	const size, tiles = 3, 20
	maps := make([]ProcessMap, size)
	for r := 0; r < size; r++ {
		maps[r] = NewCyclic(r, size, tiles)
	}
	checkPartition(t, maps, tiles)

	var local []int
	for ord := range maps[1].Local() {
		local = append(local, ord)
	}
	assert.Equal(t, []int{1, 4, 7, 10, 13, 16, 19}, local)
}

func TestHashPartition(t *testing.T) {
	const size, tiles = 5, 100
	maps := make([]ProcessMap, size)
	for r := 0; r < size; r++ {
		maps[r] = NewHash(r, size, tiles)
	}
	checkPartition(t, maps, tiles)
}

func TestHashDeterministic(t *testing.T) {
	a := NewHash(0, 7, 50)
	b := NewHash(3, 7, 50)
	for ord := 0; ord < 50; ord++ {
		assert.Equal(t, a.Owner(ord), b.Owner(ord))
	}
}

func TestSingleRankOwnsEverything(t *testing.T) {
	for _, m := range []ProcessMap{NewBlocked(0, 1, 9), NewCyclic(0, 1, 9), NewHash(0, 1, 9)} {
		n := 0
		for ord := range m.Local() {
			assert.True(t, m.IsLocal(ord))
			n++
		}
		assert.Equal(t, 9, n)
	}
}

func TestInvalidParameters(t *testing.T) {
	assert.Panics(t, func() { NewBlocked(2, 2, 10) })
	assert.Panics(t, func() { NewCyclic(-1, 2, 10) })
	assert.Panics(t, func() { NewHash(0, 0, 10) })
}
