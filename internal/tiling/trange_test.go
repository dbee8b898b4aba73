package tiling

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiledRangeOrdinalBijection(t *testing.T) {
	tr := MustTiledRange(
		MustRange1(0, 3, 7, 10),
		MustRange1(0, 5, 9),
		MustRange1(0, 2, 4, 6, 8),
	)
	require.Equal(t, 3*2*4, tr.NumTiles())

	// Ordinal -> index -> ordinal is the identity, and every index is distinct.
	seen := make(map[string]bool)
	for ord := 0; ord < tr.NumTiles(); ord++ {
		idx := tr.Idx(ord)
		assert.Equal(t, ord, tr.Ord(idx))
		key := fmt.Sprintf("%v", idx)
		assert.False(t, seen[key], "duplicate index %v", idx)
		seen[key] = true
	}
}

func TestTiledRangeEqualDiff(t *testing.T) {
	a := MustTiledRange(MustRange1(0, 3, 7), MustRange1(0, 5, 9))
	b := MustTiledRange(MustRange1(0, 3, 7), MustRange1(0, 5, 9))
	c := MustTiledRange(MustRange1(0, 3, 7), MustRange1(0, 4, 9))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	if diff := cmp.Diff(a.Dim(1).Bounds(), c.Dim(1).Bounds()); diff == "" {
		t.Error("expected differing boundary lists")
	}
}

func TestTiledRangeRowMajorOrder(t *testing.T) {
	tr := MustTiledRange(MustRange1(0, 1, 2), MustRange1(0, 1, 2, 3))

	// Last dimension varies fastest.
	assert.Equal(t, []int{0, 0}, tr.Idx(0))
	assert.Equal(t, []int{0, 1}, tr.Idx(1))
	assert.Equal(t, []int{0, 2}, tr.Idx(2))
	assert.Equal(t, []int{1, 0}, tr.Idx(3))
	assert.Equal(t, 5, tr.Ord([]int{1, 2}))
}

func TestTiledRangeTileBounds(t *testing.T) {
	tr := MustTiledRange(MustRange1(0, 3, 7, 10), MustRange1(0, 5, 9))

	lo, hi := tr.TileBounds(tr.Ord([]int{1, 1}))
	assert.Equal(t, []int{3, 5}, lo)
	assert.Equal(t, []int{7, 9}, hi)
	assert.Equal(t, []int{4, 4}, tr.TileExtents(tr.Ord([]int{1, 1})))
	assert.Equal(t, 90, tr.Elements())
}

func TestTiledRangeElementToTile(t *testing.T) {
	tr := MustTiledRange(MustRange1(0, 3, 7, 10, 20, 100), MustRange1(0, 4, 8))

	idx, ok := tr.ElementToTile([]int{0, 0})
	require.True(t, ok)
	assert.Equal(t, []int{0, 0}, idx)

	idx, ok = tr.ElementToTile([]int{99, 7})
	require.True(t, ok)
	assert.Equal(t, []int{4, 1}, idx)

	_, ok = tr.ElementToTile([]int{100, 0})
	assert.False(t, ok)
}

func TestTiledRangePermute(t *testing.T) {
	tr := MustTiledRange(MustRange1(0, 3, 7, 10), MustRange1(0, 5, 9))
	perm := MustPermutation(1, 0)

	p := tr.Permute(perm)
	assert.True(t, p.Dim(0).Equal(tr.Dim(1)))
	assert.True(t, p.Dim(1).Equal(tr.Dim(0)))

	// Identity permutation preserves the tiling.
	assert.True(t, tr.Permute(nil).Equal(tr))
}

func TestPermutationApplyInverse(t *testing.T) {
	perm := MustPermutation(2, 0, 1)
	idx := []int{10, 20, 30}

	out := perm.Apply(idx)
	assert.Equal(t, []int{20, 30, 10}, out)
	assert.Equal(t, idx, perm.Inverse().Apply(out))
	assert.True(t, perm.Inverse().Inverse().IsIdentity() == perm.IsIdentity())
}

func TestPermutationCompose(t *testing.T) {
	p := MustPermutation(2, 0, 1)
	q := MustPermutation(1, 2, 0)
	idx := []int{10, 20, 30}

	assert.Equal(t, q.Apply(p.Apply(idx)), p.Compose(q).Apply(idx))
	assert.Equal(t, p, p.Compose(nil))
	assert.Equal(t, q, Permutation(nil).Compose(q))
	assert.True(t, p.Compose(p.Inverse()).IsIdentity())
}

func TestPermutationValidation(t *testing.T) {
	_, err := NewPermutation(0, 0, 1)
	assert.Error(t, err)
	_, err = NewPermutation(0, 3)
	assert.Error(t, err)

	p := MustPermutation(0, 1, 2)
	assert.True(t, p.IsIdentity())
	assert.True(t, Permutation(nil).IsIdentity())
}
