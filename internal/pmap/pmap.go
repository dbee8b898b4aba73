// Package pmap assigns tile ownership to worker processes.
//
// A ProcessMap is a total, deterministic function from tile ordinal to
// owning rank. It is fixed for the lifetime of an evaluation: tiles never
// migrate mid-evaluation. All ranks construct the same map from the same
// arguments, so ownership is agreed without communication.
package pmap

import (
	"encoding/binary"
	"hash/fnv"
	"iter"

	"github.com/pkg/errors"
)

// ProcessMap maps tile ordinals to owning ranks.
type ProcessMap interface {
	// Owner returns the rank owning the tile at ord.
	Owner(ord int) int
	// IsLocal reports whether the tile at ord is owned by the local rank.
	IsLocal(ord int) bool
	// Local iterates over the ordinals owned by the local rank, in
	// increasing order.
	Local() iter.Seq[int]
	// Rank returns the local rank.
	Rank() int
	// Size returns the number of ranks.
	Size() int
	// Tiles returns the size of the tile ordinal space.
	Tiles() int
}

func validate(rank, size, tiles int) {
	if size <= 0 || rank < 0 || rank >= size || tiles < 0 {
		panic(errors.Errorf("pmap: invalid map parameters rank=%d size=%d tiles=%d", rank, size, tiles))
	}
}

// Blocked assigns contiguous blocks of ordinals to consecutive ranks.
type Blocked struct {
	rank, size, tiles, block int
}

// NewBlocked creates a blocked map over tiles ordinals for the given rank.
func NewBlocked(rank, size, tiles int) *Blocked {
	validate(rank, size, tiles)
	return &Blocked{
		rank:  rank,
		size:  size,
		tiles: tiles,
		block: (tiles + size - 1) / size,
	}
}

func (m *Blocked) Owner(ord int) int {
	if m.block == 0 {
		return 0
	}
	return min(ord/m.block, m.size-1)
}

func (m *Blocked) IsLocal(ord int) bool { return m.Owner(ord) == m.rank }

func (m *Blocked) Local() iter.Seq[int] {
	lo := min(m.rank*m.block, m.tiles)
	hi := min(lo+m.block, m.tiles)
	if m.rank == m.size-1 {
		hi = m.tiles
	}
	return func(yield func(int) bool) {
		for ord := lo; ord < hi; ord++ {
			if !yield(ord) {
				return
			}
		}
	}
}

func (m *Blocked) Rank() int  { return m.rank }
func (m *Blocked) Size() int  { return m.size }
func (m *Blocked) Tiles() int { return m.tiles }

// Cyclic assigns ordinals round-robin across ranks.
type Cyclic struct {
	rank, size, tiles int
}

// NewCyclic creates a round-robin map over tiles ordinals for the given rank.
func NewCyclic(rank, size, tiles int) *Cyclic {
	validate(rank, size, tiles)
	return &Cyclic{rank: rank, size: size, tiles: tiles}
}

func (m *Cyclic) Owner(ord int) int    { return ord % m.size }
func (m *Cyclic) IsLocal(ord int) bool { return ord%m.size == m.rank }

func (m *Cyclic) Local() iter.Seq[int] {
	return func(yield func(int) bool) {
		for ord := m.rank; ord < m.tiles; ord += m.size {
			if !yield(ord) {
				return
			}
		}
	}
}

func (m *Cyclic) Rank() int  { return m.rank }
func (m *Cyclic) Size() int  { return m.size }
func (m *Cyclic) Tiles() int { return m.tiles }

// Hash assigns ordinals by FNV-1a hash, spreading ownership without the
// striding artifacts of Cyclic. The hash depends only on the ordinal, so
// every rank computes the same assignment.
type Hash struct {
	rank, size, tiles int
}

// NewHash creates a hashed map over tiles ordinals for the given rank.
func NewHash(rank, size, tiles int) *Hash {
	validate(rank, size, tiles)
	return &Hash{rank: rank, size: size, tiles: tiles}
}

func (m *Hash) Owner(ord int) int {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(ord))
	h.Write(buf[:])
	return int(h.Sum64() % uint64(m.size))
}

func (m *Hash) IsLocal(ord int) bool { return m.Owner(ord) == m.rank }

func (m *Hash) Local() iter.Seq[int] {
	return func(yield func(int) bool) {
		for ord := 0; ord < m.tiles; ord++ {
			if m.Owner(ord) == m.rank && !yield(ord) {
				return
			}
		}
	}
}

func (m *Hash) Rank() int  { return m.rank }
func (m *Hash) Size() int  { return m.size }
func (m *Hash) Tiles() int { return m.tiles }
