// Copyright 2026 The Tessell Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tiling

import (
	"github.com/pkg/errors"
)

// Permutation describes an index reordering. For a permutation p, target
// index p[i] takes the value of source index i:
//
//	out[p[i]] = in[i]
//
// A nil Permutation is the identity and is the usual way to request "no
// permutation".
type Permutation []int

// NewPermutation validates that p is a bijection on [0, len(p)).
func NewPermutation(p ...int) (Permutation, error) {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) {
			return nil, errors.Errorf("tiling: permutation entry %d out of range [0,%d)", v, len(p))
		}
		if seen[v] {
			return nil, errors.Errorf("tiling: duplicate permutation entry %d", v)
		}
		seen[v] = true
	}
	out := make(Permutation, len(p))
	copy(out, p)
	return out, nil
}

// MustPermutation is like NewPermutation but panics on an invalid argument.
func MustPermutation(p ...int) Permutation {
	perm, err := NewPermutation(p...)
	if err != nil {
		panic(err)
	}
	return perm
}

// IsIdentity reports whether the permutation leaves every index in place.
// A nil permutation is the identity.
func (p Permutation) IsIdentity() bool {
	for i, v := range p {
		if i != v {
			return false
		}
	}
	return true
}

// Dim returns the number of indices the permutation acts on.
func (p Permutation) Dim() int { return len(p) }

// Inverse returns the inverse permutation: p.Inverse().Apply(p.Apply(idx))
// yields idx. The inverse of the identity is nil.
func (p Permutation) Inverse() Permutation {
	if p == nil {
		return nil
	}
	inv := make(Permutation, len(p))
	for i, v := range p {
		inv[v] = i
	}
	return inv
}

// Compose returns the permutation equivalent to applying p and then q.
func (p Permutation) Compose(q Permutation) Permutation {
	if p == nil {
		return q
	}
	if q == nil {
		return p
	}
	if len(p) != len(q) {
		panic(errors.Errorf("tiling: cannot compose permutations of dim %d and %d", len(p), len(q)))
	}
	out := make(Permutation, len(p))
	for i, v := range p {
		out[i] = q[v]
	}
	return out
}

// Apply permutes a multi-index: out[p[i]] = idx[i]. A nil permutation
// returns a copy of idx.
func (p Permutation) Apply(idx []int) []int {
	out := make([]int, len(idx))
	if p == nil {
		copy(out, idx)
		return out
	}
	if len(p) != len(idx) {
		panic(errors.Errorf("tiling: permutation dim %d does not match index rank %d", len(p), len(idx)))
	}
	for i, v := range p {
		out[v] = idx[i]
	}
	return out
}

// ApplyInts permutes a plain int slice the same way Apply permutes an index.
// It is used for reordering per-dimension metadata such as extents.
func (p Permutation) ApplyInts(in []int) []int { return p.Apply(in) }
