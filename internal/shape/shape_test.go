package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDense(t *testing.T) {
	d := NewDense(12)
	assert.True(t, d.IsDense())
	assert.Equal(t, 12, d.Tiles())
	for ord := 0; ord < 12; ord++ {
		assert.False(t, d.IsZero(ord))
	}
}

func TestSparseZeroPredicate(t *testing.T) {
	s := NewSparse([]float64{1.5, 0, 1e-13, 0.3})
	assert.False(t, s.IsDense())
	assert.False(t, s.IsZero(0))
	assert.True(t, s.IsZero(1))
	assert.True(t, s.IsZero(2))
	assert.False(t, s.IsZero(3))
}

func TestSparsePermute(t *testing.T) {
	// 2x2 tile matrix transposed: ordinal i*2+j moves to j*2+i.
	s := NewSparse([]float64{1, 0, 2, 0})
	p := s.Permute(func(ord int) int {
		i, j := ord/2, ord%2
		return j*2 + i
	})
	assert.Equal(t, 1.0, p.Norm(0))
	assert.Equal(t, 2.0, p.Norm(1))
	assert.Equal(t, 0.0, p.Norm(2))
	assert.Equal(t, 0.0, p.Norm(3))
}

func TestAddMult(t *testing.T) {
	a := NewSparse([]float64{1, 0, 2, 0})
	b := NewSparse([]float64{0, 0, 3, 1})

	sum, err := Add(a, b)
	require.NoError(t, err)
	assert.False(t, sum.IsZero(0)) // nonzero + zero
	assert.True(t, sum.IsZero(1))  // zero + zero
	assert.False(t, sum.IsZero(2))
	assert.False(t, sum.IsZero(3))

	prod, err := Mult(a, b)
	require.NoError(t, err)
	assert.True(t, prod.IsZero(0)) // nonzero * zero
	assert.True(t, prod.IsZero(1))
	assert.False(t, prod.IsZero(2))
	assert.True(t, prod.IsZero(3))
}

func TestAddWithDense(t *testing.T) {
	a := NewDense(4)
	b := NewSparse([]float64{0, 0, 0, 0})

	sum, err := Add(a, b)
	require.NoError(t, err)
	assert.True(t, sum.IsDense())

	prod, err := Mult(a, b)
	require.NoError(t, err)
	for ord := 0; ord < 4; ord++ {
		assert.True(t, prod.IsZero(ord))
	}
}

func TestShapeMismatch(t *testing.T) {
	_, err := Add(NewDense(4), NewDense(5))
	assert.Error(t, err)
	_, err = Mult(NewSparse([]float64{1}), NewDense(2))
	assert.Error(t, err)
}

func TestContract(t *testing.T) {
	// 2x2 left, 2x2 right tile matrices.
	// left row 1 is entirely zero, right column 0 is entirely zero.
	left := NewSparse([]float64{1, 2, 0, 0})
	right := NewSparse([]float64{0, 1, 0, 3})

	out, err := Contract(left, right, 2, 2, 2)
	require.NoError(t, err)
	assert.True(t, out.IsZero(0))  // (0,0): all pairs hit right's zero column
	assert.False(t, out.IsZero(1)) // (0,1): 1*1 + 2*3
	assert.True(t, out.IsZero(2))  // (1,0): left row zero
	assert.True(t, out.IsZero(3))  // (1,1): left row zero

	assert.True(t, ZeroProduct(left, right, 2, 1))
	assert.True(t, ZeroProduct(left, right, 0, 0))
	assert.False(t, ZeroProduct(left, right, 0, 1))
}

func TestContractDense(t *testing.T) {
	out, err := Contract(NewDense(6), NewDense(8), 3, 2, 4)
	require.NoError(t, err)
	assert.True(t, out.IsDense())
	assert.Equal(t, 12, out.Tiles())

	_, err = Contract(NewDense(6), NewDense(8), 3, 3, 4)
	assert.Error(t, err)
}

func TestScale(t *testing.T) {
	s := Scale(NewSparse([]float64{2, 0}), -0.5)
	sp := s.(*Sparse)
	assert.Equal(t, 1.0, sp.Norm(0))
	assert.True(t, sp.IsZero(1))

	d := Scale(NewDense(3), 2.0)
	assert.True(t, d.IsDense())
}
