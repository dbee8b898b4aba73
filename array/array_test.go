package array_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessell-ml/tessell/array"
)

func testConfig() array.Config {
	cfg := array.DefaultConfig()
	cfg.Pool.Workers = 2
	return cfg
}

func counting(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestAddThenScale(t *testing.T) {
	g := array.NewGroup(2, testConfig())
	defer g.Close()
	ctx := context.Background()

	tr := array.MustTiledRange(array.MustRange1(0, 2, 4), array.MustRange1(0, 2, 4))
	adata := counting(tr.Elements())
	bdata := make([]float64, tr.Elements())
	for i := range bdata {
		bdata[i] = float64(10 * i)
	}

	var got []float64
	var mu sync.Mutex
	err := g.Run(func(w *array.World) error {
		pm := array.NewBlocked(w.Rank(), w.Size(), tr.NumTiles())
		a, err := array.FromDense(w, tr, adata, pm)
		if err != nil {
			return err
		}
		b, err := array.FromDense(w, tr, bdata, pm)
		if err != nil {
			return err
		}
		w.Fence()
		sum, err := array.Add(ctx, a, b)
		if err != nil {
			return err
		}
		scaled, err := array.Scale(ctx, sum, 3)
		if err != nil {
			return err
		}
		w.Fence()
		if w.Rank() == 0 {
			d, err := scaled.Dense(ctx)
			if err != nil {
				return err
			}
			mu.Lock()
			got = d
			mu.Unlock()
		}
		w.Fence()
		return nil
	})
	require.NoError(t, err)

	want := make([]float64, len(adata))
	for i := range want {
		want[i] = 3 * (adata[i] + bdata[i])
	}
	assert.Equal(t, want, got)
}

func TestContractAndPermute(t *testing.T) {
	g := array.NewGroup(2, testConfig())
	defer g.Close()
	ctx := context.Background()

	tr := array.MustTiledRange(array.MustRange1(0, 2, 4), array.MustRange1(0, 2, 4))
	adata := counting(tr.Elements())
	bdata := make([]float64, tr.Elements())
	for i := range bdata {
		bdata[i] = float64(i%3) - 1
	}

	var prod, transposed []float64
	var mu sync.Mutex
	err := g.Run(func(w *array.World) error {
		pm := array.NewBlocked(w.Rank(), w.Size(), tr.NumTiles())
		a, err := array.FromDense(w, tr, adata, pm)
		if err != nil {
			return err
		}
		b, err := array.FromDense(w, tr, bdata, pm)
		if err != nil {
			return err
		}
		w.Fence()
		c, err := array.Contract(ctx, a, b)
		if err != nil {
			return err
		}
		ct, err := array.Permute(ctx, c, array.MustPermutation(1, 0))
		if err != nil {
			return err
		}
		w.Fence()
		if w.Rank() == 0 {
			p, err := c.Dense(ctx)
			if err != nil {
				return err
			}
			tp, err := ct.Dense(ctx)
			if err != nil {
				return err
			}
			mu.Lock()
			prod, transposed = p, tp
			mu.Unlock()
		}
		w.Fence()
		return nil
	})
	require.NoError(t, err)

	want := make([]float64, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += adata[i*4+k] * bdata[k*4+j]
			}
			want[i*4+j] = s
		}
	}
	assert.Equal(t, want, prod)

	wantT := make([]float64, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			wantT[j*4+i] = want[i*4+j]
		}
	}
	assert.Equal(t, wantT, transposed)
}

func TestMapElems(t *testing.T) {
	g := array.NewGroup(1, testConfig())
	defer g.Close()
	ctx := context.Background()

	tr := array.MustTiledRange(array.MustRange1(0, 3, 6))
	data := counting(tr.Elements())

	err := g.Run(func(w *array.World) error {
		pm := array.NewBlocked(w.Rank(), w.Size(), tr.NumTiles())
		a, err := array.FromDense(w, tr, data, pm)
		if err != nil {
			return err
		}
		sq, err := array.MapElems(ctx, a, func(v float64) float64 { return v * v })
		if err != nil {
			return err
		}
		got, err := sq.Dense(ctx)
		if err != nil {
			return err
		}
		want := make([]float64, len(data))
		for i, v := range data {
			want[i] = v * v
		}
		assert.Equal(t, want, got)
		return nil
	})
	require.NoError(t, err)
}
