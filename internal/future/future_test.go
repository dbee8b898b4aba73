package future

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	f := New[int]()
	assert.False(t, f.Probe())

	f.Set(42)
	assert.True(t, f.Probe())

	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestReadyFaulted(t *testing.T) {
	f := Ready("hello")
	assert.True(t, f.Probe())
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	boom := errors.New("boom")
	g := Faulted[string](boom)
	assert.True(t, g.Probe())
	_, err = g.Get(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDoubleSetPanics(t *testing.T) {
	f := New[int]()
	f.Set(1)
	assert.Panics(t, func() { f.Set(2) })
	assert.Panics(t, func() { f.SetErr(errors.New("late")) })
}

func TestGetBlocksUntilSet(t *testing.T) {
	f := New[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Set(7)
	}()
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetHonorsContext(t *testing.T) {
	f := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOnReadyAfterResolution(t *testing.T) {
	f := Ready(3)
	called := false
	f.OnReady(func(g *Future[int]) {
		v, _ := g.Value()
		assert.Equal(t, 3, v)
		called = true
	})
	assert.True(t, called, "continuation on a resolved future runs immediately")
}

func TestOnReadyBeforeResolution(t *testing.T) {
	f := New[int]()
	ch := make(chan int, 1)
	f.OnReady(func(g *Future[int]) {
		v, _ := g.Value()
		ch <- v
	})
	f.Set(9)
	assert.Equal(t, 9, <-ch)
}

func TestOnReadyManyWaiters(t *testing.T) {
	f := New[int]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	sum := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		f.OnReady(func(g *Future[int]) {
			defer wg.Done()
			v, _ := g.Value()
			mu.Lock()
			sum += v
			mu.Unlock()
		})
	}
	f.Set(2)
	wg.Wait()
	assert.Equal(t, 100, sum)
}

func TestValueBeforeResolutionPanics(t *testing.T) {
	f := New[int]()
	assert.Panics(t, func() { f.Value() })
}

func TestMap(t *testing.T) {
	ctx := context.Background()

	f := New[int]()
	doubled := Map(f, func(v int) (int, error) { return 2 * v, nil })
	assert.False(t, doubled.Probe())
	f.Set(21)
	v, err := doubled.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("upstream")
	bad := Map(Faulted[int](boom), func(int) (int, error) {
		t.Fatal("fn ran on a faulted future")
		return 0, nil
	})
	_, err = bad.Get(ctx)
	assert.ErrorIs(t, err, boom)
}
