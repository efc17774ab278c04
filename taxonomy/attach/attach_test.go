package attach

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/pulse"
	"github.com/teranos/capgen/taxonomy"
)

type genFunc func(ctx context.Context, l1 taxonomy.L1Capability) ([]taxonomy.L2Entry, error)

func (f genFunc) L2Batch(ctx context.Context, l1 taxonomy.L1Capability) ([]taxonomy.L2Entry, error) {
	return f(ctx, l1)
}

func entries(prefix string, n int) []taxonomy.L2Entry {
	out := make([]taxonomy.L2Entry, n)
	for i := range out {
		out[i] = taxonomy.NewL2Entry(taxonomy.L2Capability{
			Name:        fmt.Sprintf("%s/%d", prefix, i+1),
			Description: "d",
		})
	}
	return out
}

func tree(l0 int, l1PerL0 int) *taxonomy.Industry {
	ind := &taxonomy.Industry{Name: "Healthcare", Description: "care"}
	for i := 0; i < l0; i++ {
		c := taxonomy.L0Capability{Name: fmt.Sprintf("L0-%d", i)}
		for j := 0; j < l1PerL0; j++ {
			c.L1 = append(c.L1, taxonomy.L1Capability{Name: fmt.Sprintf("L0-%d/L1-%d", i, j)})
		}
		ind.L0 = append(ind.L0, c)
	}
	return ind
}

func newAttacher(gen L2Generator, opts Options) *Attacher {
	opts.Logger = zap.NewNop().Sugar()
	return New(gen, opts)
}

func TestAttachAll_Sequential(t *testing.T) {
	var order []string
	gen := genFunc(func(ctx context.Context, l1 taxonomy.L1Capability) ([]taxonomy.L2Entry, error) {
		order = append(order, l1.Name)
		return entries(l1.Name, 2), nil
	})

	var progress []pulse.Progress
	obs := pulse.ObserverFunc(func(p pulse.Progress) { progress = append(progress, p) })

	in := tree(2, 2)
	out, warnings, err := newAttacher(gen, Options{Observer: obs}).AttachAll(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, []string{"L0-0/L1-0", "L0-0/L1-1", "L0-1/L1-0", "L0-1/L1-1"}, order)
	assert.True(t, out.Complete())
	assert.False(t, in.Complete(), "input tree must not be modified")

	c, ok := out.L0[1].L1[0].L2[1].Capability()
	require.True(t, ok)
	assert.Equal(t, "L0-1/L1-0/2", c.Name)

	require.Len(t, progress, 4)
	for i, p := range progress {
		assert.Equal(t, i+1, p.Current)
		assert.Equal(t, 4, p.Total)
		assert.Equal(t, Stage, p.Stage)
	}
	assert.Equal(t, time.Duration(0), progress[3].Remaining)
}

func TestAttachAll_AttachesVerbatimAndWarns(t *testing.T) {
	gen := genFunc(func(ctx context.Context, l1 taxonomy.L1Capability) ([]taxonomy.L2Entry, error) {
		list := entries(l1.Name, 3)
		return append(list, taxonomy.RawL2Entry([]byte(`{"bad":true}`))), nil
	})

	out, warnings, err := newAttacher(gen, Options{WantL2: 20}).AttachAll(context.Background(), tree(1, 1))
	require.NoError(t, err)
	assert.Len(t, out.L0[0].L1[0].L2, 4)

	require.Len(t, warnings, 2)
	assert.Equal(t, taxonomy.WarnL2Count, warnings[0].Code)
	assert.Equal(t, taxonomy.WarnMalformedL2, warnings[1].Code)
}

func TestAttachAll_Parallel(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	gen := genFunc(func(ctx context.Context, l1 taxonomy.L1Capability) ([]taxonomy.L2Entry, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return entries(l1.Name, 1), nil
	})

	var mu sync.Mutex
	var currents []int
	obs := pulse.ObserverFunc(func(p pulse.Progress) {
		mu.Lock()
		currents = append(currents, p.Current)
		mu.Unlock()
	})

	out, _, err := newAttacher(gen, Options{Workers: 3, Observer: obs}).AttachAll(context.Background(), tree(3, 4))
	require.NoError(t, err)
	assert.True(t, out.Complete())
	assert.LessOrEqual(t, maxInFlight.Load(), int32(3))
	assert.Greater(t, maxInFlight.Load(), int32(1))

	// Results land in their own slots regardless of completion order
	for _, l0 := range out.L0 {
		for _, l1 := range l0.L1 {
			c, ok := l1.L2[0].Capability()
			require.True(t, ok)
			assert.Equal(t, l1.Name+"/1", c.Name)
		}
	}

	require.Len(t, currents, 12)
	for i, c := range currents {
		assert.Equal(t, i+1, c)
	}
}

func TestAttachAll_FailureAbortsWholeRun(t *testing.T) {
	var calls atomic.Int32
	gen := genFunc(func(ctx context.Context, l1 taxonomy.L1Capability) ([]taxonomy.L2Entry, error) {
		if calls.Add(1) == 2 {
			return nil, errors.NewMalformedResponseError(nil, "not an array")
		}
		return entries(l1.Name, 1), nil
	})

	out, warnings, err := newAttacher(gen, Options{}).AttachAll(context.Background(), tree(2, 3))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Nil(t, warnings)
	assert.True(t, errors.IsMalformedResponseError(err))
	assert.Equal(t, int32(2), calls.Load(), "sequential run stops scheduling after the first failure")
}

func TestAttachAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := genFunc(func(ctx context.Context, l1 taxonomy.L1Capability) ([]taxonomy.L2Entry, error) {
		cancel()
		return entries(l1.Name, 1), nil
	})

	out, _, err := newAttacher(gen, Options{}).AttachAll(ctx, tree(1, 3))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.IsCancelled(err))
}

func TestAttachAll_EmptyTree(t *testing.T) {
	gen := genFunc(func(ctx context.Context, l1 taxonomy.L1Capability) ([]taxonomy.L2Entry, error) {
		t.Fatal("no L1 to attach")
		return nil, nil
	})
	out, warnings, err := newAttacher(gen, Options{}).AttachAll(context.Background(), &taxonomy.Industry{Name: "x"})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "x", out.Name)
}
