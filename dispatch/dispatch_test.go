// SPDX-License-Identifier: MIT

package dispatch_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/katalvlaran/irtcalc/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errUnit = errors.New("unit failed")

type env struct {
	factor  float64
	failAt  int
	active  *atomic.Int32
	maxSeen *atomic.Int32
}

type unit struct{ id, value int }

func (u unit) Adapt(ctx context.Context, e env) (unit, float64, error) {
	if e.active != nil {
		n := e.active.Add(1)
		defer e.active.Add(-1)
		for {
			m := e.maxSeen.Load()
			if n <= m || e.maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	if u.id == e.failAt {
		return unit{}, 0, errUnit
	}
	return unit{id: u.id, value: u.value * 2}, float64(u.value) * e.factor, nil
}

func units(n int) []unit {
	out := make([]unit, n)
	for i := range out {
		out[i] = unit{id: i, value: i + 1}
	}
	return out
}

// TestRun_PreservesOrder checks that results are index aligned in both modes.
func TestRun_PreservesOrder(t *testing.T) {
	for _, cfg := range []dispatch.ConcurrencyConfig{
		{Mode: dispatch.Sequential},
		{Mode: dispatch.ParallelPool, PoolSize: 3},
		dispatch.DefaultConcurrency(),
	} {
		t.Run(cfg.Mode.String(), func(t *testing.T) {
			in := units(17)
			out, ll, err := dispatch.Run(context.Background(), cfg, in, env{factor: 0.5, failAt: -1})
			require.NoError(t, err)
			require.Len(t, out, 17)
			for i := range in {
				assert.Equal(t, i, out[i].id)
				assert.Equal(t, 2*(i+1), out[i].value)
				assert.Equal(t, float64(i+1)*0.5, ll[i])
				assert.Equal(t, i+1, in[i].value, "inputs untouched")
			}
		})
	}
}

// TestRun_FailureIsAtomic checks that one failing unit yields no results.
func TestRun_FailureIsAtomic(t *testing.T) {
	for _, mode := range []dispatch.Mode{dispatch.Sequential, dispatch.ParallelPool} {
		out, ll, err := dispatch.Run(context.Background(), dispatch.ConcurrencyConfig{Mode: mode}, units(8), env{failAt: 5})
		assert.ErrorIs(t, err, errUnit, mode.String())
		assert.Nil(t, out)
		assert.Nil(t, ll)
	}
}

// TestRun_PoolLimit checks that the worker pool bound is honoured.
func TestRun_PoolLimit(t *testing.T) {
	var active, maxSeen atomic.Int32
	cfg := dispatch.ConcurrencyConfig{Mode: dispatch.ParallelPool, PoolSize: 2}
	_, _, err := dispatch.Run(context.Background(), cfg, units(10),
		env{failAt: -1, active: &active, maxSeen: &maxSeen})
	require.NoError(t, err)
	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
	assert.Equal(t, 1, dispatch.ConcurrencyConfig{Mode: dispatch.Sequential}.Workers(10))
	assert.Equal(t, 3, dispatch.ConcurrencyConfig{PoolSize: 8}.Workers(3))
}

// TestRun_Canceled checks that a canceled context stops dispatch.
func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := dispatch.Run(ctx, dispatch.ConcurrencyConfig{Mode: dispatch.Sequential}, units(3), env{failAt: -1})
	assert.ErrorIs(t, err, context.Canceled)
	_, _, err = dispatch.Run(ctx, dispatch.DefaultConcurrency(), units(3), env{failAt: -1})
	if dispatch.DefaultConcurrency().Workers(3) > 1 {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
