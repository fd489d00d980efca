// SPDX-License-Identifier: MIT

// Package dispatch fans independent adaptation tasks out to a bounded
// worker pool and reassembles the results in input order.
//
// Every unit of work receives its own value and a read-only environment
// shared by all units; it returns a new value instead of mutating shared
// state. Either every unit succeeds, or Run returns the first error and no
// results at all.
package dispatch

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Mode selects how units are executed.
type Mode int

const (
	// ParallelPool runs units on a pool of goroutines.
	ParallelPool Mode = iota
	// Sequential runs units one after another on the calling goroutine.
	Sequential
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case ParallelPool:
		return "parallel"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ConcurrencyConfig controls task execution.
type ConcurrencyConfig struct {
	Mode Mode
	// PoolSize caps the number of workers; 0 means runtime.NumCPU().
	// The pool never exceeds the number of units.
	PoolSize int
}

// DefaultConcurrency uses one worker per CPU.
func DefaultConcurrency() ConcurrencyConfig {
	return ConcurrencyConfig{Mode: ParallelPool}
}

// Workers returns the pool size used for n units.
func (c ConcurrencyConfig) Workers(n int) int {
	if c.Mode == Sequential || n <= 1 {
		return 1
	}
	w := c.PoolSize
	if w <= 0 {
		w = runtime.NumCPU()
	}
	return min(w, n)
}

// Adaptable is implemented by every value that can be adapted given a
// read-only environment E, producing an updated value and its evidence
// contribution.
type Adaptable[T any, E any] interface {
	Adapt(ctx context.Context, env E) (T, float64, error)
}

// Run adapts every unit with env and returns the updated units and their
// evidence values, both in input order. The first failure cancels the
// remaining units and is returned with nil results.
func Run[T Adaptable[T, E], E any](ctx context.Context, cfg ConcurrencyConfig, units []T, env E) ([]T, []float64, error) {
	out := make([]T, len(units))
	ll := make([]float64, len(units))
	if cfg.Workers(len(units)) == 1 {
		for i, u := range units {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			v, l, err := u.Adapt(ctx, env)
			if err != nil {
				return nil, nil, fmt.Errorf("unit %d: %w", i, err)
			}
			out[i], ll[i] = v, l
		}
		return out, ll, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers(len(units)))
	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, l, err := u.Adapt(gctx, env)
			if err != nil {
				return fmt.Errorf("unit %d: %w", i, err)
			}
			// Distinct indices: no two goroutines write the same slot.
			out[i], ll[i] = v, l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return out, ll, nil
}
