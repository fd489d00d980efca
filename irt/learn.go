// SPDX-License-Identifier: MIT

package irt

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StopReason tells why Learn returned.
type StopReason int

const (
	// Converged: the evidence gained less than MinStep over MinIter iterations.
	Converged StopReason = iota
	// MaxIterReached: MaxIter iterations ran without convergence.
	MaxIterReached
	// TimedOut: MaxDuration elapsed without convergence.
	TimedOut
)

// String implements fmt.Stringer.
func (r StopReason) String() string {
	switch r {
	case Converged:
		return "converged"
	case MaxIterReached:
		return "max_iter"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// LearnConfig bounds the iterations of Learn.
type LearnConfig struct {
	// MinIter iterations always run; convergence compares the last
	// evidence with the one MinIter iterations earlier.
	MinIter int
	// MinStep is the evidence gain over MinIter iterations below which
	// learning has converged.
	MinStep float64
	// MaxIter caps the number of iterations.
	MaxIter int
	// MaxDuration stops learning once elapsed; checked between iterations.
	MaxDuration time.Duration
}

// DefaultLearnConfig returns MinIter 10, MinStep 0.01, MaxIter 100 and
// MaxDuration 10h.
func DefaultLearnConfig() LearnConfig {
	return LearnConfig{
		MinIter:     10,
		MinStep:     0.01,
		MaxIter:     100,
		MaxDuration: 10 * time.Hour,
	}
}

// Callback observes the model after every iteration.
type Callback func(m *Model, elbo float64)

// Learn runs Adapt until the evidence stops improving or a budget runs
// out. It continues while fewer than MinIter+1 iterations have run, or the
// evidence gained more than MinStep over the last MinIter iterations and
// neither MaxIter nor MaxDuration is exhausted. The evidence of every
// iteration of this call is returned; an Adapt failure returns the
// history so far together with the error.
func (m *Model) Learn(ctx context.Context, cfg LearnConfig, cb Callback) ([]float64, StopReason, error) {
	if cfg.MinIter < 0 {
		return nil, 0, fmt.Errorf("learn: MinIter %d < 0", cfg.MinIter)
	}
	end := time.Now().Add(cfg.MaxDuration)
	var lp []float64
	for {
		ll, err := m.Adapt(ctx)
		if err != nil {
			return lp, 0, fmt.Errorf("learn iteration %d: %w", len(lp)+1, err)
		}
		lp = append(lp, ll)
		if cb != nil {
			cb(m, ll)
		}
		n := len(lp)
		if n <= cfg.MinIter {
			continue
		}
		var reason StopReason
		switch {
		case lp[n-1]-lp[n-1-cfg.MinIter] <= cfg.MinStep:
			reason = Converged
		case n >= cfg.MaxIter:
			reason = MaxIterReached
		case !time.Now().Before(end):
			reason = TimedOut
		default:
			continue
		}
		m.log.Info("learning stopped",
			zap.Stringer("reason", reason),
			zap.Int("iterations", n),
			zap.Float64("elbo", ll))
		return lp, reason, nil
	}
}
