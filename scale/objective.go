// SPDX-License-Identifier: MIT

package scale

import (
	"math"

	"github.com/katalvlaran/irtcalc/grm"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Optimizer policy for the MAP step.
const (
	mapGradTol   = 1e-4
	mapMaxIter   = 200
	boundPenalty = 1e3
)

// objective is the negative log posterior of one η vector, given fixed
// trait samples in all groups and fixed trait weights w.
type objective struct {
	groups []ResponseGroup
	item   int
	w      []float64
}

// negLogProb returns -Σ_g Σ_t w_t lp_g[t] - prior(η).
func (o *objective) negLogProb(eta []float64) float64 {
	tau := [][]float64{grm.Tau(eta)}
	var lp float64
	for _, g := range o.groups {
		lp += floats.Dot(g.ItemLogProbByTau(tau, o.item)[0], o.w)
	}
	return -lp - grm.EtaPriorLogProb(eta)
}

// gradNegLogProb writes d negLogProb / dη into dst.
func (o *objective) gradNegLogProb(eta, dst []float64) {
	tau := [][]float64{grm.Tau(eta)}
	dTau := make([]float64, len(tau[0]))
	for _, g := range o.groups {
		floats.Add(dTau, g.DItemLogProbByTau(tau, o.item, o.w)[0])
	}
	jac := grm.DTauDEta(eta)
	for j := range dst {
		dst[j] = 0
	}
	for l, row := range jac {
		floats.AddScaled(dst, dTau[l], row)
	}
	grm.DEtaPriorLogProb(dst, eta)
	floats.Scale(-1, dst)
}

// energy adapts negLogProb to hmc.EnergyFunc (one block).
func (o *objective) energy(x, dst []float64) { dst[0] = o.negLogProb(x) }

// grad adapts gradNegLogProb to hmc.GradFunc.
func (o *objective) grad(x, dst []float64) { o.gradNegLogProb(x, dst) }

// mapEstimate minimizes negLogProb from eta0 with L-BFGS. Bounds are
// enforced by a quadratic penalty and a final clamp. On optimizer failure
// the start point is returned.
func mapEstimate(o *objective, eta0 []float64, log *zap.Logger) []float64 {
	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return o.negLogProb(clamped(x)) + penalty(x, nil)
		},
		Grad: func(grad, x []float64) {
			o.gradNegLogProb(clamped(x), grad)
			penalty(x, grad)
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: mapGradTol,
		MajorIterations:   mapMaxIter,
	}
	res, err := optimize.Minimize(p, append([]float64(nil), eta0...), settings, &optimize.LBFGS{})
	if res == nil || math.IsNaN(res.F) {
		log.Warn("scale MAP estimate failed, keeping start point", zap.Error(err))
		return append([]float64(nil), eta0...)
	}
	x := clamped(res.X)
	if o.negLogProb(x) > o.negLogProb(eta0) {
		log.Warn("scale MAP estimate did not improve, keeping start point", zap.Error(err))
		return append([]float64(nil), eta0...)
	}
	if err != nil {
		// Line-search stalls near the optimum are reported as errors.
		log.Debug("scale MAP estimate stopped early", zap.Error(err), zap.String("status", res.Status.String()))
	}
	return x
}

func clamped(x []float64) []float64 {
	c := append([]float64(nil), x...)
	grm.Clamp(c)
	return c
}

// penalty returns the quadratic out-of-bounds penalty and, when grad is
// non-nil, adds its gradient.
func penalty(x, grad []float64) float64 {
	var f float64
	for i, v := range x {
		var d float64
		switch {
		case v < grm.EtaMin:
			d = v - grm.EtaMin
		case v > grm.EtaMax:
			d = v - grm.EtaMax
		default:
			continue
		}
		f += boundPenalty * d * d / 2
		if grad != nil {
			grad[i] += boundPenalty * d
		}
	}
	return f
}
