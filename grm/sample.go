// SPDX-License-Identifier: MIT

package grm

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// SampleResponse draws an ordinal response for trait value theta.
func SampleResponse(theta float64, tau []float64, rng *rand.Rand) int {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	y := theta + Logit(u)
	r := 0
	for r < len(tau) && y > tau[r] {
		r++
	}
	return r
}

// SampleTrait draws n trait values consistent with response r under a
// N(0, scale²) trait distribution: uniform on the normal-CDF scale between
// the interval bounds, then mapped back by the normal quantile. Missing
// responses draw from the whole distribution.
func SampleTrait(tau []float64, r int, n int, scale float64, rng *rand.Rand) []float64 {
	norm := distuv.Normal{Mu: 0, Sigma: scale}
	lo, hi := Interval(tau, r)
	pLo := math.Max(norm.CDF(lo), math.SmallestNonzeroFloat64)
	pHi := norm.CDF(hi)
	out := make([]float64, n)
	for i := range out {
		p := pLo + (pHi-pLo)*rng.Float64()
		if p <= 0 {
			p = math.SmallestNonzeroFloat64
		}
		out[i] = norm.Quantile(p)
	}
	return out
}
