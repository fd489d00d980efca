// SPDX-License-Identifier: MIT

package hmc

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"
)

// minNNDistance floors nearest-neighbour distances so that coinciding
// samples keep the estimate finite.
const minNNDistance = 1e-10

// Entropy returns the Kozachenko–Leonenko nearest-neighbour estimate of the
// differential entropy of the distribution that generated the samples x,
// treating them as points of a dim-dimensional space (dim may be smaller
// than len(x[n]) when samples live on a linear subspace, for example after
// centering). Fewer than two samples give 0.
//
//	H ≈ ψ(N) - ψ(1) + log V_dim + dim/N · Σ_n log ρ_n
//
// where ρ_n is the distance from x[n] to its nearest neighbour and V_dim the
// volume of the unit dim-ball.
//
// Complexity: O(N²·len(x[n])).
func Entropy(x [][]float64, dim int) float64 {
	n := len(x)
	if n < 2 || dim < 1 {
		return 0
	}
	var sumLog float64
	for i := range x {
		best := math.Inf(1)
		for j := range x {
			if i == j {
				continue
			}
			if d := floats.Distance(x[i], x[j], 2); d < best {
				best = d
			}
		}
		sumLog += math.Log(math.Max(best, minNNDistance))
	}
	fd := float64(dim)
	logUnitBall := fd/2*math.Log(math.Pi) - lgamma(fd/2+1)
	return mathext.Digamma(float64(n)) - mathext.Digamma(1) + logUnitBall + fd*sumLog/float64(n)
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
