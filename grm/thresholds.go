// SPDX-License-Identifier: MIT

package grm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Threshold parameter policy.
const (
	// EtaPriorScale is the standard deviation of the Gaussian prior on η.
	EtaPriorScale = 3.0
	// PseudoCount is added to every response count when seeding thresholds.
	PseudoCount = 0.5
)

// Bounds on each η entry; the ratio between the widest and the narrowest
// response interval stays within about 1e6.
var (
	EtaMin = math.Log(1e-3)
	EtaMax = math.Log(1e3)
)

// Tau maps η (length L) to the L-1 finite thresholds.
func Tau(eta []float64) []float64 {
	cc := make([]float64, len(eta))
	var c float64
	for j, e := range eta {
		c += math.Exp(e)
		cc[j] = c
	}
	total := cc[len(cc)-1]
	tau := make([]float64, len(eta)-1)
	for l := range tau {
		tau[l] = math.Log(cc[l]) - math.Log(total-cc[l])
	}
	return tau
}

// DTauDEta returns the Jacobian J[l][j] = dτ_l/dη_j, shape (L-1)×L.
func DTauDEta(eta []float64) [][]float64 {
	n := len(eta)
	w := make([]float64, n)
	cc := make([]float64, n)
	var c float64
	for j, e := range eta {
		w[j] = math.Exp(e)
		c += w[j]
		cc[j] = c
	}
	total := cc[n-1]
	jac := make([][]float64, n-1)
	for l := range jac {
		row := make([]float64, n)
		lo, hi := 1/cc[l], 1/(total-cc[l])
		for j := range row {
			if j <= l {
				row[j] = w[j] * lo
			} else {
				row[j] = -w[j] * hi
			}
		}
		jac[l] = row
	}
	return jac
}

// EtaFromTau returns the centered η whose thresholds equal tau.
func EtaFromTau(tau []float64) []float64 {
	eta := make([]float64, len(tau)+1)
	prev := 0.0
	for l, t := range tau {
		p := Logistic(t)
		eta[l] = math.Log(p - prev)
		prev = p
	}
	eta[len(tau)] = math.Log(1 - prev)
	Center(eta)
	return eta
}

// Center subtracts the mean from eta in place.
func Center(eta []float64) {
	floats.AddConst(-floats.Sum(eta)/float64(len(eta)), eta)
}

// Clamp restricts every η entry to [EtaMin, EtaMax] in place.
func Clamp(eta []float64) {
	for i, e := range eta {
		eta[i] = math.Min(EtaMax, math.Max(EtaMin, e))
	}
}

// EtaPriorLogProb returns the unnormalized Gaussian prior log density of η.
func EtaPriorLogProb(eta []float64) float64 {
	var s float64
	for _, e := range eta {
		z := e / EtaPriorScale
		s += z * z
	}
	return -s / 2
}

// DEtaPriorLogProb adds the gradient of EtaPriorLogProb to dst.
func DEtaPriorLogProb(dst, eta []float64) {
	for i, e := range eta {
		dst[i] -= e / (EtaPriorScale * EtaPriorScale)
	}
}

// InitialEta seeds η from observed response counts: cumulative proportions
// with PseudoCount smoothing are mapped through the normal quantile with
// standard deviation traitScale.
func InitialEta(counts []int, traitScale float64) []float64 {
	f := make([]float64, len(counts))
	var c float64
	for l, n := range counts {
		c += float64(n) + PseudoCount
		f[l] = c
	}
	norm := distuv.Normal{Mu: 0, Sigma: traitScale}
	tau := make([]float64, len(counts)-1)
	for l := range tau {
		tau[l] = norm.Quantile(f[l] / c)
	}
	eta := EtaFromTau(tau)
	Clamp(eta)
	return eta
}

// Interval returns the latent interval (lo, hi] of response r given the
// finite thresholds tau. A negative r marks a missing response and yields
// (-∞, +∞).
func Interval(tau []float64, r int) (lo, hi float64) {
	lo, hi = math.Inf(-1), math.Inf(1)
	if r < 0 {
		return lo, hi
	}
	if r > 0 {
		lo = tau[r-1]
	}
	if r < len(tau) {
		hi = tau[r]
	}
	return lo, hi
}

// LogProb returns log P(r | θ, τ). Missing responses give 0.
func LogProb(theta float64, tau []float64, r int) float64 {
	if r < 0 {
		return 0
	}
	lo, hi := Interval(tau, r)
	return LogProbRange(lo-theta, hi-theta)
}

// OrdinalProb returns P(r = l | θ, τ) for every level l.
func OrdinalProb(theta float64, tau []float64) []float64 {
	p := make([]float64, len(tau)+1)
	prev := 0.0
	for l, t := range tau {
		c := Logistic(theta - t)
		p[l] = (1 - c) - prev
		prev = 1 - c
	}
	p[len(tau)] = 1 - prev
	return p
}

// CondMean returns, for each response level, the mean of a N(0, scale²)
// trait conditional on falling inside that level's threshold interval.
func CondMean(tau []float64, scale float64) []float64 {
	norm := distuv.Normal{Mu: 0, Sigma: scale}
	out := make([]float64, len(tau)+1)
	for l := range out {
		lo, hi := Interval(tau, l)
		mass := norm.CDF(hi) - norm.CDF(lo)
		if mass <= 0 {
			// Interval far in a tail: its nearest bound is the best estimate.
			if math.IsInf(lo, -1) {
				out[l] = hi
			} else {
				out[l] = lo
			}
			continue
		}
		out[l] = scale * scale * (norm.Prob(lo) - norm.Prob(hi)) / mass
	}
	return out
}
