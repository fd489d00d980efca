// SPDX-License-Identifier: MIT

package scale

import (
	"math/rand/v2"

	"github.com/katalvlaran/irtcalc/grm"
	"gonum.org/v1/gonum/floats"
)

// TypicalTrait returns theta[m][l], the conditional mean trait given
// response l under threshold sample m, for N(0, thetaScale²) traits.
func (s *ItemScale) TypicalTrait(thetaScale float64) [][]float64 {
	tau := s.Tau()
	out := make([][]float64, len(tau))
	for m, t := range tau {
		out[m] = grm.CondMean(t, thetaScale)
	}
	return out
}

// MeanTypicalTrait averages TypicalTrait across samples: a point-estimated
// value on a common interval scale for every response level.
func (s *ItemScale) MeanTypicalTrait(thetaScale float64) []float64 {
	return meanRows(s.TypicalTrait(thetaScale))
}

// OrdinalProb returns P(r = l | θ) averaged across threshold samples.
func (s *ItemScale) OrdinalProb(theta float64) []float64 {
	out := make([]float64, s.NLevels())
	for _, tau := range s.Tau() {
		floats.Add(out, grm.OrdinalProb(theta, tau))
	}
	floats.Scale(1/float64(s.NSamples()), out)
	return out
}

// MeanOrdinal returns Σ_l l·P(r = l | θ), the item characteristic curve.
// Ordinal levels are not an interval scale; use for illustration only.
func (s *ItemScale) MeanOrdinal(theta float64) float64 {
	var r float64
	for l, p := range s.OrdinalProb(theta) {
		r += float64(l) * p
	}
	return r
}

// SampleTrait draws initial trait values for responses r (one per subject,
// -1 missing), using the mean thresholds: th[n][s] is the n-th draw for
// subject s.
func (s *ItemScale) SampleTrait(r []int, n int, traitScale float64, rng *rand.Rand) [][]float64 {
	tau := s.MeanTau()
	th := make([][]float64, n)
	for i := range th {
		th[i] = make([]float64, len(r))
	}
	for subj, rs := range r {
		for i, v := range grm.SampleTrait(tau, rs, n, traitScale, rng) {
			th[i][subj] = v
		}
	}
	return th
}
