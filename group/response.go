// SPDX-License-Identifier: MIT

package group

import (
	"math"

	"github.com/katalvlaran/irtcalc/dist"
	"github.com/katalvlaran/irtcalc/grm"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ItemLogProbByTau returns lp[m][t] = Σ_s mean_n log P(r_s,item | θ_nst, tau[m]).
func (g *RespondentGroup) ItemLogProbByTau(tau [][]float64, item int) [][]float64 {
	inv := 1 / float64(g.NSamples())
	out := make([][]float64, len(tau))
	for m, tm := range tau {
		lp := make([]float64, g.NTraits())
		for s, r := range g.Responses {
			ri := r[item]
			if ri < 0 {
				continue
			}
			lo, hi := grm.Interval(tm, ri)
			for _, th := range g.Theta {
				for t, v := range th[s] {
					lp[t] += inv * grm.LogProbRange(lo-v, hi-v)
				}
			}
		}
		out[m] = lp
	}
	return out
}

// DItemLogProbByTau returns d[m][l], the derivative of Σ_t w_t lp[m][t]
// with respect to tau[m][l]: each threshold collects the derivative from
// responses where it is the lower bound and where it is the upper bound.
func (g *RespondentGroup) DItemLogProbByTau(tau [][]float64, item int, w []float64) [][]float64 {
	inv := 1 / float64(g.NSamples())
	out := make([][]float64, len(tau))
	for m, tm := range tau {
		d := make([]float64, len(tm))
		for s, r := range g.Responses {
			ri := r[item]
			if ri < 0 {
				continue
			}
			lo, hi := grm.Interval(tm, ri)
			for _, th := range g.Theta {
				for t, v := range th[s] {
					if w[t] < minWeight {
						continue
					}
					da, db := grm.DLogProbRange(lo-v, hi-v)
					if ri > 0 {
						d[ri-1] += w[t] * inv * da
					}
					if ri < len(tm) {
						d[ri] += w[t] * inv * db
					}
				}
			}
		}
		out[m] = d
	}
	return out
}

// PredictiveIndividual returns the predictive distribution of a random
// individual in the population this group represents.
func (g *RespondentGroup) PredictiveIndividual(within *dist.PrecisionWithin) *dist.GaussianGivenParam {
	return dist.NewGroupPredictive(within, g.Mu)
}

// PredictiveIndividualCov returns E[Λ⁻¹] + Cov[μ].
func (g *RespondentGroup) PredictiveIndividualCov(within *dist.PrecisionWithin) *mat.SymDense {
	return g.PredictiveIndividual(within).Cov()
}

// MeanResponse returns each subject's mean rating on the 1-based external
// scale, disregarding missing responses; NaN when all are missing.
func (g *RespondentGroup) MeanResponse() []float64 {
	out := make([]float64, g.NSubjects())
	for s, r := range g.Responses {
		var sum, n float64
		for _, ri := range r {
			if ri >= 0 {
				sum += float64(ri + 1)
				n++
			}
		}
		if n == 0 {
			out[s] = math.NaN()
			continue
		}
		out[s] = sum / n
	}
	return out
}

// MeanScaledResponse returns each subject's mean of values[i][r_si] across
// items, a missing response counting as 0 (the scale mean).
func (g *RespondentGroup) MeanScaledResponse(values [][]float64) []float64 {
	out := make([]float64, g.NSubjects())
	for s, r := range g.Responses {
		var sum float64
		for i, ri := range r {
			if ri >= 0 {
				sum += values[i][ri]
			}
		}
		out[s] = sum / float64(len(r))
	}
	return out
}

// WeightedTraits returns y[n][s] = θ_ns · w.
func (g *RespondentGroup) WeightedTraits(w []float64) [][]float64 {
	out := make([][]float64, g.NSamples())
	for n, th := range g.Theta {
		out[n] = make([]float64, g.NSubjects())
		for s, v := range th {
			out[n][s] = floats.Dot(v, w)
		}
	}
	return out
}

// ResponseCount returns, for item, the number of responses at each of
// nLevels levels and the number of missing responses.
func (g *RespondentGroup) ResponseCount(item, nLevels int) (counts []int, missing int) {
	counts = make([]int, nLevels)
	for _, r := range g.Responses {
		switch ri := r[item]; {
		case ri < 0:
			missing++
		case ri < nLevels:
			counts[ri]++
		}
	}
	return counts, missing
}
