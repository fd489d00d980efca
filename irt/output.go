// SPDX-License-Identifier: MIT

package irt

import (
	"fmt"

	"github.com/katalvlaran/irtcalc/dist"
	"github.com/katalvlaran/irtcalc/randx"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PredictiveIndividual returns the distribution of the traits of a random
// individual in a random group of the population.
func (m *Model) PredictiveIndividual() *dist.GaussianGivenParam {
	return dist.NewPopulationPredictive(m.p.within.Clone(), m.p.among.Clone())
}

// PredictiveIndividualCov returns E[Λ⁻¹] + E[1/ψ]·I, the trait covariance
// of a random individual in a random group. Entries are NaN while either
// expectation is undefined.
func (m *Model) PredictiveIndividualCov() *mat.SymDense {
	if len(m.p.groups) <= 1 {
		m.log.Warn("predictive covariance from a single group: among-group variance is undefined",
			zap.Int("groups", len(m.p.groups)))
	}
	return m.PredictiveIndividual().Cov()
}

// PredictiveIndividualVar returns the diagonal of PredictiveIndividualCov.
func (m *Model) PredictiveIndividualVar() []float64 {
	return dist.Diag(m.PredictiveIndividualCov())
}

// GroupPredictiveCov returns E[Λ⁻¹] + Cov[μ_g] for an individual of group g.
func (m *Model) GroupPredictiveCov(g int) *mat.SymDense {
	return m.p.groups[g].PredictiveIndividualCov(m.p.within)
}

// SamplePredictive draws n trait vectors from PredictiveIndividual using
// the model's seed.
func (m *Model) SamplePredictive(n int) ([][]float64, error) {
	src := randx.Source(m.opt.seed, uint64(len(m.history))<<8|predictiveStream)
	return m.PredictiveIndividual().Rand(n, src)
}

// MeanSubjectRatings returns, per group, each subject's mean response on
// the 1-based rating scale, ignoring missing responses.
func (m *Model) MeanSubjectRatings() [][]float64 {
	out := make([][]float64, len(m.p.groups))
	for i, g := range m.p.groups {
		out[i] = g.MeanResponse()
	}
	return out
}

// MeanScaledSubjectRatings returns, per group, each subject's mean of the
// typical trait value of every response, for unit-variance traits.
func (m *Model) MeanScaledSubjectRatings() [][]float64 {
	values := make([][]float64, len(m.p.scales))
	for i, s := range m.p.scales {
		values[i] = s.MeanTypicalTrait(1)
	}
	out := make([][]float64, len(m.p.groups))
	for i, g := range m.p.groups {
		out[i] = g.MeanScaledResponse(values)
	}
	return out
}

// traitWeights returns the share of items assigned to every trait.
func (m *Model) traitWeights() []float64 {
	w := make([]float64, m.NTraits())
	for _, s := range m.p.scales {
		floats.Add(w, s.Selector.Prob)
	}
	floats.Scale(1/floats.Sum(w), w)
	return w
}

// MeanSubjectTraits returns, per group, each subject's posterior mean of
// the item-weighted trait average θ·w.
func (m *Model) MeanSubjectTraits() [][]float64 {
	w := m.traitWeights()
	out := make([][]float64, len(m.p.groups))
	for i, g := range m.p.groups {
		y := g.WeightedTraits(w)
		mean := make([]float64, g.NSubjects())
		for _, yn := range y {
			floats.Add(mean, yn)
		}
		floats.Scale(1/float64(len(y)), mean)
		out[i] = mean
	}
	return out
}

// EstimVarMeanSubjectTraits returns, per group, the Monte-Carlo variance of
// the MeanSubjectTraits estimates: the subject-averaged sample variance of
// θ·w divided by the number of samples.
func (m *Model) EstimVarMeanSubjectTraits() []float64 {
	w := m.traitWeights()
	out := make([]float64, len(m.p.groups))
	for i, g := range m.p.groups {
		y := g.WeightedTraits(w)
		col := make([]float64, len(y))
		var v float64
		for s := 0; s < g.NSubjects(); s++ {
			for n := range y {
				col[n] = y[n][s]
			}
			v += stat.PopVariance(col, nil)
		}
		out[i] = v / float64(g.NSubjects()) / float64(len(y))
	}
	return out
}

// ItemResponseCount returns, per group, counts[i][l] of responses at level
// l of item i, and missing[i] of missing responses to item i.
func (m *Model) ItemResponseCount() (counts [][][]int, missing [][]int) {
	counts = make([][][]int, len(m.p.groups))
	missing = make([][]int, len(m.p.groups))
	for gi, g := range m.p.groups {
		counts[gi] = make([][]int, len(m.p.scales))
		missing[gi] = make([]int, len(m.p.scales))
		for i, s := range m.p.scales {
			counts[gi][i], missing[gi][i] = g.ResponseCount(i, s.NLevels())
		}
	}
	return counts, missing
}

// ItemResponseProb returns P(r = l | θ) of item i at trait value theta.
func (m *Model) ItemResponseProb(i int, theta float64) ([]float64, error) {
	if i < 0 || i >= len(m.p.scales) {
		return nil, fmt.Errorf("item %d of %d: %w", i, len(m.p.scales), ErrResponseShape)
	}
	return m.p.scales[i].OrdinalProb(theta), nil
}
