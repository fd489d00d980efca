// SPDX-License-Identifier: MIT

package dist_test

import (
	"context"
	"math"
	"testing"

	"github.com/katalvlaran/irtcalc/dist"
	"github.com/katalvlaran/irtcalc/randx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const klSlack = -1e-8

// TestTraitProb_PriorSelfEntropy verifies KL(prior || prior) == 0.
func TestTraitProb_PriorSelfEntropy(t *testing.T) {
	p := dist.NewTraitProb(4)
	assert.InDelta(t, 0.0, p.RelativeEntropy(p), 1e-12)
	assert.InDelta(t, 1.0, floats.Sum(p.Mean()), 1e-12)
}

// TestTraitProb_Update checks the conjugate update and its evidence.
func TestTraitProb_Update(t *testing.T) {
	p := dist.NewTraitProb(3)
	ll, err := p.Update([]float64{5, 0.2, 0})
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{5.001, 0.201, 0.001}, p.Alpha, 1e-12)
	kl := p.RelativeEntropy(dist.NewTraitProb(3))
	assert.GreaterOrEqual(t, kl, klSlack, "KL must be non-negative")
	assert.InDelta(t, -kl, ll, 1e-12, "evidence is minus KL from prior")

	_, err = p.Update([]float64{1, 2})
	assert.ErrorIs(t, err, dist.ErrDimension)
}

// TestTraitProb_AdaptLeavesReceiver verifies that Adapt works on a copy.
func TestTraitProb_AdaptLeavesReceiver(t *testing.T) {
	p := dist.NewTraitProb(2)
	q, _, err := p.Adapt(context.Background(), []float64{3, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{dist.PriorConcentration, dist.PriorConcentration}, p.Alpha)
	assert.InDelta(t, 3.001, q.Alpha[0], 1e-12)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = p.Adapt(ctx, []float64{3, 1})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestTraitSelector_Normalization checks softmax stability and normalization.
func TestTraitSelector_Normalization(t *testing.T) {
	prior := dist.NewTraitProb(3)
	_, err := prior.Update([]float64{10, 10, 1})
	require.NoError(t, err)

	s := dist.NewTraitSelector(3)
	require.NoError(t, s.Update([]float64{-2000, -1000, -1001}, prior))
	assert.InDelta(t, 1.0, floats.Sum(s.Prob), 1e-12)
	for _, p := range s.Prob {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.False(t, math.IsNaN(p))
	}
	assert.Greater(t, s.Prob[1], s.Prob[2])
	assert.Equal(t, []bool{false, true, false}, s.Map())
	assert.GreaterOrEqual(t, s.RelativeEntropy(prior), klSlack)
}

// TestTraitSelector_Prune verifies renormalization after pruning.
func TestTraitSelector_Prune(t *testing.T) {
	s := &dist.TraitSelector{Prob: []float64{0.2, 0.6, 0.2}}
	s.Prune([]bool{true, false, true})
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, s.Prob, 1e-12)

	z := &dist.TraitSelector{Prob: []float64{0, 1}}
	z.Prune([]bool{true, false})
	assert.Equal(t, []float64{1}, z.Prob, "no remaining mass falls back to uniform")

	assert.Panics(t, func() { s.Prune([]bool{true}) }, "mask length mismatch is a programmer error")
}

// TestPrecisionWithin_Prior checks prior mean and undefined MeanInv.
func TestPrecisionWithin_Prior(t *testing.T) {
	w := dist.NewPrecisionWithin(3)
	assert.InDelta(t, 2.001, w.DF, 1e-12)
	m := w.Mean()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0, m.At(i, i), 1e-12)
	}
	mi := w.MeanInv()
	assert.True(t, math.IsNaN(mi.At(0, 0)), "MeanInv undefined for DF <= n+1")
	assert.InDelta(t, 0.0, w.RelativeEntropy(w), 1e-9)
}

// TestPrecisionWithin_Update checks the conjugate update on known statistics.
func TestPrecisionWithin_Update(t *testing.T) {
	const n, subjects = 2, 10
	covs := make([]*mat.SymDense, subjects)
	for i := range covs {
		covs[i] = mat.NewSymDense(n, []float64{0.5, 0, 0, 0.5})
	}
	w := dist.NewPrecisionWithin(n)
	df0 := w.DF
	ll, err := w.Update(covs)
	require.NoError(t, err)

	assert.InDelta(t, df0+subjects, w.DF, 1e-12)
	assert.InDelta(t, 1/(df0+5), w.Scale.At(0, 0), 1e-12)
	assert.InDelta(t, 0.0, w.Scale.At(0, 1), 1e-12)

	kl := w.RelativeEntropy(dist.NewPrecisionWithin(n))
	assert.GreaterOrEqual(t, kl, klSlack)
	assert.InDelta(t, -kl, ll, 1e-9)

	// E[Λ⁻¹] approaches the average covariance as data accumulate.
	mi := w.MeanInv()
	assert.InDelta(t, (df0+5)/(df0+subjects-3), mi.At(1, 1), 1e-9)
	assert.False(t, math.IsNaN(w.MeanLogDet()))

	_, err = w.Update([]*mat.SymDense{mat.NewSymDense(3, nil)})
	assert.ErrorIs(t, err, dist.ErrDimension)
	_, err = w.Update(nil)
	assert.ErrorIs(t, err, dist.ErrEmptyStats)
}

// TestPrecisionWithin_PruneStandardize checks submatrix and rescaling.
func TestPrecisionWithin_PruneStandardize(t *testing.T) {
	w := &dist.PrecisionWithin{
		Scale: mat.NewSymDense(3, []float64{1, 0.1, 0.2, 0.1, 2, 0.3, 0.2, 0.3, 3}),
		DF:    20,
	}
	w.Prune([]bool{true, false, true})
	require.Equal(t, 2, w.NTraits())
	assert.Equal(t, 0.2, w.Scale.At(0, 1))
	assert.Equal(t, 3.0, w.Scale.At(1, 1))

	w.Standardize([]float64{2, 0.5})
	assert.InDelta(t, 4.0, w.Scale.At(0, 0), 1e-12)
	assert.InDelta(t, 0.2, w.Scale.At(0, 1), 1e-12)
	assert.InDelta(t, 0.75, w.Scale.At(1, 1), 1e-12)
}

// TestPrecisionAmong_Update checks shape/rate updates, KL and MeanInv.
func TestPrecisionAmong_Update(t *testing.T) {
	g := dist.NewPrecisionAmong(2)
	assert.True(t, math.IsNaN(g.MeanInv()[0]))
	assert.InDelta(t, 0.0, g.RelativeEntropy(g), 1e-12)

	ll, err := g.Update([][]float64{{1, 4}, {3, 0}, {2, 2}, {2, 2}})
	require.NoError(t, err)
	assert.InDelta(t, 2.001, g.A, 1e-12)
	assert.InDeltaSlice(t, []float64{4.001, 4.001}, g.B, 1e-12)
	kl := g.RelativeEntropy(dist.NewPrecisionAmong(2))
	assert.GreaterOrEqual(t, kl, klSlack)
	assert.InDelta(t, -kl, ll, 1e-12)
	assert.InDelta(t, 4.001/1.001, g.MeanInv()[0], 1e-12)

	g.Standardize([]float64{1, 3})
	assert.InDelta(t, 4.001/5, g.B[1], 1e-12)
}

// TestGroupMean_Update checks the closed-form location and precision.
func TestGroupMean_Update(t *testing.T) {
	among := &dist.PrecisionAmong{A: 2, B: []float64{2, 2}}
	within := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	m := dist.NewGroupMean([]float64{0, 0})
	theta := [][]float64{{2, -2}, {2, -2}, {2, -2}, {2, -2}}

	ll, err := m.Update(theta, within, among)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.6, -1.6}, m.Loc, 1e-12)
	assert.InDelta(t, 5.0, m.Prec.At(0, 0), 1e-12)
	assert.InDeltaSlice(t, []float64{2.56 + 0.2, 2.56 + 0.2}, m.Mean2(), 1e-12)
	assert.InDelta(t, -m.RelativeEntropy(among), ll, 1e-12)

	m.Standardize([]float64{2, 2})
	assert.InDeltaSlice(t, []float64{0.8, -0.8}, m.Loc, 1e-12)
	assert.InDelta(t, 20.0, m.Prec.At(1, 1), 1e-12)
}

// TestGaussianGivenParam_CovAndRand checks predictive covariance and draws.
func TestGaussianGivenParam_CovAndRand(t *testing.T) {
	within := &dist.PrecisionWithin{Scale: mat.NewSymDense(2, []float64{0.1, 0, 0, 0.1}), DF: 23}
	among := &dist.PrecisionAmong{A: 5, B: []float64{4, 8}}
	pred := dist.NewPopulationPredictive(within, among)

	v := pred.Var()
	assert.InDelta(t, 10.0/20+1, v[0], 1e-12)
	assert.InDelta(t, 10.0/20+2, v[1], 1e-12)

	x, err := pred.Rand(50, randx.Source(3, 1))
	require.NoError(t, err)
	require.Len(t, x, 50)
	for _, xi := range x {
		require.Len(t, xi, 2)
		assert.False(t, math.IsNaN(xi[0]))
	}

	gm := &dist.GroupMean{Loc: []float64{1, -1}, Prec: mat.NewSymDense(2, []float64{4, 0, 0, 4})}
	gp := dist.NewGroupPredictive(within, gm)
	assert.Equal(t, []float64{1, -1}, gp.Mean())
	assert.InDelta(t, 0.5+0.25, gp.Var()[0], 1e-12)

	y, err := gp.Rand(400, randx.Source(3, 2))
	require.NoError(t, err)
	require.Len(t, y, 400)
	var m0 float64
	for _, yi := range y {
		m0 += yi[0] / 400
	}
	assert.InDelta(t, 1.0, m0, 0.3, "group draws center on the group mean")

	again, err := gp.Rand(400, randx.Source(3, 2))
	require.NoError(t, err)
	assert.Equal(t, y, again, "same source gives the same draws")
}
