// SPDX-License-Identifier: MIT

package group

import (
	"context"
	"math"
	"testing"

	"github.com/katalvlaran/irtcalc/dist"
	"github.com/katalvlaran/irtcalc/grm"
	"github.com/katalvlaran/irtcalc/randx"
	"github.com/katalvlaran/irtcalc/scale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fixture builds three 4-level item scales and a group whose responses
// follow one latent trait.
func fixture(t *testing.T, nSubj, nSamples int) (*RespondentGroup, []*scale.ItemScale) {
	t.Helper()
	rng := randx.New(21)
	tau := []float64{-1, 0, 1}
	responses := make([][]int, nSubj)
	for s := range responses {
		th := rng.NormFloat64()
		responses[s] = []int{
			grm.SampleResponse(th, tau, rng),
			grm.SampleResponse(th, tau, rng),
			grm.SampleResponse(th, tau, rng),
		}
	}
	responses[0][1] = -1
	scales := make([]*scale.ItemScale, 3)
	samplers := make([]TraitSampler, 3)
	for i := range scales {
		sc, err := scale.New(i, []int{10, 20, 20, 10}, 1, 1, 3, 1)
		require.NoError(t, err)
		scales[i] = sc
		samplers[i] = sc
	}
	g, err := InitializeByItem("g1", responses, samplers, nSamples, 1, 7)
	require.NoError(t, err)
	return g, scales
}

func env(scales []*scale.ItemScale, nT int) Env {
	sc := make([]Scale, len(scales))
	for i, s := range scales {
		sc[i] = s
	}
	within := dist.NewPrecisionWithin(nT)
	within.DF += 20
	return Env{Scales: sc, Within: within, Among: &dist.PrecisionAmong{A: 3, B: make3(nT, 2)}}
}

func make3(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// TestInitializeByItem_Shapes checks initial trait samples and mean.
func TestInitializeByItem_Shapes(t *testing.T) {
	g, _ := fixture(t, 20, 4)
	assert.Equal(t, 4, g.NSamples())
	assert.Equal(t, 20, g.NSubjects())
	assert.Equal(t, 3, g.NTraits())
	assert.Len(t, g.Mu.Loc, 3)

	_, err := InitializeByItem("empty", nil, nil, 2, 1, 1)
	assert.ErrorIs(t, err, ErrNoSubjects)
	_, err = New("bad", [][]int{{0}}, [][][]float64{{{0}, {1}}}, 1)
	assert.ErrorIs(t, err, ErrShape)
}

// TestEnergy_GradientMatchesFiniteDifference checks the HMC gradient.
func TestEnergy_GradientMatchesFiniteDifference(t *testing.T) {
	g, scales := fixture(t, 5, 2)
	e := newEnergy(g, env(scales, 3))
	x := make([]float64, 0, 15)
	for _, v := range g.Theta[0] {
		x = append(x, v...)
	}
	grad := make([]float64, len(x))
	e.grad(x, grad)
	u := make([]float64, 5)
	const h = 1e-6
	for j := range x {
		up := append([]float64(nil), x...)
		dn := append([]float64(nil), x...)
		up[j] += h
		dn[j] -= h
		e.energy(up, u)
		fu := sum(u)
		e.energy(dn, u)
		fd := sum(u)
		assert.InDelta(t, (fu-fd)/(2*h), grad[j], 1e-4, "coordinate %d", j)
	}
}

// TestDItemLogProbByTau_FiniteDifference checks the threshold gradient.
func TestDItemLogProbByTau_FiniteDifference(t *testing.T) {
	g, _ := fixture(t, 15, 3)
	w := []float64{0.6, 0.3, 0.1}
	tau := [][]float64{{-0.8, 0.1, 1.2}}
	d := g.DItemLogProbByTau(tau, 0, w)
	f := func(tt []float64) float64 {
		lp := g.ItemLogProbByTau([][]float64{tt}, 0)[0]
		var s float64
		for k, v := range lp {
			s += w[k] * v
		}
		return s
	}
	const h = 1e-6
	for l := range tau[0] {
		up := append([]float64(nil), tau[0]...)
		dn := append([]float64(nil), tau[0]...)
		up[l] += h
		dn[l] -= h
		assert.InDelta(t, (f(up)-f(dn))/(2*h), d[0][l], 1e-4, "threshold %d", l)
	}
}

// TestAdapt_UpdatesCopy checks one adaptation step.
func TestAdapt_UpdatesCopy(t *testing.T) {
	g, scales := fixture(t, 25, 6)
	before := g.Theta[0][0][0]
	q, ll, err := g.Adapt(context.Background(), env(scales, 3))
	require.NoError(t, err)
	assert.False(t, math.IsNaN(ll))
	assert.Equal(t, ll, q.LL)
	assert.Equal(t, before, g.Theta[0][0][0], "receiver untouched")
	assert.Equal(t, uint64(1), q.Step)

	_, _, err = g.Adapt(context.Background(), env(scales[:2], 3))
	assert.ErrorIs(t, err, ErrShape)
	_, _, err = g.Adapt(context.Background(), env(scales, 2))
	assert.ErrorIs(t, err, ErrShape)
}

// TestCovAndTransform checks pooled covariance, projection and pruning.
func TestCovAndTransform(t *testing.T) {
	g, _ := fixture(t, 30, 3)
	c := g.CovAll()
	require.Equal(t, 3, c.SymmetricDim())
	for i := 0; i < 3; i++ {
		assert.Greater(t, c.At(i, i), 0.0)
	}
	covs := g.MeanCovTheta()
	require.Len(t, covs, 30)
	assert.Equal(t, 3, covs[0].SymmetricDim())

	proj := mat.NewDense(3, 2, []float64{1, 0, 0, 2, 0, 0})
	x01 := g.Theta[1][4][1]
	require.NoError(t, g.TransformTraits(proj))
	assert.Equal(t, 2, g.NTraits())
	assert.InDelta(t, 2*x01, g.Theta[1][4][1], 1e-12)
	assert.Len(t, g.Mu.Loc, 2)
	assert.ErrorIs(t, g.TransformTraits(proj), ErrShape)

	g.Standardize([]float64{1, 2})
	assert.InDelta(t, x01, g.Theta[1][4][1], 1e-12)
	g.Prune([]bool{false, true})
	assert.Equal(t, 1, g.NTraits())
	assert.InDelta(t, x01, g.Theta[1][4][0], 1e-12)
	assert.Len(t, g.Mu.Loc, 1)
}

// TestDescriptive checks rating summaries and counts.
func TestDescriptive(t *testing.T) {
	g, _ := fixture(t, 10, 2)
	g.Responses[1] = []int{-1, -1, -1}
	g.Responses[2] = []int{0, 3, -1}
	mr := g.MeanResponse()
	assert.True(t, math.IsNaN(mr[1]))
	assert.InDelta(t, 2.5, mr[2], 1e-12)

	values := [][]float64{{-2, -1, 1, 2}, {-2, -1, 1, 2}, {-2, -1, 1, 2}}
	assert.InDelta(t, 0.0, g.MeanScaledResponse(values)[2], 1e-12)

	counts, missing := g.ResponseCount(2, 4)
	total := missing
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, 10, total)
	assert.GreaterOrEqual(t, missing, 2)

	y := g.WeightedTraits([]float64{1, 0, 0})
	assert.Equal(t, g.Theta[1][3][0], y[1][3])
	assert.Greater(t, g.EntropyTheta(), math.Inf(-1))
}

func sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}
