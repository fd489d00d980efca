// SPDX-License-Identifier: MIT

package scale

import (
	"context"
	"testing"

	"github.com/katalvlaran/irtcalc/dist"
	"github.com/katalvlaran/irtcalc/grm"
	"github.com/katalvlaran/irtcalc/randx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// fakeGroup holds fixed trait samples theta[n][s][t] and the responses of
// every subject to item 0.
type fakeGroup struct {
	r     []int
	theta [][][]float64
}

func (g *fakeGroup) ItemLogProbByTau(tau [][]float64, _ int) [][]float64 {
	nT := len(g.theta[0][0])
	inv := 1 / float64(len(g.theta))
	out := make([][]float64, len(tau))
	for m, tm := range tau {
		out[m] = make([]float64, nT)
		for _, th := range g.theta {
			for s, ths := range th {
				for t, v := range ths {
					out[m][t] += grm.LogProb(v, tm, g.r[s]) * inv
				}
			}
		}
	}
	return out
}

func (g *fakeGroup) DItemLogProbByTau(tau [][]float64, _ int, w []float64) [][]float64 {
	inv := 1 / float64(len(g.theta))
	out := make([][]float64, len(tau))
	for m, tm := range tau {
		out[m] = make([]float64, len(tm))
		for _, th := range g.theta {
			for s, ths := range th {
				r := g.r[s]
				if r < 0 {
					continue
				}
				lo, hi := grm.Interval(tm, r)
				for t, v := range ths {
					da, db := grm.DLogProbRange(lo-v, hi-v)
					if r > 0 {
						out[m][r-1] += w[t] * da * inv
					}
					if r < len(tm) {
						out[m][r] += w[t] * db * inv
					}
				}
			}
		}
	}
	return out
}

// newFakeGroup simulates nSubj subjects whose responses follow trait 0,
// while trait 1 is unrelated noise.
func newFakeGroup(nSubj, nSamples int, tau []float64, seed uint64) *fakeGroup {
	rng := randx.New(seed)
	g := &fakeGroup{r: make([]int, nSubj), theta: make([][][]float64, nSamples)}
	truth := make([]float64, nSubj)
	for s := range truth {
		truth[s] = 1.5 * rng.NormFloat64()
		g.r[s] = grm.SampleResponse(truth[s], tau, rng)
	}
	for n := range g.theta {
		g.theta[n] = make([][]float64, nSubj)
		for s := range truth {
			g.theta[n][s] = []float64{truth[s] + 0.1*rng.NormFloat64(), 1.5 * rng.NormFloat64()}
		}
	}
	return g
}

// TestNew_Validation checks constructor preconditions.
func TestNew_Validation(t *testing.T) {
	_, err := New(0, []int{5}, 3, 1, 2, 1)
	assert.ErrorIs(t, err, ErrLevels)
	_, err = New(0, []int{5, 5}, 3, 0, 2, 1)
	assert.ErrorIs(t, err, ErrSamples)

	s, err := New(3, []int{5, 10, 5}, 3, 4, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, s.NSamples())
	assert.Equal(t, 3, s.NLevels())
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, s.TraitWeights(), 1e-12)
	assert.InDelta(t, -s.MeanTau()[1], s.MeanTau()[0], 1e-9, "symmetric counts give symmetric thresholds")
}

// TestObjective_GradientMatchesFiniteDifference checks the MAP gradient.
func TestObjective_GradientMatchesFiniteDifference(t *testing.T) {
	g := newFakeGroup(30, 3, []float64{-1, 0.5, 1.5}, 2)
	o := &objective{groups: []ResponseGroup{g}, item: 0, w: []float64{0.7, 0.3}}
	eta := []float64{0.2, -0.4, 0.5, -0.3}
	grad := make([]float64, len(eta))
	o.gradNegLogProb(eta, grad)
	const h = 1e-6
	for j := range eta {
		up := append([]float64(nil), eta...)
		dn := append([]float64(nil), eta...)
		up[j] += h
		dn[j] -= h
		num := (o.negLogProb(up) - o.negLogProb(dn)) / (2 * h)
		assert.InDelta(t, num, grad[j], 1e-4, "component %d", j)
	}
}

// TestAdapt_SelectsDrivingTrait checks selector and threshold learning.
func TestAdapt_SelectsDrivingTrait(t *testing.T) {
	trueTau := []float64{-1.5, 0, 1.5}
	g := newFakeGroup(200, 4, trueTau, 9)
	counts := make([]int, 4)
	for _, r := range g.r {
		counts[r]++
	}
	s, err := New(0, counts, 3, 1, 2, 5)
	require.NoError(t, err)
	prior := dist.NewTraitProb(2)
	env := Env{Groups: []ResponseGroup{g}, TraitPrior: prior, Logger: zap.NewNop()}

	q, ll, err := s.Adapt(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ll)
	assert.Greater(t, q.Selector.Prob[0], 0.5, "responses follow trait 0")
	assert.InDelta(t, 1.0, floats.Sum(q.Selector.Prob), 1e-12)
	assert.Equal(t, uint64(1), q.Step)
	assert.Equal(t, uint64(0), s.Step, "receiver untouched")

	tau := q.MeanTau()
	for l := range trueTau {
		assert.InDelta(t, trueTau[l], tau[l], 0.6, "threshold %d", l)
	}
}

// TestAdapt_SampledThresholds exercises the HMC path.
func TestAdapt_SampledThresholds(t *testing.T) {
	g := newFakeGroup(80, 2, []float64{-1, 1}, 4)
	s, err := New(1, []int{20, 40, 20}, 3, 6, 2, 5)
	require.NoError(t, err)
	env := Env{Groups: []ResponseGroup{g}, TraitPrior: dist.NewTraitProb(2)}

	q, _, err := s.Adapt(context.Background(), env)
	require.NoError(t, err)
	require.Equal(t, 6, q.NSamples())
	for _, eta := range q.Eta {
		assert.InDelta(t, 0.0, floats.Sum(eta), 1e-9, "samples are centered")
		tau := grm.Tau(eta)
		assert.Less(t, tau[0], tau[1])
	}
	kl := q.RelativeEntropyRePrior(env.TraitPrior)
	assert.False(t, isNaN(kl))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = s.Adapt(ctx, env)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRelativeEntropyRePrior_PointEstimate checks the single-sample case.
func TestRelativeEntropyRePrior_PointEstimate(t *testing.T) {
	s, err := New(0, []int{10, 10}, 3, 1, 3, 1)
	require.NoError(t, err)
	prior := dist.NewTraitProb(3)
	want := s.Selector.RelativeEntropy(prior) - grm.EtaPriorLogProb(s.Eta[0])
	assert.InDelta(t, want, s.RelativeEntropyRePrior(prior), 1e-12)
}

// TestStandardize_DividesThresholds checks threshold rescaling.
func TestStandardize_DividesThresholds(t *testing.T) {
	s, err := New(0, []int{10, 30, 40, 20}, 3, 2, 2, 1)
	require.NoError(t, err)
	s.Selector.Prob = []float64{1, 0}
	before := s.MeanTau()
	s.Standardize([]float64{2, 5})
	after := s.MeanTau()
	for l := range before {
		assert.InDelta(t, before[l]/2, after[l], 1e-9)
	}

	s.Prune([]bool{true, false})
	assert.Equal(t, []float64{1}, s.Selector.Prob)
}

// TestReport_Consistency checks typical traits and ordinal probabilities.
func TestReport_Consistency(t *testing.T) {
	s, err := New(0, []int{10, 30, 40, 20}, 1, 1, 1, 1)
	require.NoError(t, err)
	typ := s.MeanTypicalTrait(1)
	require.Len(t, typ, 4)
	for l := 1; l < len(typ); l++ {
		assert.Greater(t, typ[l], typ[l-1])
	}
	assert.InDelta(t, 1.0, floats.Sum(s.OrdinalProb(0.2)), 1e-12)
	assert.Less(t, s.MeanOrdinal(-3), s.MeanOrdinal(3))

	th := s.SampleTrait([]int{0, 3, -1}, 5, 1, randx.New(2))
	require.Len(t, th, 5)
	assert.Len(t, th[0], 3)
	tau := s.MeanTau()
	for n := range th {
		assert.LessOrEqual(t, th[n][0], tau[0]+1e-9)
		assert.GreaterOrEqual(t, th[n][1], tau[2]-1e-9)
	}
}

func isNaN(x float64) bool { return x != x }
