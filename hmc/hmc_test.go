// SPDX-License-Identifier: MIT

package hmc_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/irtcalc/hmc"
	"github.com/katalvlaran/irtcalc/randx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

// gaussianBlocks returns the energy and gradient of independent standard
// normal coordinates centered at loc, one block per coordinate pair.
func gaussianBlocks(loc float64, bs int) (hmc.EnergyFunc, hmc.GradFunc) {
	energy := func(x, dst []float64) {
		for k := range dst {
			var e float64
			for _, v := range x[k*bs : (k+1)*bs] {
				e += (v - loc) * (v - loc) / 2
			}
			dst[k] = e
		}
	}
	grad := func(x, dst []float64) {
		for i, v := range x {
			dst[i] = v - loc
		}
	}
	return energy, grad
}

// TestSampler_StandardNormal checks that samples approach the target.
func TestSampler_StandardNormal(t *testing.T) {
	const n, dim = 200, 4
	energy, grad := gaussianBlocks(2, 2)
	x := make([][]float64, n)
	for i := range x {
		x[i] = make([]float64, dim)
	}
	s := hmc.New(energy, grad, x, 0.3, randx.New(11))
	s.BlockSize = 2
	for round := 0; round < 5; round++ {
		err := s.Sample(hmc.DefaultMinSteps, hmc.DefaultMaxSteps)
		if err != nil {
			require.ErrorIs(t, err, hmc.ErrAcceptance)
		}
	}
	require.Equal(t, 2, s.NBlocks())

	col := make([]float64, n)
	for i := range x {
		col[i] = s.X[i][3]
	}
	mean, std := stat.MeanStdDev(col, nil)
	assert.InDelta(t, 2.0, mean, 0.3)
	assert.InDelta(t, 1.0, std, 0.3)
	assert.Len(t, s.U(), n)
	assert.Greater(t, s.AcceptRate, 0.0)
}

// TestSampler_Bounds verifies that reflected trajectories respect bounds.
func TestSampler_Bounds(t *testing.T) {
	energy, grad := gaussianBlocks(0, 1)
	x := [][]float64{{0.5}, {0.2}, {0.9}}
	s := hmc.New(energy, grad, x, 0.5, randx.New(3))
	s.Lower, s.Upper = []float64{0}, []float64{1}
	_ = s.Sample(3, 10)
	for _, xi := range s.X {
		assert.GreaterOrEqual(t, xi[0], 0.0)
		assert.LessOrEqual(t, xi[0], 1.0)
	}
	assert.Equal(t, []float64{0.5}, x[0], "New copies the input samples")
}

// TestSampler_Shape verifies dimension validation.
func TestSampler_Shape(t *testing.T) {
	energy, grad := gaussianBlocks(0, 2)
	s := hmc.New(energy, grad, [][]float64{{0, 0, 0}}, 0.1, randx.New(1))
	s.BlockSize = 2
	assert.ErrorIs(t, s.Sample(1, 2), hmc.ErrShape)
}

// TestEntropy_Gaussian compares against the analytic normal entropy.
func TestEntropy_Gaussian(t *testing.T) {
	rng := randx.New(5)
	const n = 2000
	x := make([][]float64, n)
	for i := range x {
		x[i] = []float64{rng.NormFloat64(), rng.NormFloat64()}
	}
	want := math.Log(2 * math.Pi * math.E) // two unit-variance dimensions
	assert.InDelta(t, want, hmc.Entropy(x, 2), 0.25)
	assert.Equal(t, 0.0, hmc.Entropy(x[:1], 2))
}
