// SPDX-License-Identifier: MIT

package hmc

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Defaults for Sampler parameters.
const (
	DefaultLeapfrogSteps = 10
	DefaultMinSteps      = 5
	DefaultMaxSteps      = 20

	// MinAcceptRate is the lowest tolerated acceptance rate of the last step.
	MinAcceptRate = 0.2

	lowAcceptRate  = 0.5
	highAcceptRate = 0.95
	epsilonShrink  = 0.7
	epsilonGrow    = 1.3
)

// EnergyFunc writes the energy of every block of x into dst
// (len(dst) == number of blocks).
type EnergyFunc func(x, dst []float64)

// GradFunc writes dU/dx into dst (len(dst) == len(x)).
type GradFunc func(x, dst []float64)

// Sampler holds the sample set and the sampling parameters.
type Sampler struct {
	Energy EnergyFunc
	Grad   GradFunc

	// X[n] is the n-th sample vector; all samples share one length.
	X [][]float64

	// BlockSize is the number of coordinates per independent block;
	// 0 means one block spanning the whole vector.
	BlockSize int

	// Lower and Upper bound each coordinate; nil means unbounded. A bound
	// slice may have BlockSize entries, repeated for every block.
	Lower, Upper []float64

	Epsilon       float64
	LeapfrogSteps int

	Rng *rand.Rand

	// Results of the last Sample call.
	Steps        int
	AcceptRate   float64
	Trajectories int

	energy [][]float64 // energy[n][k] of block k in sample n
}

// New returns a Sampler over a copy of x.
func New(energy EnergyFunc, grad GradFunc, x [][]float64, epsilon float64, rng *rand.Rand) *Sampler {
	xc := make([][]float64, len(x))
	for n := range x {
		xc[n] = append([]float64(nil), x[n]...)
	}
	return &Sampler{
		Energy:        energy,
		Grad:          grad,
		X:             xc,
		Epsilon:       epsilon,
		LeapfrogSteps: DefaultLeapfrogSteps,
		Rng:           rng,
	}
}

// Dim returns the length of every sample vector.
func (s *Sampler) Dim() int {
	if len(s.X) == 0 {
		return 0
	}
	return len(s.X[0])
}

func (s *Sampler) blockSize() int {
	if s.BlockSize <= 0 {
		return s.Dim()
	}
	return s.BlockSize
}

// NBlocks returns the number of independent blocks per sample.
func (s *Sampler) NBlocks() int {
	if s.Dim() == 0 {
		return 0
	}
	return s.Dim() / s.blockSize()
}

func (s *Sampler) validate() error {
	d, bs := s.Dim(), s.blockSize()
	if d == 0 || d%bs != 0 {
		return fmt.Errorf("sampler: dim %d, block size %d: %w", d, bs, ErrShape)
	}
	for n, x := range s.X {
		if len(x) != d {
			return fmt.Errorf("sampler: sample %d has length %d, want %d: %w", n, len(x), d, ErrShape)
		}
	}
	for _, b := range [][]float64{s.Lower, s.Upper} {
		if b != nil && len(b) != d && len(b) != bs {
			return fmt.Errorf("sampler: bound length %d: %w", len(b), ErrShape)
		}
	}
	return nil
}

// U returns the total energy of every sample, as evaluated after the last
// accepted move.
func (s *Sampler) U() []float64 {
	s.ensureEnergy()
	out := make([]float64, len(s.X))
	for n, e := range s.energy {
		out[n] = floats.Sum(e)
	}
	return out
}

func (s *Sampler) ensureEnergy() {
	if len(s.energy) == len(s.X) {
		return
	}
	s.energy = make([][]float64, len(s.X))
	for n, x := range s.X {
		s.energy[n] = make([]float64, s.NBlocks())
		s.Energy(x, s.energy[n])
	}
}

// Sample runs HMC steps until the mean energy settles, at least minSteps and
// at most maxSteps. The step size adapts to the acceptance rate after every
// step. ErrAcceptance is returned, with the samples kept, when the last
// step's acceptance rate is below MinAcceptRate.
func (s *Sampler) Sample(minSteps, maxSteps int) error {
	if err := s.validate(); err != nil {
		return err
	}
	s.energy = nil
	s.ensureEnergy()
	s.Steps, s.Trajectories = 0, 0
	prevMean := stat.Mean(s.U(), nil)
	for s.Steps < maxSteps {
		s.AcceptRate = s.step()
		s.Steps++
		s.Trajectories += len(s.X)
		switch {
		case s.AcceptRate < lowAcceptRate:
			s.Epsilon *= epsilonShrink
		case s.AcceptRate > highAcceptRate:
			s.Epsilon *= epsilonGrow
		}
		u := s.U()
		mean, std := stat.MeanStdDev(u, nil)
		if len(u) < 2 {
			std = 0
		}
		settled := math.Abs(mean-prevMean) <= 2*std/math.Sqrt(float64(len(u)))
		prevMean = mean
		if s.Steps >= minSteps && settled {
			break
		}
	}
	if s.AcceptRate < MinAcceptRate {
		return ErrAcceptance
	}
	return nil
}

// step runs one trajectory per sample and returns the block acceptance rate.
func (s *Sampler) step() float64 {
	d, bs, nb := s.Dim(), s.blockSize(), s.NBlocks()
	p := make([]float64, d)
	g := make([]float64, d)
	x1 := make([]float64, d)
	e1 := make([]float64, nb)
	var accepted int
	for n, x0 := range s.X {
		for i := range p {
			p[i] = s.Rng.NormFloat64()
		}
		h0 := make([]float64, nb)
		for k := 0; k < nb; k++ {
			h0[k] = s.energy[n][k] + kinetic(p[k*bs:(k+1)*bs])
		}
		copy(x1, x0)
		// Jitter the step size to avoid periodic trajectories.
		eps := s.Epsilon * (0.9 + 0.2*s.Rng.Float64())
		s.leapfrog(x1, p, g, eps)
		s.Energy(x1, e1)
		for k := 0; k < nb; k++ {
			h1 := e1[k] + kinetic(p[k*bs:(k+1)*bs])
			dh := h0[k] - h1
			if !math.IsNaN(dh) && (dh >= 0 || s.Rng.Float64() < math.Exp(dh)) {
				copy(x0[k*bs:(k+1)*bs], x1[k*bs:(k+1)*bs])
				s.energy[n][k] = e1[k]
				accepted++
			}
		}
	}
	return float64(accepted) / float64(len(s.X)*nb)
}

func (s *Sampler) leapfrog(x, p, g []float64, eps float64) {
	s.Grad(x, g)
	floats.AddScaled(p, -eps/2, g)
	for l := 0; l < s.LeapfrogSteps; l++ {
		floats.AddScaled(x, eps, p)
		s.reflect(x, p)
		s.Grad(x, g)
		if l < s.LeapfrogSteps-1 {
			floats.AddScaled(p, -eps, g)
		} else {
			floats.AddScaled(p, -eps/2, g)
		}
	}
}

// reflect mirrors coordinates that left their bounds and flips the
// corresponding momenta.
func (s *Sampler) reflect(x, p []float64) {
	if s.Lower == nil && s.Upper == nil {
		return
	}
	for i := range x {
		lo, hi := bound(s.Lower, i, math.Inf(-1)), bound(s.Upper, i, math.Inf(1))
		for x[i] < lo || x[i] > hi {
			if x[i] < lo {
				x[i] = 2*lo - x[i]
			} else {
				x[i] = 2*hi - x[i]
			}
			p[i] = -p[i]
		}
	}
}

func bound(b []float64, i int, def float64) float64 {
	if b == nil {
		return def
	}
	return b[i%len(b)]
}

func kinetic(p []float64) float64 {
	return floats.Dot(p, p) / 2
}
