// SPDX-License-Identifier: MIT

package dist

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// GaussianGivenParam is the predictive distribution of an individual trait
// vector θ drawn in two levels:
//
//	μ ~ N(Loc, Σμ),   Λ ~ Wishart(Within),   θ | μ, Λ ~ N(μ, Λ⁻¹).
//
// For a random individual in a random group, Loc is zero and Σμ = diag(1/ψ)
// with ψ drawn from Among. For an individual in a known group, Loc and Σμ
// come from that group's GroupMean.
type GaussianGivenParam struct {
	Loc    []float64
	LocCov *mat.SymDense // nil ⇒ diag(1/ψ), ψ ~ Among
	Among  *PrecisionAmong
	Within *PrecisionWithin
}

// NewPopulationPredictive returns the predictive distribution for a random
// individual in a random group.
func NewPopulationPredictive(within *PrecisionWithin, among *PrecisionAmong) *GaussianGivenParam {
	return &GaussianGivenParam{
		Loc:    make([]float64, within.NTraits()),
		Among:  among,
		Within: within,
	}
}

// NewGroupPredictive returns the predictive distribution for a random
// individual in the group described by mean.
func NewGroupPredictive(within *PrecisionWithin, mean *GroupMean) *GaussianGivenParam {
	return &GaussianGivenParam{
		Loc:    mean.Loc,
		LocCov: mean.Cov(),
		Within: within,
	}
}

// NTraits returns the dimension of θ.
func (g *GaussianGivenParam) NTraits() int { return g.Within.NTraits() }

// Mean returns E[θ].
func (g *GaussianGivenParam) Mean() []float64 {
	out := make([]float64, len(g.Loc))
	copy(out, g.Loc)
	return out
}

// Cov returns Cov[θ] = E[Λ⁻¹] + Σμ, with E[Σμ] = diag(E[1/ψ]) when Σμ is
// drawn from Among. NaN entries signal undefined expectations.
func (g *GaussianGivenParam) Cov() *mat.SymDense {
	c := g.Within.MeanInv()
	if g.LocCov != nil {
		c.AddSym(c, g.LocCov)
		return c
	}
	for t, v := range g.Among.MeanInv() {
		c.SetSym(t, t, c.At(t, t)+v)
	}
	return c
}

// Var returns the diagonal of Cov.
func (g *GaussianGivenParam) Var() []float64 { return Diag(g.Cov()) }

// Rand draws n trait vectors, each with freshly drawn parameters.
func (g *GaussianGivenParam) Rand(n int, src rand.Source) ([][]float64, error) {
	d := g.NTraits()
	wish, ok := distmat.NewWishart(g.Within.Scale, g.Within.DF, src)
	if !ok {
		return nil, fmt.Errorf("predictive: within scale: %w", ErrNotPositiveDefinite)
	}
	out := make([][]float64, n)
	var lambda mat.SymDense
	for k := range out {
		mu, err := g.drawMean(src)
		if err != nil {
			return nil, err
		}
		wish.RandSymTo(&lambda)
		cov, err := invSym(&lambda)
		if err != nil {
			return nil, fmt.Errorf("predictive: sampled precision: %w", err)
		}
		norm, ok := distmv.NewNormal(mu, cov, src)
		if !ok {
			return nil, fmt.Errorf("predictive: sampled covariance: %w", ErrNotPositiveDefinite)
		}
		out[k] = norm.Rand(make([]float64, d))
	}
	return out, nil
}

func (g *GaussianGivenParam) drawMean(src rand.Source) ([]float64, error) {
	if g.LocCov != nil {
		norm, ok := distmv.NewNormal(g.Loc, g.LocCov, src)
		if !ok {
			return nil, fmt.Errorf("predictive: group mean covariance: %w", ErrNotPositiveDefinite)
		}
		return norm.Rand(make([]float64, len(g.Loc))), nil
	}
	mu := make([]float64, len(g.Loc))
	for t, b := range g.Among.B {
		psi := distuv.Gamma{Alpha: g.Among.A, Beta: b, Src: src}.Rand()
		z := distuv.Normal{Mu: 0, Sigma: 1, Src: src}.Rand()
		mu[t] = g.Loc[t] + z/math.Sqrt(psi)
	}
	return mu, nil
}
