// SPDX-License-Identifier: MIT

package dist

import (
	"context"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"
)

// Gamma prior parameters of PrecisionAmong.
const (
	PriorShape = 0.001
	PriorRate  = 0.001
)

// PrecisionAmong models the precision ψ_t of group-mean traits across groups
// as independent gamma distributions sharing one shape A, with one rate per
// trait in B.
type PrecisionAmong struct {
	A float64
	B []float64
}

// NewPrecisionAmong returns the near-noninformative prior with nTraits traits.
func NewPrecisionAmong(nTraits int) *PrecisionAmong {
	b := make([]float64, nTraits)
	for i := range b {
		b[i] = PriorRate
	}
	return &PrecisionAmong{A: PriorShape, B: b}
}

// NTraits returns the number of traits.
func (g *PrecisionAmong) NTraits() int { return len(g.B) }

// Clone returns a deep copy.
func (g *PrecisionAmong) Clone() *PrecisionAmong {
	return &PrecisionAmong{A: g.A, B: slices.Clone(g.B)}
}

// Mean returns E[ψ] = A/B.
func (g *PrecisionAmong) Mean() []float64 {
	out := make([]float64, len(g.B))
	for i, b := range g.B {
		out[i] = g.A / b
	}
	return out
}

// MeanLog returns E[log ψ] = ψ(A) - log B.
func (g *PrecisionAmong) MeanLog() []float64 {
	d := mathext.Digamma(g.A)
	out := make([]float64, len(g.B))
	for i, b := range g.B {
		out[i] = d - math.Log(b)
	}
	return out
}

// MeanInv returns E[1/ψ] = B/(A-1), NaN-filled when A <= 1.
func (g *PrecisionAmong) MeanInv() []float64 {
	if g.A <= 1 {
		return nanVec(len(g.B))
	}
	out := slices.Clone(g.B)
	floats.Scale(1/(g.A-1), out)
	return out
}

// Update sets A = prior A + G/2 and B[t] = prior B[t] + Σ_g mean2[g][t]/2,
// where mean2[g][t] = E[μ_gt²]. It returns minus the KL divergence from the
// prior.
func (g *PrecisionAmong) Update(mean2 [][]float64) (float64, error) {
	if len(mean2) == 0 {
		return 0, ErrEmptyStats
	}
	prior := NewPrecisionAmong(len(g.B))
	b := slices.Clone(prior.B)
	for gi, m := range mean2 {
		if len(m) != len(b) {
			return 0, fmt.Errorf("precision among: group %d has %d traits, want %d: %w",
				gi, len(m), len(b), ErrDimension)
		}
		for t, v := range m {
			b[t] += v / 2
		}
	}
	g.A = prior.A + float64(len(mean2))/2
	g.B = b
	return -g.RelativeEntropy(prior), nil
}

// Adapt returns an updated copy of g and its evidence contribution.
func (g *PrecisionAmong) Adapt(ctx context.Context, mean2 [][]float64) (*PrecisionAmong, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	q := g.Clone()
	ll, err := q.Update(mean2)
	if err != nil {
		return nil, 0, err
	}
	return q, ll, nil
}

// RelativeEntropy returns Σ_t KL(g_t || prior_t) for gamma distributions in
// the shape/rate parametrisation.
func (g *PrecisionAmong) RelativeEntropy(prior *PrecisionAmong) float64 {
	aq, ap := g.A, prior.A
	base := (aq-ap)*mathext.Digamma(aq) - lgamma(aq) + lgamma(ap)
	var kl float64
	for t, bq := range g.B {
		bp := prior.B[t]
		kl += base + ap*(math.Log(bq)-math.Log(bp)) + aq*(bp-bq)/bq
	}
	return kl
}

// Prune keeps only the traits flagged in keep.
func (g *PrecisionAmong) Prune(keep []bool) {
	g.B = pruneVec(g.B, keepIndex(keep, len(g.B)))
}

// Standardize divides every rate by mean(s²), the shape being shared
// across traits.
func (g *PrecisionAmong) Standardize(s []float64) {
	var m2 float64
	for _, v := range s {
		m2 += v * v
	}
	m2 /= float64(len(s))
	floats.Scale(1/m2, g.B)
}
