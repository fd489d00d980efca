// SPDX-License-Identifier: MIT

package dist

import (
	"context"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"
)

// PriorConcentration is the Dirichlet concentration of every trait in the
// near-noninformative prior of TraitProb.
const PriorConcentration = 0.001

// TraitProb is a Dirichlet distribution over the probability that an item is
// driven by each latent trait. A single TraitProb is the shared prior of every
// item's TraitSelector.
type TraitProb struct {
	// Alpha holds one concentration parameter per trait; all entries > 0.
	Alpha []float64
}

// NewTraitProb returns the near-noninformative prior with nTraits traits.
func NewTraitProb(nTraits int) *TraitProb {
	alpha := make([]float64, nTraits)
	for i := range alpha {
		alpha[i] = PriorConcentration
	}
	return &TraitProb{Alpha: alpha}
}

// NTraits returns the number of traits.
func (p *TraitProb) NTraits() int { return len(p.Alpha) }

// Clone returns a deep copy.
func (p *TraitProb) Clone() *TraitProb {
	return &TraitProb{Alpha: slices.Clone(p.Alpha)}
}

// Mean returns E[w] = alpha / sum(alpha).
func (p *TraitProb) Mean() []float64 {
	out := slices.Clone(p.Alpha)
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// MeanLog returns E[log w] = ψ(alpha) - ψ(sum(alpha)).
func (p *TraitProb) MeanLog() []float64 {
	psiSum := mathext.Digamma(floats.Sum(p.Alpha))
	out := make([]float64, len(p.Alpha))
	for i, a := range p.Alpha {
		out[i] = mathext.Digamma(a) - psiSum
	}
	return out
}

// Update sets alpha = sumResp + prior alpha and returns minus the KL
// divergence from the prior.
//
// sumResp is the sum of item responsibilities for each trait.
func (p *TraitProb) Update(sumResp []float64) (float64, error) {
	if len(sumResp) != len(p.Alpha) {
		return 0, fmt.Errorf("trait prob update: got %d traits, want %d: %w",
			len(sumResp), len(p.Alpha), ErrDimension)
	}
	prior := NewTraitProb(len(p.Alpha))
	for i := range p.Alpha {
		p.Alpha[i] = sumResp[i] + prior.Alpha[i]
	}
	return -p.RelativeEntropy(prior), nil
}

// Adapt returns an updated copy of p and its evidence contribution.
func (p *TraitProb) Adapt(ctx context.Context, sumResp []float64) (*TraitProb, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	q := p.Clone()
	ll, err := q.Update(sumResp)
	if err != nil {
		return nil, 0, err
	}
	return q, ll, nil
}

// RelativeEntropy returns KL(p || prior) in closed form.
func (p *TraitProb) RelativeEntropy(prior *TraitProb) float64 {
	sumP := floats.Sum(p.Alpha)
	sumQ := floats.Sum(prior.Alpha)
	psiSum := mathext.Digamma(sumP)
	kl := lgamma(sumP) - lgamma(sumQ)
	for i, a := range p.Alpha {
		b := prior.Alpha[i]
		kl += lgamma(b) - lgamma(a) + (a-b)*(mathext.Digamma(a)-psiSum)
	}
	return kl
}

// Prune keeps only the traits flagged in keep.
func (p *TraitProb) Prune(keep []bool) {
	p.Alpha = pruneVec(p.Alpha, keepIndex(keep, len(p.Alpha)))
}
