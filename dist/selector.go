// SPDX-License-Identifier: MIT

package dist

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// selectorEps floors the probabilities inside log(prob).
const selectorEps = 1e-30

// SelectThreshold is the responsibility above which an item counts as
// assigned to a trait.
const SelectThreshold = 0.5

// TraitSelector is the categorical responsibility of one item for each
// latent trait. Prob is non-negative and sums to one.
type TraitSelector struct {
	Prob []float64
}

// NewTraitSelector returns a uniform selector over nTraits traits.
func NewTraitSelector(nTraits int) *TraitSelector {
	p := make([]float64, nTraits)
	for i := range p {
		p[i] = 1 / float64(nTraits)
	}
	return &TraitSelector{Prob: p}
}

// NTraits returns the number of traits.
func (s *TraitSelector) NTraits() int { return len(s.Prob) }

// Clone returns a deep copy.
func (s *TraitSelector) Clone() *TraitSelector {
	return &TraitSelector{Prob: slices.Clone(s.Prob)}
}

// Mean returns the responsibility vector (alias of Prob, copied).
func (s *TraitSelector) Mean() []float64 { return slices.Clone(s.Prob) }

// Update replaces Prob with softmax(logResp + prior.MeanLog()).
func (s *TraitSelector) Update(logResp []float64, prior *TraitProb) error {
	if len(logResp) != len(s.Prob) || prior.NTraits() != len(s.Prob) {
		return fmt.Errorf("trait selector update: %d log-responsibilities, %d prior traits, want %d: %w",
			len(logResp), prior.NTraits(), len(s.Prob), ErrDimension)
	}
	w := prior.MeanLog()
	floats.Add(w, logResp)
	wMax := floats.Max(w)
	for i := range w {
		w[i] = math.Exp(w[i] - wMax)
	}
	floats.Scale(1/floats.Sum(w), w)
	s.Prob = w
	return nil
}

// RelativeEntropy returns sum(prob * (log(prob) - prior.MeanLog())).
func (s *TraitSelector) RelativeEntropy(prior *TraitProb) float64 {
	ml := prior.MeanLog()
	var kl float64
	for i, p := range s.Prob {
		kl += p * (math.Log(p+selectorEps) - ml[i])
	}
	return kl
}

// Map reports, per trait, whether the responsibility exceeds SelectThreshold.
func (s *TraitSelector) Map() []bool {
	out := make([]bool, len(s.Prob))
	for i, p := range s.Prob {
		out[i] = p > SelectThreshold
	}
	return out
}

// Prune keeps only the traits flagged in keep and renormalizes.
// When no probability mass remains the result is uniform.
func (s *TraitSelector) Prune(keep []bool) {
	p := pruneVec(s.Prob, keepIndex(keep, len(s.Prob)))
	if sum := floats.Sum(p); sum > 0 {
		floats.Scale(1/sum, p)
	} else {
		for i := range p {
			p[i] = 1 / float64(len(p))
		}
	}
	s.Prob = p
}
