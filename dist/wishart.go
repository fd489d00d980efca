// SPDX-License-Identifier: MIT

package dist

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"
)

// WishartDFMargin is added to nTraits-1 to obtain the degrees of freedom of
// the barely proper prior of PrecisionWithin.
const WishartDFMargin = 0.001

// PrecisionWithin is the Wishart distribution of the precision matrix Λ of
// individual trait vectors around their group mean:
//
//	p(Λ) ∝ |Λ|^((DF-n-1)/2) exp(-tr(Scale⁻¹ Λ)/2).
//
// Scale stays symmetric positive definite.
type PrecisionWithin struct {
	Scale *mat.SymDense
	DF    float64
}

// NewPrecisionWithin returns the prior with nTraits traits.
// DF = nTraits-1+WishartDFMargin and Scale = I/DF, so the prior mean
// precision is the identity.
func NewPrecisionWithin(nTraits int) *PrecisionWithin {
	df := float64(nTraits-1) + WishartDFMargin
	return &PrecisionWithin{Scale: identity(nTraits, 1/df), DF: df}
}

// NTraits returns the matrix dimension.
func (w *PrecisionWithin) NTraits() int { return w.Scale.SymmetricDim() }

// Clone returns a deep copy.
func (w *PrecisionWithin) Clone() *PrecisionWithin {
	s := mat.NewSymDense(w.NTraits(), nil)
	s.CopySym(w.Scale)
	return &PrecisionWithin{Scale: s, DF: w.DF}
}

// Mean returns E[Λ] = DF·Scale.
func (w *PrecisionWithin) Mean() *mat.SymDense {
	out := mat.NewSymDense(w.NTraits(), nil)
	out.ScaleSym(w.DF, w.Scale)
	return out
}

// MeanLogDet returns E[log|Λ|] = ψ_n(DF/2) + n·log 2 + log|Scale|.
func (w *PrecisionWithin) MeanLogDet() float64 {
	n := w.NTraits()
	ch, err := cholesky(w.Scale)
	if err != nil {
		return math.NaN()
	}
	return multiDigamma(w.DF/2, n) + float64(n)*math.Ln2 + ch.LogDet()
}

// MeanInv returns E[Λ⁻¹] = Scale⁻¹/(DF-n-1), NaN-filled when DF <= n+1.
func (w *PrecisionWithin) MeanInv() *mat.SymDense {
	n := w.NTraits()
	if w.DF <= float64(n+1) {
		return nanSym(n)
	}
	return w.scaledInverse(1 / (w.DF - float64(n+1)))
}

// ModeInv returns Scale⁻¹/(DF+n+1), the inverse of the mode of Λ⁻¹'s
// inverse-Wishart distribution.
func (w *PrecisionWithin) ModeInv() *mat.SymDense {
	return w.scaledInverse(1 / (w.DF + float64(w.NTraits()+1)))
}

func (w *PrecisionWithin) scaledInverse(f float64) *mat.SymDense {
	inv, err := invSym(w.Scale)
	if err != nil {
		return nanSym(w.NTraits())
	}
	inv.ScaleSym(f, inv)
	return inv
}

// Update adds per-subject covariance estimates E[(θ-μ)(θ-μ)ᵀ] from all
// groups: Scale⁻¹ = prior Scale⁻¹ + Σ covs, DF = prior DF + len(covs).
// It returns minus the KL divergence from a freshly built prior.
func (w *PrecisionWithin) Update(covs []*mat.SymDense) (float64, error) {
	n := w.NTraits()
	if len(covs) == 0 {
		return 0, ErrEmptyStats
	}
	prior := NewPrecisionWithin(n)
	invScale, err := invSym(prior.Scale)
	if err != nil {
		return 0, err
	}
	for i, c := range covs {
		if c.SymmetricDim() != n {
			return 0, fmt.Errorf("precision within: covariance %d has dim %d, want %d: %w",
				i, c.SymmetricDim(), n, ErrDimension)
		}
		invScale.AddSym(invScale, c)
	}
	scale, err := invSym(invScale)
	if err != nil {
		return 0, fmt.Errorf("precision within update: %w", err)
	}
	w.Scale = scale
	w.DF = prior.DF + float64(len(covs))
	return -w.RelativeEntropy(prior), nil
}

// Adapt returns an updated copy of w and its evidence contribution.
func (w *PrecisionWithin) Adapt(ctx context.Context, covs []*mat.SymDense) (*PrecisionWithin, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	q := w.Clone()
	ll, err := q.Update(covs)
	if err != nil {
		return nil, 0, err
	}
	return q, ll, nil
}

// RelativeEntropy returns KL(w || prior) for two Wishart distributions:
//
//	-νp/2·log|Vp⁻¹Vq| + νq/2·(tr(Vp⁻¹Vq) - n)
//	+ lnΓ_n(νp/2) - lnΓ_n(νq/2) + (νq-νp)/2·ψ_n(νq/2)
//
// NaN is returned when either scale matrix is not positive definite.
func (w *PrecisionWithin) RelativeEntropy(prior *PrecisionWithin) float64 {
	n := w.NTraits()
	chQ, err := cholesky(w.Scale)
	if err != nil {
		return math.NaN()
	}
	chP, err := cholesky(prior.Scale)
	if err != nil {
		return math.NaN()
	}
	var invP mat.SymDense
	if err = chP.InverseTo(&invP); err != nil {
		return math.NaN()
	}
	// tr(Vp⁻¹ Vq) for symmetric operands is the sum of elementwise products.
	var tr float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			tr += invP.At(i, j) * w.Scale.At(j, i)
		}
	}
	logDetRatio := chQ.LogDet() - chP.LogDet()
	nq, np := w.DF, prior.DF
	return -np/2*logDetRatio +
		nq/2*(tr-float64(n)) +
		mathext.MvLgamma(np/2, n) - mathext.MvLgamma(nq/2, n) +
		(nq-np)/2*multiDigamma(nq/2, n)
}

// Prune keeps only the traits flagged in keep.
func (w *PrecisionWithin) Prune(keep []bool) {
	w.Scale = pruneSym(w.Scale, keepIndex(keep, w.NTraits()))
}

// Standardize rescales Scale[i][j] by s[i]*s[j], matching trait
// coordinates that were divided by s.
func (w *PrecisionWithin) Standardize(s []float64) {
	scaleSym(w.Scale, s)
}
