// SPDX-License-Identifier: MIT

package dist

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// GroupMean is the Gaussian distribution of one group's mean trait vector μ,
// with location Loc and precision matrix Prec.
type GroupMean struct {
	Loc  []float64
	Prec *mat.SymDense
}

// NewGroupMean returns a GroupMean at loc with identity precision.
func NewGroupMean(loc []float64) *GroupMean {
	return &GroupMean{Loc: slices.Clone(loc), Prec: identity(len(loc), 1)}
}

// NTraits returns the number of traits.
func (m *GroupMean) NTraits() int { return len(m.Loc) }

// Clone returns a deep copy.
func (m *GroupMean) Clone() *GroupMean {
	p := mat.NewSymDense(m.NTraits(), nil)
	p.CopySym(m.Prec)
	return &GroupMean{Loc: slices.Clone(m.Loc), Prec: p}
}

// Cov returns Prec⁻¹, NaN-filled when Prec is not positive definite.
func (m *GroupMean) Cov() *mat.SymDense {
	c, err := invSym(m.Prec)
	if err != nil {
		return nanSym(m.NTraits())
	}
	return c
}

// Mean2 returns E[μ_t²] = Loc_t² + Cov_tt.
func (m *GroupMean) Mean2() []float64 {
	out := Diag(m.Cov())
	for i, l := range m.Loc {
		out[i] += l * l
	}
	return out
}

// Update sets
//
//	Prec = S·E[Λ] + diag(E[ψ])
//	Loc  = Prec⁻¹ E[Λ] Σ_s θ̄_s
//
// where meanTheta[s] is the mean trait vector θ̄_s of subject s, withinMean
// is E[Λ] and among provides E[ψ]. It returns minus the expected KL
// divergence from the zero-mean prior with precision ψ.
func (m *GroupMean) Update(meanTheta [][]float64, withinMean mat.Symmetric, among *PrecisionAmong) (float64, error) {
	n := m.NTraits()
	if withinMean.SymmetricDim() != n || among.NTraits() != n {
		return 0, fmt.Errorf("group mean update: precision dims %d/%d, want %d: %w",
			withinMean.SymmetricDim(), among.NTraits(), n, ErrDimension)
	}
	sum := make([]float64, n)
	for s, th := range meanTheta {
		if len(th) != n {
			return 0, fmt.Errorf("group mean update: subject %d has %d traits: %w", s, len(th), ErrDimension)
		}
		for t, v := range th {
			sum[t] += v
		}
	}
	prec := mat.NewSymDense(n, nil)
	prec.ScaleSym(float64(len(meanTheta)), withinMean)
	for t, psi := range among.Mean() {
		prec.SetSym(t, t, prec.At(t, t)+psi)
	}
	ch, err := cholesky(prec)
	if err != nil {
		return 0, fmt.Errorf("group mean update: %w", err)
	}
	var rhs, loc mat.VecDense
	rhs.MulVec(withinMean, mat.NewVecDense(n, sum))
	if err = ch.SolveVecTo(&loc, &rhs); err != nil {
		return 0, fmt.Errorf("group mean update: %w: %v", ErrNotPositiveDefinite, err)
	}
	m.Prec = prec
	m.Loc = slices.Clone(loc.RawVector().Data)
	return -m.RelativeEntropy(among), nil
}

// RelativeEntropy returns E[KL(m || N(0, diag(ψ)⁻¹))] over ψ ~ prior:
//
//	( log|Prec| + Σ_t (E[μ_t²]E[ψ_t] - E[log ψ_t] - 1) ) / 2.
func (m *GroupMean) RelativeEntropy(prior *PrecisionAmong) float64 {
	ch, err := cholesky(m.Prec)
	if err != nil {
		return math.NaN()
	}
	kl := ch.LogDet()
	mean, meanLog := prior.Mean(), prior.MeanLog()
	for t, m2 := range m.Mean2() {
		kl += m2*mean[t] - meanLog[t] - 1
	}
	return kl / 2
}

// Prune keeps only the traits flagged in keep.
func (m *GroupMean) Prune(keep []bool) {
	idx := keepIndex(keep, m.NTraits())
	m.Loc = pruneVec(m.Loc, idx)
	m.Prec = pruneSym(m.Prec, idx)
}

// Standardize divides Loc by s and rescales Prec by s sᵀ.
func (m *GroupMean) Standardize(s []float64) {
	for i := range m.Loc {
		m.Loc[i] /= s[i]
	}
	scaleSym(m.Prec, s)
}
