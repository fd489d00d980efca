// SPDX-License-Identifier: MIT

package dist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"
)

// lgamma returns log|Γ(x)|.
func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// multiDigamma is the multivariate digamma function
// ψ_p(a) = Σ_{i=0}^{p-1} ψ(a - i/2).
func multiDigamma(a float64, p int) float64 {
	var s float64
	for i := 0; i < p; i++ {
		s += mathext.Digamma(a - float64(i)/2)
	}
	return s
}

// keepIndex converts a boolean mask into the list of kept indices.
// Panics when the mask length differs from n (programmer error).
func keepIndex(keep []bool, n int) []int {
	if len(keep) != n {
		panic(fmt.Sprintf("dist: keep mask has %d entries, want %d", len(keep), n))
	}
	idx := make([]int, 0, n)
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	return idx
}

// pruneVec returns v restricted to idx.
func pruneVec(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for j, i := range idx {
		out[j] = v[i]
	}
	return out
}

// pruneSym returns the principal submatrix of a selected by idx.
func pruneSym(a *mat.SymDense, idx []int) *mat.SymDense {
	out := mat.NewSymDense(len(idx), nil)
	for r, i := range idx {
		for c := r; c < len(idx); c++ {
			out.SetSym(r, c, a.At(i, idx[c]))
		}
	}
	return out
}

// scaleSym multiplies a[i][j] by s[i]*s[j] in place.
func scaleSym(a *mat.SymDense, s []float64) {
	n := a.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a.SetSym(i, j, a.At(i, j)*s[i]*s[j])
		}
	}
}

// identity returns the n×n identity matrix scaled by v.
func identity(n int, v float64) *mat.SymDense {
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, v)
	}
	return out
}

// nanSym returns an n×n symmetric matrix filled with NaN.
func nanSym(n int) *mat.SymDense {
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, math.NaN())
		}
	}
	return out
}

// nanVec returns a vector of n NaN values.
func nanVec(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// cholesky factorizes a, wrapping failure with ErrNotPositiveDefinite.
func cholesky(a mat.Symmetric) (*mat.Cholesky, error) {
	var ch mat.Cholesky
	if ok := ch.Factorize(a); !ok {
		return nil, ErrNotPositiveDefinite
	}
	return &ch, nil
}

// invSym returns the inverse of the SPD matrix a.
func invSym(a mat.Symmetric) (*mat.SymDense, error) {
	ch, err := cholesky(a)
	if err != nil {
		return nil, err
	}
	var inv mat.SymDense
	if err = ch.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}
	return &inv, nil
}

// Diag returns the diagonal of a square symmetric matrix.
func Diag(a mat.Symmetric) []float64 {
	n := a.SymmetricDim()
	out := make([]float64, n)
	for i := range out {
		out[i] = a.At(i, i)
	}
	return out
}
