// SPDX-License-Identifier: MIT

package irt

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// traitRotation returns an n×nTraits projection onto the eigenvectors of
// the symmetric covariance c with the largest eigenvalues, in decreasing
// eigenvalue order. Each eigenvector is signed so that its largest
// magnitude component is positive, and scaled by sqrt(mean(diag c)/λ) so
// that every projected trait keeps the mean item variance.
func traitRotation(c mat.Symmetric, nTraits int) (*mat.Dense, error) {
	n := c.SymmetricDim()
	if nTraits < 1 || nTraits > n {
		return nil, fmt.Errorf("trait rotation: %d traits for dim %d: %w", nTraits, n, ErrTraitCount)
	}
	var eig mat.EigenSym
	if !eig.Factorize(c, true) {
		return nil, fmt.Errorf("trait rotation: eigen decomposition failed: %w", ErrDegenerateCovariance)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case vals[a] > vals[b]:
			return -1
		case vals[a] < vals[b]:
			return 1
		}
		return 0
	})

	diag := make([]float64, n)
	for i := range diag {
		diag[i] = c.At(i, i)
	}
	meanVar := stat.Mean(diag, nil)

	proj := mat.NewDense(n, nTraits, nil)
	col := make([]float64, n)
	for k := 0; k < nTraits; k++ {
		j := order[k]
		lambda := vals[j]
		if !(lambda > 0) {
			return nil, fmt.Errorf("trait rotation: eigenvalue %d is %g: %w", k, lambda, ErrDegenerateCovariance)
		}
		mat.Col(col, j, &vecs)
		f := math.Sqrt(meanVar / lambda)
		if col[argMaxAbs(col)] < 0 {
			f = -f
		}
		for i, v := range col {
			proj.Set(i, k, f*v)
		}
	}
	return proj, nil
}

// argMaxAbs returns the first index of the largest |x[i]|.
func argMaxAbs(x []float64) int {
	best := 0
	for i, v := range x {
		if math.Abs(v) > math.Abs(x[best]) {
			best = i
		}
	}
	return best
}
