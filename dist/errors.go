// SPDX-License-Identifier: MIT
// Package dist: sentinel error set.
// All exported operations return these sentinels (optionally wrapped with
// fmt.Errorf("ctx: %w", ErrX)); callers match them with errors.Is.

package dist

import "errors"

var (
	// ErrDimension indicates that a statistics vector or matrix does not match
	// the number of traits of the receiving distribution.
	ErrDimension = errors.New("dist: dimension mismatch")

	// ErrNotPositiveDefinite indicates that a matrix required to be symmetric
	// positive definite could not be Cholesky-factorized.
	ErrNotPositiveDefinite = errors.New("dist: matrix is not positive definite")

	// ErrEmptyStats indicates that an update received no observations at all.
	ErrEmptyStats = errors.New("dist: no sufficient statistics supplied")
)
