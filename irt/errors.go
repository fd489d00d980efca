// SPDX-License-Identifier: MIT
// Package irt: sentinel error set.
// Precondition failures are reported before any model state is built;
// callers match them with errors.Is.

package irt

import "errors"

var (
	// ErrNoGroups indicates a data source without any respondent group.
	ErrNoGroups = errors.New("irt: no respondent groups")

	// ErrDuplicateGroup indicates two groups sharing one name.
	ErrDuplicateGroup = errors.New("irt: duplicate group name")

	// ErrTraitCount indicates a trait count outside [1, number of items], or
	// model components that disagree on the number of traits.
	ErrTraitCount = errors.New("irt: invalid number of traits")

	// ErrSampleCount indicates inconsistent numbers of samples in a snapshot.
	ErrSampleCount = errors.New("irt: invalid number of samples")

	// ErrResponseShape indicates a response vector whose length differs from
	// the number of items.
	ErrResponseShape = errors.New("irt: response vector length mismatch")

	// ErrResponseLevel indicates a response outside [-1, levels of the item).
	ErrResponseLevel = errors.New("irt: response level out of range")

	// ErrNoTraitsSelected indicates that pruning would remove every trait.
	ErrNoTraitsSelected = errors.New("irt: no trait is selected by any item")

	// ErrUndefinedVariance indicates a predictive variance that is NaN or not
	// positive, so the traits cannot be standardized.
	ErrUndefinedVariance = errors.New("irt: predictive variance undefined")

	// ErrDegenerateCovariance indicates that the initial trait covariance has
	// a non-positive eigenvalue among those selected for the rotation.
	ErrDegenerateCovariance = errors.New("irt: degenerate trait covariance")
)
