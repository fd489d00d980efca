// SPDX-License-Identifier: MIT

package hmc

import "errors"

var (
	// ErrAcceptance is returned by Sample when the acceptance rate stayed too
	// low even after step-size reduction. The samples are still usable;
	// callers usually log it and continue.
	ErrAcceptance = errors.New("hmc: acceptance rate too low")

	// ErrShape indicates inconsistent sample or bound dimensions.
	ErrShape = errors.New("hmc: inconsistent dimensions")
)
