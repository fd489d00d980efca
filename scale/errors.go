// SPDX-License-Identifier: MIT

package scale

import "errors"

var (
	// ErrLevels indicates an item with fewer than two response levels.
	ErrLevels = errors.New("scale: item needs at least two response levels")

	// ErrSamples indicates a non-positive number of threshold samples.
	ErrSamples = errors.New("scale: number of samples must be positive")
)
