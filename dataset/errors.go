// SPDX-License-Identifier: MIT
// Package dataset: sentinel error set.

package dataset

import "errors"

var (
	// ErrNoItems indicates a questionnaire without items.
	ErrNoItems = errors.New("dataset: questionnaire has no items")

	// ErrLevels indicates an item with fewer than two response levels.
	ErrLevels = errors.New("dataset: item needs at least two response levels")

	// ErrDuplicateItem indicates two items sharing one name.
	ErrDuplicateItem = errors.New("dataset: duplicate item name")

	// ErrMissingColumn indicates a CSV header without a column for an item.
	ErrMissingColumn = errors.New("dataset: item column missing")

	// ErrBadResponse indicates a response that is not an integer in
	// [0, levels].
	ErrBadResponse = errors.New("dataset: invalid response")

	// ErrDuplicateGroup indicates two groups sharing one name.
	ErrDuplicateGroup = errors.New("dataset: duplicate group name")
)
