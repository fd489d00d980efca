// SPDX-License-Identifier: MIT

package group

import "errors"

var (
	// ErrNoSubjects indicates a group without any subject.
	ErrNoSubjects = errors.New("group: no subjects")

	// ErrShape indicates inconsistent response or trait dimensions.
	ErrShape = errors.New("group: inconsistent dimensions")
)
