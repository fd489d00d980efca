// SPDX-License-Identifier: MIT
// Package checkpoint: sentinel error set.

package checkpoint

import "errors"

var (
	// ErrNotFound indicates a run without any stored snapshot.
	ErrNotFound = errors.New("checkpoint: no snapshot found")

	// ErrNoPath indicates a persistent store configured without a directory.
	ErrNoPath = errors.New("checkpoint: path is required for a persistent store")

	// ErrBadRunID indicates a run id that is empty or contains '/'.
	ErrBadRunID = errors.New("checkpoint: invalid run id")
)
