// SPDX-License-Identifier: MIT

// Package hmc implements a bounded Hamiltonian Monte-Carlo sampler that
// maintains a set of equally probable sample vectors, plus a
// nearest-neighbour estimator of the differential entropy of such a set.
//
// The energy U(x) = -log p(x) is assumed separable into independent blocks
// of BlockSize consecutive coordinates (for example one block per subject).
// Every leapfrog trajectory moves all blocks jointly, but each block is
// accepted or rejected on its own Metropolis test, so a poor proposal for
// one subject never discards the moves of the others.
//
// Coordinates may be restricted to [Lower, Upper]; a trajectory that crosses
// a bound is reflected back, which keeps the proposal reversible.
//
// A Sampler is not safe for concurrent use; each goroutine owns its own.
package hmc
