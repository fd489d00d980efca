// SPDX-License-Identifier: MIT

// Package randx centralizes deterministic random generation for the estimation engine.
//
// Goals:
//   - Determinism: same seed ⇒ identical samples regardless of worker scheduling.
//   - Encapsulation: one stream factory; no time-based sources hidden anywhere.
//   - Independence: every item scale and respondent group owns its own stream,
//     derived from the model seed and a stream identifier.
//
// Concurrency:
//   - *rand.Rand is NOT goroutine-safe. Never share a stream across goroutines;
//     derive one per unit of work with Stream.
package randx

import "math/rand/v2"

// DefaultSeed is the fixed “zero” seed used when callers pass seed==0.
const DefaultSeed uint64 = 1

// golden is the SplitMix64 increment (2^64 / φ).
const golden uint64 = 0x9e3779b97f4a7c15

// New returns a deterministic *rand.Rand.
// Policy: seed==0 ⇒ DefaultSeed; otherwise the provided seed verbatim.
//
// Complexity: O(1).
func New(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = DefaultSeed
	}
	return rand.New(rand.NewPCG(seed, DeriveSeed(seed, 0)))
}

// DeriveSeed mixes a parent seed and a stream identifier into a new 64-bit seed.
// A SplitMix64-style finalizer removes correlations between neighbouring streams.
//
// Complexity: O(1).
func DeriveSeed(parent, stream uint64) uint64 {
	x := parent ^ (stream + golden)
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Stream returns the RNG for the given (seed, stream) pair.
// Calling it twice with the same pair yields identical sequences, which lets
// a unit of work restart its random draws from plain numeric state.
//
// Complexity: O(1).
func Stream(seed, stream uint64) *rand.Rand {
	return New(DeriveSeed(seed, stream))
}

// Source returns a rand.Source for the (seed, stream) pair, for APIs that take
// a source rather than a *rand.Rand.
func Source(seed, stream uint64) rand.Source {
	s := DeriveSeed(seed, stream)
	if s == 0 {
		s = DefaultSeed
	}
	return rand.NewPCG(s, DeriveSeed(s, 0))
}
