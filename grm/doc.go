// SPDX-License-Identifier: MIT

// Package grm provides the numeric primitives of the Graded Response Model.
//
// An ordinal response r in {0, …, L-1} to one item arises from a latent
// variable y = θ + ε, with ε standard-logistic, falling into the interval
// (τ_{r-1}, τ_r] of L-1 increasing thresholds τ (τ_{-1} = -∞, τ_{L-1} = +∞).
//
// Thresholds are parametrised by η, the log widths of the L response
// intervals after mapping the latent axis to (0, 1) by the logistic CDF:
//
//	cc_l = Σ_{j≤l} exp(η_j),   τ_l = log cc_l - log(cc_{L-1} - cc_l).
//
// Adding a constant to every η leaves τ unchanged, so η samples are kept
// centered to zero mean.
//
// All functions are pure and safe for concurrent use.
package grm
