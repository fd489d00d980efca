// SPDX-License-Identifier: MIT

// Package dist implements the conjugate distribution family of the
// variational IRT engine.
//
// Members:
//   - TraitProb: Dirichlet prior over trait-selection probabilities, shared by
//     every item scale.
//   - TraitSelector: categorical "one-of-D" responsibility of one item for
//     the latent traits.
//   - PrecisionWithin: Wishart distribution of the individual precision
//     matrix within any respondent group.
//   - PrecisionAmong: independent gamma distributions, one per trait, of the
//     precision of group means across groups.
//   - GroupMean: Gaussian distribution of one group's mean trait vector.
//   - GaussianGivenParam: two-level predictive sampler for a random
//     individual drawn from a random group.
//
// Every adaptable member exposes:
//   - Update(stats) (float64, error): in-place conjugate update, returning
//     the evidence contribution (minus the KL divergence from its prior),
//   - Adapt(ctx, stats) (T, float64, error): the same update applied to a
//     fresh copy, leaving the receiver untouched,
//   - RelativeEntropy(prior) float64: closed-form KL divergence,
//   - Prune(keep) and Standardize(s): dimension reduction and rescaling that
//     keep all members consistent when the trait coordinate system changes.
//
// Derived quantities that are mathematically undefined for the current
// parameters (for instance MeanInv with too few degrees of freedom) are
// returned NaN-filled rather than as errors.
//
// Concurrency: values are not safe for concurrent mutation. Read-only use
// from several goroutines is safe; Adapt never mutates its receiver.
package dist
