// SPDX-License-Identifier: MIT

// Package group implements RespondentGroup: the sampled latent trait
// vectors of every subject in one named cohort, and the Gaussian
// distribution of the cohort's mean trait vector.
//
// Trait samples are refreshed by bounded Hamiltonian sampling, with every
// subject an independent block, given the current item scales and the
// expected within-group precision. The group mean is then updated in closed
// form. Adapt reports the group's contribution to the evidence lower bound:
// expected log-likelihood of responses and trait prior, minus the KL term of
// the group mean, plus the nearest-neighbour entropy of the trait samples.
package group
