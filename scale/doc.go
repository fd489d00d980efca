// SPDX-License-Identifier: MIT

// Package scale implements ItemScale: the response thresholds of one
// questionnaire item, represented by equally probable samples of the
// threshold parameter η (see package grm), together with the item's
// TraitSelector.
//
// One adaptation step:
//  1. the trait selector is updated from the per-trait log-likelihood of all
//     observed responses, using the thresholds from the previous step;
//  2. the mean η is moved to its MAP estimate (L-BFGS), all samples shifted
//     along with it;
//  3. with more than one sample, η samples are refreshed by bounded
//     Hamiltonian sampling, then re-centered.
//
// The KL contribution of a scale is evaluated separately, through
// RelativeEntropyRePrior, once the shared trait prior has been updated.
package scale
