// SPDX-License-Identifier: MIT

// Package irtcalc estimates Bayesian item response models for ordinal
// questionnaire data.
//
// Respondents in one or more groups answer items on ordinal rating scales.
// irtcalc fits a Graded Response Model with any number of latent traits by
// variational inference: it learns which trait drives each item, the
// response thresholds of every item, the traits of every subject, and the
// hierarchical distribution of traits within and among groups.
//
// Packages:
//
//	irt/        Model: initialize, learn, prune, standardize, predictive and descriptive outputs
//	scale/      ItemScale: thresholds and trait selector of one item
//	group/      RespondentGroup: subject trait samples and the group mean
//	dist/       conjugate distributions (Dirichlet, Wishart, gamma, Gaussian) and KL terms
//	grm/        Graded Response Model primitives and threshold parametrisation
//	hmc/        Hamiltonian sampler and nearest-neighbour entropy estimate
//	dispatch/   ordered parallel adaptation of independent units
//	randx/      deterministic, derivable random streams
//	dataset/    questionnaires, response CSV files, synthetic data
//	checkpoint/ Badger-backed model snapshots for resuming runs
//	config/     YAML run files
//	cmd/irtcalc command line: simulate, fit, inspect
//
// Quick start:
//
//	irtcalc simulate --out demo --traits 2 --items 8
//	irtcalc fit demo/run.yaml
package irtcalc
