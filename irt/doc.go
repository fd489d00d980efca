// SPDX-License-Identifier: MIT

// Package irt estimates a Bayesian Graded Response Model by variational
// inference.
//
// A Model holds, for a questionnaire answered by several groups of
// subjects:
//   - one scale.ItemScale per item: sampled response thresholds and a
//     selector over the latent trait that drives the item,
//   - one group.RespondentGroup per group: sampled subject traits and the
//     group mean,
//   - a Dirichlet prior shared by all trait selectors,
//   - a Wishart within-group precision and a gamma among-group precision.
//
// Initialize seeds all components from the data; Adapt runs one
// coordinate-ascent iteration and returns its evidence lower bound; Learn
// iterates until the bound stops improving. Item and group updates within
// an iteration run in parallel through package dispatch, each on its own
// deterministic random stream, so results depend only on the seed.
//
// After learning, Prune drops traits no item uses and Standardize rescales
// the traits to unit predictive variance. The remaining methods report
// predictive trait distributions and descriptive statistics.
//
// Example:
//
//	m, err := irt.Initialize(ctx, data, irt.WithTraits(2), irt.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	lp, reason, err := m.Learn(ctx, irt.DefaultLearnConfig(), nil)
//	if err != nil {
//		return err
//	}
//	if err = m.Prune(); err != nil {
//		return err
//	}
//	err = m.Standardize(ctx)
package irt
