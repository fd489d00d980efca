// SPDX-License-Identifier: MIT

package irt

import (
	"context"
	"fmt"
	"slices"

	"github.com/katalvlaran/irtcalc/dist"
	"github.com/katalvlaran/irtcalc/group"
	"github.com/katalvlaran/irtcalc/randx"
	"github.com/katalvlaran/irtcalc/scale"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Random stream identifiers derived from the root seed.
const (
	scaleStream uint64 = iota + 1
	groupStream
	predictiveStream
)

// params is the complete parameter set. A phase replaces fields of a copy
// and the model commits the copy only when every phase has succeeded.
type params struct {
	groups     []*group.RespondentGroup
	scales     []*scale.ItemScale
	traitPrior *dist.TraitProb
	within     *dist.PrecisionWithin
	among      *dist.PrecisionAmong
}

// Model is a Bayesian Graded Response Model with sampled latent traits,
// sampled item thresholds, item-to-trait selectors and hierarchical trait
// precision. It is not safe for concurrent use.
type Model struct {
	p       params
	history []float64
	opt     options
	log     *zap.Logger
}

// Initialize builds a model from src.
//
// Stage 1 (Validate): groups, response vectors and the trait count.
// Stage 2 (Seed): trait prior, item scales from response counts, and one
// initial trait per item for every subject.
// Stage 3 (Rotate): project the per-item traits onto the principal
// subspace of the pooled trait covariance.
// Stage 4 (Precision): adapt the within-group precision once; the
// among-group precision stays at its prior.
func Initialize(ctx context.Context, src Source, opts ...Option) (*Model, error) {
	o := gatherOptions(opts)
	counts := src.ItemResponseCount()
	cohorts := src.Cohorts()
	if err := validate(cohorts, counts); err != nil {
		return nil, err
	}
	nItems := len(counts)
	nTraits := o.nTraits
	if nTraits == 0 {
		nTraits = nItems
	}
	if nTraits > nItems {
		return nil, fmt.Errorf("initialize: %d traits for %d items: %w", nTraits, nItems, ErrTraitCount)
	}

	scaleSeed := randx.DeriveSeed(o.seed, scaleStream)
	scales := make([]*scale.ItemScale, nItems)
	samplers := make([]group.TraitSampler, nItems)
	for i, c := range counts {
		s, err := scale.New(i, c, o.traitScale, o.scaleSamples, nTraits, scaleSeed)
		if err != nil {
			return nil, fmt.Errorf("initialize: %w", err)
		}
		scales[i], samplers[i] = s, s
	}

	groupSeed := randx.DeriveSeed(o.seed, groupStream)
	groups := make([]*group.RespondentGroup, len(cohorts))
	covAll := mat.NewSymDense(nItems, nil)
	for gi, c := range cohorts {
		g, err := group.InitializeByItem(c.Name, c.Responses, samplers,
			o.subjectSamples, o.traitScale, randx.DeriveSeed(groupSeed, uint64(gi)))
		if err != nil {
			return nil, fmt.Errorf("initialize: %w", err)
		}
		covAll.AddSym(covAll, g.CovAll())
		groups[gi] = g
	}

	proj, err := traitRotation(covAll, nTraits)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	for _, g := range groups {
		if err = g.TransformTraits(proj); err != nil {
			return nil, fmt.Errorf("initialize: %w", err)
		}
	}

	m := &Model{
		p: params{
			groups:     groups,
			scales:     scales,
			traitPrior: dist.NewTraitProb(nTraits),
			within:     dist.NewPrecisionWithin(nTraits),
			among:      dist.NewPrecisionAmong(nTraits),
		},
		opt: o,
		log: o.log,
	}
	within, _, err := m.p.within.Adapt(ctx, meanCovTheta(groups))
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	m.p.within = within
	m.opt.metrics.setTraits(nTraits)
	m.log.Info("model initialized",
		zap.Int("items", nItems),
		zap.Int("groups", len(groups)),
		zap.Int("traits", nTraits),
		zap.Int("scale_samples", o.scaleSamples),
		zap.Int("subject_samples", o.subjectSamples))
	return m, nil
}

func validate(cohorts []Cohort, counts [][]int) error {
	if len(cohorts) == 0 {
		return ErrNoGroups
	}
	if len(counts) == 0 {
		return fmt.Errorf("initialize: no items: %w", ErrResponseShape)
	}
	seen := make(map[string]bool, len(cohorts))
	for _, c := range cohorts {
		if seen[c.Name] {
			return fmt.Errorf("initialize: group %q: %w", c.Name, ErrDuplicateGroup)
		}
		seen[c.Name] = true
		for s, r := range c.Responses {
			if len(r) != len(counts) {
				return fmt.Errorf("initialize: group %q subject %d: %d responses for %d items: %w",
					c.Name, s, len(r), len(counts), ErrResponseShape)
			}
			for i, ri := range r {
				if ri < -1 || ri >= len(counts[i]) {
					return fmt.Errorf("initialize: group %q subject %d item %d: level %d of %d: %w",
						c.Name, s, i, ri, len(counts[i]), ErrResponseLevel)
				}
			}
		}
	}
	return nil
}

// NItems returns the number of questionnaire items.
func (m *Model) NItems() int { return len(m.p.scales) }

// NTraits returns the current number of latent traits.
func (m *Model) NTraits() int { return m.p.traitPrior.NTraits() }

// Groups returns the respondent groups in source order. The groups are
// owned by the model and must not be modified.
func (m *Model) Groups() []*group.RespondentGroup { return slices.Clone(m.p.groups) }

// Scales returns the item scales in item order. The scales are owned by
// the model and must not be modified.
func (m *Model) Scales() []*scale.ItemScale { return slices.Clone(m.p.scales) }

// TraitPrior returns the shared prior of the item trait selectors.
func (m *Model) TraitPrior() *dist.TraitProb { return m.p.traitPrior.Clone() }

// Within returns the within-group precision distribution.
func (m *Model) Within() *dist.PrecisionWithin { return m.p.within.Clone() }

// Among returns the among-group precision distribution.
func (m *Model) Among() *dist.PrecisionAmong { return m.p.among.Clone() }

// LogProbHistory returns the evidence lower bound of every completed
// iteration, oldest first.
func (m *Model) LogProbHistory() []float64 { return slices.Clone(m.history) }

// GroupNames returns the group names in model order.
func (m *Model) GroupNames() []string {
	out := make([]string, len(m.p.groups))
	for i, g := range m.p.groups {
		out[i] = g.Name
	}
	return out
}

func meanCovTheta(groups []*group.RespondentGroup) []*mat.SymDense {
	var covs []*mat.SymDense
	for _, g := range groups {
		covs = append(covs, g.MeanCovTheta()...)
	}
	return covs
}
