// SPDX-License-Identifier: MIT

package irt

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/irtcalc/dist"
	"github.com/katalvlaran/irtcalc/group"
	"github.com/katalvlaran/irtcalc/scale"
	"go.uber.org/zap"
)

// ItemTraitMap returns a[i][t], true when item i selects trait t with
// probability above one half.
func (m *Model) ItemTraitMap() [][]bool {
	out := make([][]bool, len(m.p.scales))
	for i, s := range m.p.scales {
		out[i] = s.Selector.Map()
	}
	return out
}

// Prune removes every trait not selected by any item from all model
// components. It returns ErrNoTraitsSelected, leaving the model unchanged,
// when no item selects any trait.
func (m *Model) Prune() error {
	keep := make([]bool, m.NTraits())
	var nKeep int
	for _, row := range m.ItemTraitMap() {
		for t, sel := range row {
			if sel && !keep[t] {
				keep[t] = true
				nKeep++
			}
		}
	}
	if nKeep == 0 {
		return ErrNoTraitsSelected
	}
	if nKeep == len(keep) {
		return nil
	}
	p := m.p.clone()
	p.traitPrior.Prune(keep)
	p.within.Prune(keep)
	p.among.Prune(keep)
	for _, s := range p.scales {
		s.Prune(keep)
	}
	for _, g := range p.groups {
		g.Prune(keep)
	}
	m.p = p
	m.opt.metrics.setTraits(nKeep)
	m.log.Info("traits pruned", zap.Int("traits", nKeep), zap.Bools("kept", keep))
	return nil
}

// Standardize rescales all traits to unit predictive individual variance.
// The precisions are first brought up to date with the current groups;
// then the groups are rescaled, the precisions re-adapted to the rescaled
// group statistics, and finally the thresholds of every scale rescaled.
func (m *Model) Standardize(ctx context.Context) error {
	p := m.p.clone()
	if _, err := m.adaptPrecision(ctx, &p); err != nil {
		return fmt.Errorf("standardize: %w", err)
	}
	v := dist.NewPopulationPredictive(p.within, p.among).Var()
	s := make([]float64, len(v))
	for t, vt := range v {
		if !(vt > 0) || math.IsInf(vt, 0) {
			return fmt.Errorf("standardize: trait %d variance %g: %w", t, vt, ErrUndefinedVariance)
		}
		s[t] = math.Sqrt(vt)
	}
	for _, g := range p.groups {
		g.Standardize(s)
	}
	// Both precisions are rebuilt from their priors and the rescaled groups.
	if _, err := m.adaptPrecision(ctx, &p); err != nil {
		return fmt.Errorf("standardize: %w", err)
	}
	for _, sc := range p.scales {
		sc.Standardize(s)
	}
	m.p = p
	m.log.Info("traits standardized", zap.Float64s("scale", s))
	return nil
}

// clone returns a deep copy of every component.
func (p params) clone() params {
	q := params{
		groups:     make([]*group.RespondentGroup, len(p.groups)),
		scales:     make([]*scale.ItemScale, len(p.scales)),
		traitPrior: p.traitPrior.Clone(),
		within:     p.within.Clone(),
		among:      p.among.Clone(),
	}
	for i, g := range p.groups {
		q.groups[i] = g.Clone()
	}
	for i, s := range p.scales {
		q.scales[i] = s.Clone()
	}
	return q
}
