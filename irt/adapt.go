// SPDX-License-Identifier: MIT

package irt

import (
	"context"
	"fmt"
	"time"

	"github.com/katalvlaran/irtcalc/dispatch"
	"github.com/katalvlaran/irtcalc/dist"
	"github.com/katalvlaran/irtcalc/group"
	"github.com/katalvlaran/irtcalc/scale"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Phase names used in logs, spans and metrics.
const (
	phasePrecision = "precision"
	phaseScales    = "scales"
	phaseGroups    = "groups"
)

// Adapt runs one variational iteration and returns its evidence lower
// bound. The phases run in a fixed order, each reading the output of the
// previous one:
//
//	precision: within- and among-group precision from group statistics
//	scales:    every item scale, then the trait prior from the new selectors
//	groups:    every respondent group given the new scales and precisions
//
// On error the model keeps the state of its last completed iteration.
func (m *Model) Adapt(ctx context.Context) (float64, error) {
	ctx, span := m.opt.tracer.Start(ctx, "irt.Model.Adapt",
		trace.WithAttributes(attribute.Int("irt.iteration", len(m.history)+1)))
	defer span.End()

	next := m.p
	var ll float64
	for _, ph := range []struct {
		name string
		run  func(context.Context, *params) (float64, error)
	}{
		{phasePrecision, m.adaptPrecision},
		{phaseScales, m.adaptScales},
		{phaseGroups, m.adaptGroups},
	} {
		v, err := m.runPhase(ctx, ph.name, &next, ph.run)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, fmt.Errorf("adapt %s: %w", ph.name, err)
		}
		ll += v
	}

	m.p = next
	m.history = append(m.history, ll)
	m.opt.metrics.observeIteration(ll, m.NTraits())
	span.SetAttributes(attribute.Float64("irt.elbo", ll))
	span.SetStatus(codes.Ok, "")
	m.log.Info("iteration done", zap.Int("iteration", len(m.history)), zap.Float64("elbo", ll))
	return ll, nil
}

func (m *Model) runPhase(ctx context.Context, name string, p *params,
	run func(context.Context, *params) (float64, error)) (float64, error) {
	ctx, span := m.opt.tracer.Start(ctx, "irt.phase."+name)
	defer span.End()
	start := time.Now()
	ll, err := run(ctx, p)
	m.opt.metrics.observePhase(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Float64("irt.evidence", ll))
	return ll, nil
}

// adaptPrecision updates both precision distributions from the current
// group statistics.
func (m *Model) adaptPrecision(ctx context.Context, p *params) (float64, error) {
	within, llW, err := p.within.Adapt(ctx, meanCovTheta(p.groups))
	if err != nil {
		return 0, fmt.Errorf("within: %w", err)
	}
	mean2 := make([][]float64, len(p.groups))
	for i, g := range p.groups {
		mean2[i] = g.Mean2()
	}
	among, llA, err := p.among.Adapt(ctx, mean2)
	if err != nil {
		return 0, fmt.Errorf("among: %w", err)
	}
	p.within, p.among = within, among
	m.log.Debug("precision adapted",
		zap.Float64s("within_var", dist.Diag(within.MeanInv())),
		zap.Float64s("among_var", among.MeanInv()))
	return llW + llA, nil
}

// adaptScales updates every item scale against the current trait prior,
// then the trait prior from the updated selectors. Scale KL terms are
// evaluated against the updated prior.
func (m *Model) adaptScales(ctx context.Context, p *params) (float64, error) {
	env := scale.Env{
		Groups:     responseGroups(p.groups),
		TraitPrior: p.traitPrior,
		Logger:     m.log,
	}
	scales, _, err := dispatch.Run(ctx, m.opt.conc, p.scales, env)
	if err != nil {
		return 0, err
	}
	sum := make([]float64, p.traitPrior.NTraits())
	for _, s := range scales {
		floats.Add(sum, s.Selector.Prob)
	}
	prior, ll, err := p.traitPrior.Adapt(ctx, sum)
	if err != nil {
		return 0, fmt.Errorf("trait prior: %w", err)
	}
	for _, s := range scales {
		ll -= s.RelativeEntropyRePrior(prior)
	}
	p.scales, p.traitPrior = scales, prior
	m.log.Debug("scales adapted", zap.Float64s("trait_prior_mean", prior.Mean()))
	return ll, nil
}

// adaptGroups updates every respondent group given the current scales and
// precision distributions.
func (m *Model) adaptGroups(ctx context.Context, p *params) (float64, error) {
	env := group.Env{
		Scales: groupScales(p.scales),
		Within: p.within,
		Among:  p.among,
		Logger: m.log,
	}
	groups, lls, err := dispatch.Run(ctx, m.opt.conc, p.groups, env)
	if err != nil {
		return 0, err
	}
	p.groups = groups
	if ce := m.log.Check(zap.DebugLevel, "groups adapted"); ce != nil {
		locs := make([][]float64, len(groups))
		for i, g := range groups {
			locs[i] = g.Mu.Loc
		}
		ce.Write(zap.Any("mu_loc", locs), zap.Float64s("ll", lls))
	}
	return floats.Sum(lls), nil
}

func responseGroups(groups []*group.RespondentGroup) []scale.ResponseGroup {
	out := make([]scale.ResponseGroup, len(groups))
	for i, g := range groups {
		out[i] = g
	}
	return out
}

func groupScales(scales []*scale.ItemScale) []group.Scale {
	out := make([]group.Scale, len(scales))
	for i, s := range scales {
		out[i] = s
	}
	return out
}
