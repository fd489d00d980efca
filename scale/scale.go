// SPDX-License-Identifier: MIT

package scale

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/katalvlaran/irtcalc/dist"
	"github.com/katalvlaran/irtcalc/grm"
	"github.com/katalvlaran/irtcalc/hmc"
	"github.com/katalvlaran/irtcalc/randx"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultEpsilon is the initial HMC step size for threshold samples.
const DefaultEpsilon = 0.2

// ResponseGroup is the view of a respondent group needed to adapt a scale.
type ResponseGroup interface {
	// ItemLogProbByTau returns lp[m][t], the log-likelihood of the group's
	// responses to item under threshold sample tau[m] if the item were
	// driven by trait t, summed across subjects and averaged across the
	// group's trait samples.
	ItemLogProbByTau(tau [][]float64, item int) [][]float64

	// DItemLogProbByTau returns d[m][l], the derivative with respect to
	// tau[m][l] of Σ_t w[t]·lp[m][t].
	DItemLogProbByTau(tau [][]float64, item int, w []float64) [][]float64
}

// Env holds the read-only inputs of one scale adaptation step.
type Env struct {
	Groups     []ResponseGroup
	TraitPrior *dist.TraitProb
	Logger     *zap.Logger
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// ItemScale is the threshold distribution and trait selector of one item.
type ItemScale struct {
	// Item is the zero-based questionnaire index of the item.
	Item int
	// Eta[m] is the m-th sample of the log interval widths, length L.
	Eta      [][]float64
	Selector *dist.TraitSelector

	// Epsilon is the HMC step size carried over between steps.
	Epsilon float64
	// Seed and Step identify the random stream of the next step.
	Seed uint64
	Step uint64
}

// New returns a scale seeded from the response counts of the item.
// counts[l] is the number of responses at level l; traitScale is the
// assumed initial standard deviation of the traits.
func New(item int, counts []int, traitScale float64, nSamples, nTraits int, seed uint64) (*ItemScale, error) {
	if len(counts) < 2 {
		return nil, fmt.Errorf("item %d: %d levels: %w", item, len(counts), ErrLevels)
	}
	if nSamples < 1 {
		return nil, fmt.Errorf("item %d: %d samples: %w", item, nSamples, ErrSamples)
	}
	eta0 := grm.InitialEta(counts, traitScale)
	eta := make([][]float64, nSamples)
	for m := range eta {
		eta[m] = append([]float64(nil), eta0...)
	}
	return &ItemScale{
		Item:     item,
		Eta:      eta,
		Selector: dist.NewTraitSelector(nTraits),
		Epsilon:  DefaultEpsilon,
		Seed:     randx.DeriveSeed(seed, uint64(item)),
	}, nil
}

// NSamples returns the number of threshold samples.
func (s *ItemScale) NSamples() int { return len(s.Eta) }

// NLevels returns the number of ordinal response levels.
func (s *ItemScale) NLevels() int { return len(s.Eta[0]) }

// NTraits returns the number of traits of the selector.
func (s *ItemScale) NTraits() int { return s.Selector.NTraits() }

// Clone returns a deep copy.
func (s *ItemScale) Clone() *ItemScale {
	eta := make([][]float64, len(s.Eta))
	for m := range s.Eta {
		eta[m] = append([]float64(nil), s.Eta[m]...)
	}
	q := *s
	q.Eta = eta
	q.Selector = s.Selector.Clone()
	return &q
}

// Tau returns tau[m][l], the finite thresholds of every sample.
func (s *ItemScale) Tau() [][]float64 {
	tau := make([][]float64, len(s.Eta))
	for m, eta := range s.Eta {
		tau[m] = grm.Tau(eta)
	}
	return tau
}

// MeanTau returns the thresholds averaged across samples.
func (s *ItemScale) MeanTau() []float64 {
	return meanRows(s.Tau())
}

// TraitWeights returns the selector responsibilities.
func (s *ItemScale) TraitWeights() []float64 { return s.Selector.Mean() }

// Adapt runs one adaptation step on a copy of s. The returned evidence is
// always zero: the scale's KL term depends on the shared trait prior and is
// settled by the caller through RelativeEntropyRePrior.
func (s *ItemScale) Adapt(ctx context.Context, env Env) (*ItemScale, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	q := s.Clone()
	q.Step++
	rng := randx.Stream(q.Seed, q.Step)
	log := env.logger().With(zap.Int("item", q.Item))

	// Trait selector first, with the previous thresholds.
	tau := q.Tau()
	logResp := make([]float64, q.NTraits())
	for _, g := range env.Groups {
		lp := g.ItemLogProbByTau(tau, q.Item)
		for _, lpm := range lp {
			floats.AddScaled(logResp, 1/float64(len(lp)), lpm)
		}
	}
	if err := q.Selector.Update(logResp, env.TraitPrior); err != nil {
		return nil, 0, fmt.Errorf("item %d: %w", q.Item, err)
	}

	obj := &objective{groups: env.Groups, item: q.Item, w: q.Selector.Mean()}
	eta0 := meanRows(q.Eta)
	eta1 := mapEstimate(obj, eta0, log)
	diff := make([]float64, len(eta1))
	floats.SubTo(diff, eta1, eta0)
	for _, eta := range q.Eta {
		floats.Add(eta, diff)
		grm.Clamp(eta)
	}
	log.Debug("scale point adapted", zap.Float64s("shift", diff))
	if q.NSamples() == 1 {
		return q, 0, nil
	}

	if err := q.sample(obj, rng, log); err != nil {
		return nil, 0, err
	}
	return q, 0, nil
}

func (s *ItemScale) sample(obj *objective, rng *rand.Rand, log *zap.Logger) error {
	sampler := hmc.New(obj.energy, obj.grad, s.Eta, s.Epsilon, rng)
	lo, hi := make([]float64, s.NLevels()), make([]float64, s.NLevels())
	for l := range lo {
		lo[l], hi[l] = grm.EtaMin, grm.EtaMax
	}
	sampler.Lower, sampler.Upper = lo, hi
	err := sampler.Sample(hmc.DefaultMinSteps, hmc.DefaultMaxSteps)
	switch {
	case errors.Is(err, hmc.ErrAcceptance):
		log.Warn("scale sampler acceptance",
			zap.Float64("accept_rate", sampler.AcceptRate),
			zap.Int("trajectories", sampler.Trajectories),
			zap.Float64("epsilon", sampler.Epsilon))
	case err != nil:
		return fmt.Errorf("item %d sampling: %w", s.Item, err)
	case sampler.Steps >= hmc.DefaultMaxSteps:
		log.Warn("scale sampler hit step limit", zap.Int("steps", sampler.Steps))
	default:
		log.Debug("scale sampled",
			zap.Int("steps", sampler.Steps),
			zap.Float64("accept_rate", sampler.AcceptRate),
			zap.Float64("epsilon", sampler.Epsilon))
	}
	s.Eta = sampler.X
	s.Epsilon = sampler.Epsilon
	for _, eta := range s.Eta {
		grm.Center(eta)
	}
	return nil
}

// RelativeEntropyRePrior returns the KL divergence of the scale from its
// prior: the selector's KL against traitPrior, minus the sample entropy of
// η, minus the mean prior log density of η. A single sample is treated as a
// point estimate with zero entropy.
func (s *ItemScale) RelativeEntropyRePrior(traitPrior *dist.TraitProb) float64 {
	var h float64
	if s.NSamples() > 1 {
		// η samples are centered, so they live on an (L-1)-dimensional plane.
		h = hmc.Entropy(s.Eta, s.NLevels()-1)
	}
	lp := make([]float64, s.NSamples())
	for m, eta := range s.Eta {
		lp[m] = grm.EtaPriorLogProb(eta)
	}
	return s.Selector.RelativeEntropy(traitPrior) - h - stat.Mean(lp, nil)
}

// Prune keeps only the traits flagged in keep.
func (s *ItemScale) Prune(keep []bool) { s.Selector.Prune(keep) }

// Standardize rescales thresholds for trait coordinates divided by ss:
// every τ is divided by the responsibility-weighted factor dot(prob, ss).
func (s *ItemScale) Standardize(ss []float64) {
	f := floats.Dot(s.Selector.Prob, ss)
	for m, tau := range s.Tau() {
		floats.Scale(1/f, tau)
		s.Eta[m] = grm.EtaFromTau(tau)
		grm.Clamp(s.Eta[m])
	}
}

func meanRows(x [][]float64) []float64 {
	out := make([]float64, len(x[0]))
	for _, row := range x {
		floats.Add(out, row)
	}
	floats.Scale(1/float64(len(x)), out)
	return out
}
