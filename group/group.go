// SPDX-License-Identifier: MIT

package group

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/katalvlaran/irtcalc/dist"
	"github.com/katalvlaran/irtcalc/grm"
	"github.com/katalvlaran/irtcalc/hmc"
	"github.com/katalvlaran/irtcalc/randx"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultEpsilon is the initial HMC step size for trait samples.
const DefaultEpsilon = 0.3

// minWeight skips item-trait pairs with negligible responsibility.
const minWeight = 1e-10

// Scale is the view of an item scale needed to adapt a group.
type Scale interface {
	// Tau returns tau[m][l], the finite thresholds of every sample.
	Tau() [][]float64
	// TraitWeights returns the item's responsibility for every trait.
	TraitWeights() []float64
}

// TraitSampler draws initial trait values from responses to one item.
type TraitSampler interface {
	// SampleTrait returns th[n][s] for responses r[s].
	SampleTrait(r []int, n int, traitScale float64, rng *rand.Rand) [][]float64
}

// Env holds the read-only inputs of one group adaptation step.
type Env struct {
	Scales []Scale
	Within *dist.PrecisionWithin
	Among  *dist.PrecisionAmong
	Logger *zap.Logger
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// RespondentGroup holds one cohort's responses, trait samples and mean.
type RespondentGroup struct {
	Name string
	// Responses[s][i] is the zero-based response of subject s to item i,
	// -1 when missing. Never modified.
	Responses [][]int
	// Theta[n][s][t] is the n-th sample of trait t for subject s.
	Theta [][][]float64
	Mu    *dist.GroupMean
	// LL is the evidence contribution of the last Adapt.
	LL float64

	Epsilon float64
	Seed    uint64
	Step    uint64
}

// New returns a group with the given responses and trait samples; Mu is
// placed at the mean trait vector.
func New(name string, responses [][]int, theta [][][]float64, seed uint64) (*RespondentGroup, error) {
	if len(responses) == 0 {
		return nil, fmt.Errorf("group %q: %w", name, ErrNoSubjects)
	}
	if len(theta) == 0 || len(theta[0]) != len(responses) || len(theta[0][0]) == 0 {
		return nil, fmt.Errorf("group %q: trait samples do not match %d subjects: %w",
			name, len(responses), ErrShape)
	}
	g := &RespondentGroup{
		Name:      name,
		Responses: responses,
		Theta:     theta,
		Epsilon:   DefaultEpsilon,
		Seed:      seed,
	}
	g.Mu = dist.NewGroupMean(g.meanAll())
	return g, nil
}

// InitializeByItem draws one initial trait per item for every subject,
// consistent with the subject's response to that item.
func InitializeByItem(name string, responses [][]int, scales []TraitSampler,
	nSamples int, traitScale float64, seed uint64) (*RespondentGroup, error) {
	if len(responses) == 0 {
		return nil, fmt.Errorf("group %q: %w", name, ErrNoSubjects)
	}
	rng := randx.Stream(seed, 0)
	theta := make([][][]float64, nSamples)
	for n := range theta {
		theta[n] = make([][]float64, len(responses))
		for s := range theta[n] {
			theta[n][s] = make([]float64, len(scales))
		}
	}
	r := make([]int, len(responses))
	for i, sc := range scales {
		for s, rs := range responses {
			if len(rs) != len(scales) {
				return nil, fmt.Errorf("group %q subject %d: %d responses for %d items: %w",
					name, s, len(rs), len(scales), ErrShape)
			}
			r[s] = rs[i]
		}
		th := sc.SampleTrait(r, nSamples, traitScale, rng)
		for n := range th {
			for s, v := range th[n] {
				theta[n][s][i] = v
			}
		}
	}
	return New(name, responses, theta, seed)
}

// NSamples returns the number of trait samples per subject.
func (g *RespondentGroup) NSamples() int { return len(g.Theta) }

// NSubjects returns the number of subjects.
func (g *RespondentGroup) NSubjects() int { return len(g.Responses) }

// NTraits returns the trait dimension.
func (g *RespondentGroup) NTraits() int { return len(g.Theta[0][0]) }

// Clone returns a deep copy; Responses are shared as they never change.
func (g *RespondentGroup) Clone() *RespondentGroup {
	q := *g
	q.Theta = cloneTheta(g.Theta)
	q.Mu = g.Mu.Clone()
	return &q
}

func cloneTheta(theta [][][]float64) [][][]float64 {
	out := make([][][]float64, len(theta))
	for n := range theta {
		out[n] = make([][]float64, len(theta[n]))
		for s := range theta[n] {
			out[n][s] = append([]float64(nil), theta[n][s]...)
		}
	}
	return out
}

// meanAll returns the mean trait vector across samples and subjects.
func (g *RespondentGroup) meanAll() []float64 {
	m := make([]float64, g.NTraits())
	for _, th := range g.Theta {
		for _, v := range th {
			floats.Add(m, v)
		}
	}
	floats.Scale(1/float64(g.NSamples()*g.NSubjects()), m)
	return m
}

// MeanTheta returns the per-subject mean trait vectors.
func (g *RespondentGroup) MeanTheta() [][]float64 {
	out := make([][]float64, g.NSubjects())
	inv := 1 / float64(g.NSamples())
	for s := range out {
		out[s] = make([]float64, g.NTraits())
		for _, th := range g.Theta {
			floats.AddScaled(out[s], inv, th[s])
		}
	}
	return out
}

// CovAll returns the sample covariance of trait vectors pooled across all
// samples and subjects.
func (g *RespondentGroup) CovAll() *mat.SymDense {
	nT := g.NTraits()
	x := mat.NewDense(g.NSamples()*g.NSubjects(), nT, nil)
	row := 0
	for _, th := range g.Theta {
		for _, v := range th {
			x.SetRow(row, v)
			row++
		}
	}
	c := mat.NewSymDense(nT, nil)
	stat.CovarianceMatrix(c, x, nil)
	return c
}

// TransformTraits maps every trait vector θ to θ·proj and resets Mu at the
// new mean with unit precision.
func (g *RespondentGroup) TransformTraits(proj mat.Matrix) error {
	rows, cols := proj.Dims()
	if rows != g.NTraits() {
		return fmt.Errorf("group %q: projection has %d rows, want %d: %w", g.Name, rows, g.NTraits(), ErrShape)
	}
	var out mat.VecDense
	for n := range g.Theta {
		for s, v := range g.Theta[n] {
			out.MulVec(proj.T(), mat.NewVecDense(rows, v))
			g.Theta[n][s] = append(make([]float64, 0, cols), out.RawVector().Data...)
			out.Reset()
		}
	}
	g.Mu = dist.NewGroupMean(g.meanAll())
	return nil
}

// MeanCovTheta returns, per subject, E[(θ_s-μ)(θ_s-μ)ᵀ] averaged across
// samples, including the uncertainty of μ.
func (g *RespondentGroup) MeanCovTheta() []*mat.SymDense {
	nT := g.NTraits()
	muCov := g.Mu.Cov()
	inv := 1 / float64(g.NSamples())
	d := make([]float64, nT)
	out := make([]*mat.SymDense, g.NSubjects())
	for s := range out {
		c := mat.NewSymDense(nT, nil)
		for _, th := range g.Theta {
			floats.SubTo(d, th[s], g.Mu.Loc)
			c.SymRankOne(c, inv, mat.NewVecDense(nT, d))
		}
		c.AddSym(c, muCov)
		out[s] = c
	}
	return out
}

// Mean2 returns E[μ_t²] for the among-group precision update.
func (g *RespondentGroup) Mean2() []float64 { return g.Mu.Mean2() }

// Adapt runs one adaptation step on a copy of g and returns it with its
// evidence contribution.
func (g *RespondentGroup) Adapt(ctx context.Context, env Env) (*RespondentGroup, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if len(env.Scales) != len(g.Responses[0]) {
		return nil, 0, fmt.Errorf("group %q: %d scales for %d items: %w",
			g.Name, len(env.Scales), len(g.Responses[0]), ErrShape)
	}
	if env.Within.NTraits() != g.NTraits() {
		return nil, 0, fmt.Errorf("group %q: precision has %d traits, want %d: %w",
			g.Name, env.Within.NTraits(), g.NTraits(), ErrShape)
	}
	q := g.Clone()
	q.Step++
	rng := randx.Stream(q.Seed, q.Step)
	log := env.logger().With(zap.String("group", q.Name))

	e := newEnergy(q, env)
	if err := q.sample(e, rng, log); err != nil {
		return nil, 0, err
	}
	ll := -stat.Mean(e.lastU, nil)
	muLL, err := q.Mu.Update(q.MeanTheta(), e.prec, env.Among)
	if err != nil {
		return nil, 0, fmt.Errorf("group %q: %w", q.Name, err)
	}
	ll += muLL
	h := q.EntropyTheta()
	log.Debug("group adapted",
		zap.Float64s("mu_loc", q.Mu.Loc),
		zap.Float64("ll", ll),
		zap.Float64("entropy", h))
	q.LL = ll + h
	return q, q.LL, nil
}

func (g *RespondentGroup) sample(e *energy, rng *rand.Rand, log *zap.Logger) error {
	nS, nT := g.NSubjects(), g.NTraits()
	x := make([][]float64, g.NSamples())
	for n, th := range g.Theta {
		x[n] = make([]float64, 0, nS*nT)
		for _, v := range th {
			x[n] = append(x[n], v...)
		}
	}
	sampler := hmc.New(e.energy, e.grad, x, g.Epsilon, rng)
	sampler.BlockSize = nT
	err := sampler.Sample(hmc.DefaultMinSteps, hmc.DefaultMaxSteps)
	switch {
	case errors.Is(err, hmc.ErrAcceptance):
		log.Warn("group sampler acceptance",
			zap.Float64("accept_rate", sampler.AcceptRate),
			zap.Int("trajectories", sampler.Trajectories),
			zap.Float64("epsilon", sampler.Epsilon))
	case err != nil:
		return fmt.Errorf("group %q sampling: %w", g.Name, err)
	case sampler.Steps >= hmc.DefaultMaxSteps:
		log.Warn("group sampler hit step limit", zap.Int("steps", sampler.Steps))
	default:
		log.Debug("group sampled",
			zap.Int("steps", sampler.Steps),
			zap.Float64("accept_rate", sampler.AcceptRate),
			zap.Float64("epsilon", sampler.Epsilon))
	}
	for n, xn := range sampler.X {
		for s := range g.Theta[n] {
			copy(g.Theta[n][s], xn[s*nT:(s+1)*nT])
		}
	}
	g.Epsilon = sampler.Epsilon
	e.lastU = sampler.U()
	return nil
}

// EntropyTheta returns the nearest-neighbour entropy of the trait samples,
// estimated separately per subject and summed.
func (g *RespondentGroup) EntropyTheta() float64 {
	var h float64
	x := make([][]float64, g.NSamples())
	for s := 0; s < g.NSubjects(); s++ {
		for n := range x {
			x[n] = g.Theta[n][s]
		}
		h += hmc.Entropy(x, g.NTraits())
	}
	return h
}

// Prune keeps only the traits flagged in keep.
func (g *RespondentGroup) Prune(keep []bool) {
	for n := range g.Theta {
		for s, v := range g.Theta[n] {
			kept := make([]float64, 0, len(v))
			for t, k := range keep {
				if k {
					kept = append(kept, v[t])
				}
			}
			g.Theta[n][s] = kept
		}
	}
	g.Mu.Prune(keep)
}

// Standardize divides every trait by s.
func (g *RespondentGroup) Standardize(s []float64) {
	for n := range g.Theta {
		for _, v := range g.Theta[n] {
			floats.Div(v, s)
		}
	}
	g.Mu.Standardize(s)
}

// logLik returns Σ_i Σ_t w_it mean_m log P(r_i | θ_t, τ_i[m]) for one
// subject, and adds its gradient with respect to θ into grad when non-nil.
func logLik(theta []float64, r []int, tau [][][]float64, w [][]float64, grad []float64) float64 {
	var lp float64
	for i, ri := range r {
		if ri < 0 {
			continue
		}
		inv := 1 / float64(len(tau[i]))
		for t, wt := range w[i] {
			if wt < minWeight {
				continue
			}
			for _, tm := range tau[i] {
				lo, hi := grm.Interval(tm, ri)
				am, bm := lo-theta[t], hi-theta[t]
				lp += wt * inv * grm.LogProbRange(am, bm)
				if grad != nil {
					grad[t] += wt * inv * grm.DLogProbRangeShift(am, bm)
				}
			}
		}
	}
	return lp
}

var log2Pi = math.Log(2 * math.Pi)
