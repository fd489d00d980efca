// SPDX-License-Identifier: MIT

package group

import (
	"gonum.org/v1/gonum/mat"
)

// energy evaluates U_s(θ_s) = -log p(r_s | θ_s) - log N(θ_s; μ, E[Λ]⁻¹)
// per subject, with the expected log-determinant E[log|Λ|] in the prior term.
type energy struct {
	responses  [][]int
	tau        [][][]float64 // tau[i][m][l]
	w          [][]float64   // w[i][t]
	prec       *mat.SymDense
	meanLogDet float64
	loc        []float64
	nT         int

	lastU []float64
}

func newEnergy(g *RespondentGroup, env Env) *energy {
	e := &energy{
		responses:  g.Responses,
		tau:        make([][][]float64, len(env.Scales)),
		w:          make([][]float64, len(env.Scales)),
		prec:       env.Within.Mean(),
		meanLogDet: env.Within.MeanLogDet(),
		loc:        g.Mu.Loc,
		nT:         g.NTraits(),
	}
	for i, sc := range env.Scales {
		e.tau[i] = sc.Tau()
		e.w[i] = sc.TraitWeights()
	}
	return e
}

// energy writes U_s for every subject block of x into dst.
func (e *energy) energy(x, dst []float64) {
	d := make([]float64, e.nT)
	for s := range dst {
		th := x[s*e.nT : (s+1)*e.nT]
		u := -logLik(th, e.responses[s], e.tau, e.w, nil)
		u += e.quad(th, d)/2 - e.meanLogDet/2 + float64(e.nT)*log2Pi/2
		dst[s] = u
	}
}

// grad writes dU/dx into dst.
func (e *energy) grad(x, dst []float64) {
	d := make([]float64, e.nT)
	g := make([]float64, e.nT)
	for s := range e.responses {
		th := x[s*e.nT : (s+1)*e.nT]
		for t := range g {
			g[t] = 0
		}
		logLik(th, e.responses[s], e.tau, e.w, g)
		for t := range d {
			d[t] = th[t] - e.loc[t]
		}
		out := dst[s*e.nT : (s+1)*e.nT]
		for t := range out {
			var pd float64
			for j := range d {
				pd += e.prec.At(t, j) * d[j]
			}
			out[t] = pd - g[t]
		}
	}
}

// quad returns (θ-μ)ᵀ E[Λ] (θ-μ), using d as scratch.
func (e *energy) quad(th, d []float64) float64 {
	for t := range d {
		d[t] = th[t] - e.loc[t]
	}
	v := mat.NewVecDense(len(d), d)
	return mat.Inner(v, e.prec, v)
}
