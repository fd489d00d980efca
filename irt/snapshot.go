// SPDX-License-Identifier: MIT

package irt

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/irtcalc/dist"
	"github.com/katalvlaran/irtcalc/group"
	"github.com/katalvlaran/irtcalc/scale"
	"gonum.org/v1/gonum/mat"
)

// Snapshot is the complete model state as plain numbers, for persistence.
type Snapshot struct {
	Seed        uint64       `json:"seed"`
	NTraits     int          `json:"n_traits"`
	TraitAlpha  []float64    `json:"trait_alpha"`
	WithinDF    float64      `json:"within_df"`
	WithinScale [][]float64  `json:"within_scale"`
	AmongA      float64      `json:"among_a"`
	AmongB      []float64    `json:"among_b"`
	Scales      []ScaleState `json:"scales"`
	Groups      []GroupState `json:"groups"`
	History     []float64    `json:"history"`
}

// ScaleState is the state of one item scale.
type ScaleState struct {
	Item     int         `json:"item"`
	Eta      [][]float64 `json:"eta"`
	Selector []float64   `json:"selector"`
	Epsilon  float64     `json:"epsilon"`
	Seed     uint64      `json:"seed"`
	Step     uint64      `json:"step"`
}

// GroupState is the state of one respondent group.
type GroupState struct {
	Name      string        `json:"name"`
	Responses [][]int       `json:"responses"`
	Theta     [][][]float64 `json:"theta"`
	MuLoc     []float64     `json:"mu_loc"`
	MuPrec    [][]float64   `json:"mu_prec"`
	LL        float64       `json:"ll"`
	Epsilon   float64       `json:"epsilon"`
	Seed      uint64        `json:"seed"`
	Step      uint64        `json:"step"`
}

// Snapshot returns a deep copy of the model state.
func (m *Model) Snapshot() *Snapshot {
	s := &Snapshot{
		Seed:        m.opt.seed,
		NTraits:     m.NTraits(),
		TraitAlpha:  slices.Clone(m.p.traitPrior.Alpha),
		WithinDF:    m.p.within.DF,
		WithinScale: symRows(m.p.within.Scale),
		AmongA:      m.p.among.A,
		AmongB:      slices.Clone(m.p.among.B),
		Scales:      make([]ScaleState, len(m.p.scales)),
		Groups:      make([]GroupState, len(m.p.groups)),
		History:     slices.Clone(m.history),
	}
	for i, sc := range m.p.scales {
		c := sc.Clone()
		s.Scales[i] = ScaleState{
			Item:     c.Item,
			Eta:      c.Eta,
			Selector: c.Selector.Prob,
			Epsilon:  c.Epsilon,
			Seed:     c.Seed,
			Step:     c.Step,
		}
	}
	for i, g := range m.p.groups {
		c := g.Clone()
		s.Groups[i] = GroupState{
			Name:      c.Name,
			Responses: cloneRows(c.Responses),
			Theta:     c.Theta,
			MuLoc:     c.Mu.Loc,
			MuPrec:    symRows(c.Mu.Prec),
			LL:        c.LL,
			Epsilon:   c.Epsilon,
			Seed:      c.Seed,
			Step:      c.Step,
		}
	}
	return s
}

// Restore rebuilds a model from s. The seed is taken from s; other
// options such as logging and concurrency apply as in Initialize.
func Restore(s *Snapshot, opts ...Option) (*Model, error) {
	o := gatherOptions(opts)
	o.seed = s.Seed
	if err := s.validate(); err != nil {
		return nil, err
	}
	within := &dist.PrecisionWithin{Scale: rowsSym(s.WithinScale), DF: s.WithinDF}
	p := params{
		traitPrior: &dist.TraitProb{Alpha: slices.Clone(s.TraitAlpha)},
		within:     within,
		among:      &dist.PrecisionAmong{A: s.AmongA, B: slices.Clone(s.AmongB)},
		scales:     make([]*scale.ItemScale, len(s.Scales)),
		groups:     make([]*group.RespondentGroup, len(s.Groups)),
	}
	for i, st := range s.Scales {
		sc := &scale.ItemScale{
			Item:     st.Item,
			Eta:      st.Eta,
			Selector: &dist.TraitSelector{Prob: slices.Clone(st.Selector)},
			Epsilon:  st.Epsilon,
			Seed:     st.Seed,
			Step:     st.Step,
		}
		p.scales[i] = sc.Clone()
	}
	for i, st := range s.Groups {
		g := &group.RespondentGroup{
			Name:      st.Name,
			Responses: cloneRows(st.Responses),
			Theta:     st.Theta,
			Mu:        &dist.GroupMean{Loc: st.MuLoc, Prec: rowsSym(st.MuPrec)},
			LL:        st.LL,
			Epsilon:   st.Epsilon,
			Seed:      st.Seed,
			Step:      st.Step,
		}
		p.groups[i] = g.Clone()
	}
	m := &Model{p: p, history: slices.Clone(s.History), opt: o, log: o.log}
	o.metrics.setTraits(s.NTraits)
	return m, nil
}

// validate checks that every component agrees on the number of traits,
// that sample sets are rectangular, and that scales and responses match
// the items they belong to.
func (s *Snapshot) validate() error {
	n := s.NTraits
	bad := func(what string, got int) error {
		return fmt.Errorf("restore: %s has %d traits, want %d: %w", what, got, n, ErrTraitCount)
	}
	switch {
	case n < 1:
		return fmt.Errorf("restore: %d traits: %w", n, ErrTraitCount)
	case len(s.TraitAlpha) != n:
		return bad("trait prior", len(s.TraitAlpha))
	case len(s.WithinScale) != n:
		return bad("within precision", len(s.WithinScale))
	case len(s.AmongB) != n:
		return bad("among precision", len(s.AmongB))
	case len(s.Groups) == 0:
		return ErrNoGroups
	case len(s.Scales) == 0 || n > len(s.Scales):
		return fmt.Errorf("restore: %d traits for %d items: %w", n, len(s.Scales), ErrTraitCount)
	}
	for _, row := range s.WithinScale {
		if len(row) != n {
			return bad("within precision row", len(row))
		}
	}
	for i, sc := range s.Scales {
		if sc.Item != i {
			return fmt.Errorf("restore: scale %d holds item %d: %w", i, sc.Item, ErrResponseShape)
		}
		if len(sc.Selector) != n {
			return bad(fmt.Sprintf("scale %d", i), len(sc.Selector))
		}
		if len(sc.Eta) == 0 {
			return fmt.Errorf("restore: scale %d has no samples: %w", i, ErrSampleCount)
		}
		for _, eta := range sc.Eta {
			if len(eta) != len(sc.Eta[0]) || len(eta) < 2 {
				return fmt.Errorf("restore: scale %d has ragged samples: %w", i, ErrSampleCount)
			}
		}
	}
	for _, g := range s.Groups {
		if len(g.MuLoc) != n || len(g.MuPrec) != n {
			return bad(fmt.Sprintf("group %q mean", g.Name), len(g.MuLoc))
		}
		if len(g.Theta) == 0 || len(g.Responses) == 0 {
			return fmt.Errorf("restore: group %q is empty: %w", g.Name, ErrSampleCount)
		}
		for _, th := range g.Theta {
			if len(th) != len(g.Responses) {
				return fmt.Errorf("restore: group %q: %d trait rows for %d subjects: %w",
					g.Name, len(th), len(g.Responses), ErrSampleCount)
			}
			for _, v := range th {
				if len(v) != n {
					return bad(fmt.Sprintf("group %q sample", g.Name), len(v))
				}
			}
		}
		for si, r := range g.Responses {
			if len(r) != len(s.Scales) {
				return fmt.Errorf("restore: group %q: %w", g.Name, ErrResponseShape)
			}
			for i, ri := range r {
				if levels := len(s.Scales[i].Eta[0]); ri < -1 || ri >= levels {
					return fmt.Errorf("restore: group %q subject %d item %d: level %d of %d: %w",
						g.Name, si, i, ri, levels, ErrResponseLevel)
				}
			}
		}
	}
	return nil
}

func symRows(a mat.Symmetric) [][]float64 {
	n := a.SymmetricDim()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = a.At(i, j)
		}
	}
	return out
}

func rowsSym(rows [][]float64) *mat.SymDense {
	n := len(rows)
	a := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a.SetSym(i, j, rows[i][j])
		}
	}
	return a
}

// cloneRows copies a response matrix; groups share theirs read-only.
func cloneRows(rows [][]int) [][]int {
	out := make([][]int, len(rows))
	for i, r := range rows {
		out[i] = slices.Clone(r)
	}
	return out
}
