// SPDX-License-Identifier: MIT

package dataset

import (
	"fmt"
	"math/rand/v2"

	"github.com/katalvlaran/irtcalc/grm"
)

// SynthConfig describes a known Graded Response Model.
type SynthConfig struct {
	// Tau[i] are the increasing thresholds of item i; item i has
	// len(Tau[i])+1 levels.
	Tau [][]float64
	// ItemTrait[i] is the trait that drives item i.
	ItemTrait []int
	// GroupMean[g][t] is the mean of trait t in group g; the number of
	// groups is len(GroupMean).
	GroupMean [][]float64
	// TraitSD is the standard deviation of traits around the group mean.
	TraitSD float64
	// Subjects is the number of subjects per group.
	Subjects int
	// MissingRate is the probability that a response is dropped.
	MissingRate float64
}

// Truth holds the generating trait values: Theta[g][s][t].
type Truth struct {
	Theta [][][]float64
}

// Synthesize draws a dataset from cfg. Groups are named "G1".."Gn".
func Synthesize(cfg SynthConfig, rng *rand.Rand) (*Dataset, Truth, error) {
	if len(cfg.Tau) == 0 || len(cfg.ItemTrait) != len(cfg.Tau) {
		return nil, Truth{}, fmt.Errorf("synthesize: %d items, %d trait indices: %w",
			len(cfg.Tau), len(cfg.ItemTrait), ErrNoItems)
	}
	q := Questionnaire{Name: "synthetic", Items: make([]Item, len(cfg.Tau))}
	for i, tau := range cfg.Tau {
		lv := make([]string, len(tau)+1)
		for l := range lv {
			lv[l] = fmt.Sprint(l + 1)
		}
		q.Items[i] = Item{Name: fmt.Sprintf("Q%d", i+1), Levels: lv}
	}
	d, err := New(q)
	if err != nil {
		return nil, Truth{}, fmt.Errorf("synthesize: %w", err)
	}
	truth := Truth{Theta: make([][][]float64, len(cfg.GroupMean))}
	for gi, mu := range cfg.GroupMean {
		g := Group{Name: fmt.Sprintf("G%d", gi+1), Responses: make([][]int, cfg.Subjects)}
		theta := make([][]float64, cfg.Subjects)
		for s := range theta {
			theta[s] = make([]float64, len(mu))
			for t, m := range mu {
				theta[s][t] = m + cfg.TraitSD*rng.NormFloat64()
			}
			r := make([]int, len(cfg.Tau))
			for i, tau := range cfg.Tau {
				if cfg.MissingRate > 0 && rng.Float64() < cfg.MissingRate {
					r[i] = -1
					continue
				}
				r[i] = grm.SampleResponse(theta[s][cfg.ItemTrait[i]], tau, rng)
			}
			g.Responses[s] = r
		}
		if err = d.AddGroup(g); err != nil {
			return nil, Truth{}, fmt.Errorf("synthesize: %w", err)
		}
		truth.Theta[gi] = theta
	}
	return d, truth, nil
}
