// SPDX-License-Identifier: MIT

package main

import (
	"io"

	"github.com/katalvlaran/irtcalc/dataset"
	"github.com/katalvlaran/irtcalc/irt"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// report is the YAML summary written by fit.
type report struct {
	Run           string        `yaml:"run,omitempty"`
	Iterations    int           `yaml:"iterations"`
	StopReason    string        `yaml:"stop_reason"`
	ELBO          float64       `yaml:"elbo"`
	Traits        int           `yaml:"traits"`
	PredictiveVar []float64     `yaml:"predictive_var,flow"`
	Items         []itemReport  `yaml:"items"`
	Groups        []groupReport `yaml:"groups"`
}

type itemReport struct {
	Name   string    `yaml:"name"`
	Traits []int     `yaml:"traits,flow"`
	Prob   []float64 `yaml:"trait_prob,flow"`
	Tau    []float64 `yaml:"thresholds,flow"`
}

type groupReport struct {
	Name       string  `yaml:"name"`
	Subjects   int     `yaml:"subjects"`
	MeanRating float64 `yaml:"mean_rating"`
	MeanTrait  float64 `yaml:"mean_trait"`
	EstimVar   float64 `yaml:"estim_var_mean_trait"`
}

func newReport(m *irt.Model, q dataset.Questionnaire, run string, iters int, reason irt.StopReason) report {
	hist := m.LogProbHistory()
	r := report{
		Run:           run,
		Iterations:    iters,
		StopReason:    reason.String(),
		Traits:        m.NTraits(),
		PredictiveVar: m.PredictiveIndividualVar(),
	}
	if len(hist) > 0 {
		r.ELBO = hist[len(hist)-1]
	}
	itemMap := m.ItemTraitMap()
	for i, s := range m.Scales() {
		ir := itemReport{Name: q.Items[i].Name, Prob: s.Selector.Prob, Tau: s.MeanTau()}
		for t, sel := range itemMap[i] {
			if sel {
				ir.Traits = append(ir.Traits, t)
			}
		}
		r.Items = append(r.Items, ir)
	}
	ratings := m.MeanSubjectRatings()
	traits := m.MeanSubjectTraits()
	estim := m.EstimVarMeanSubjectTraits()
	for g, name := range m.GroupNames() {
		r.Groups = append(r.Groups, groupReport{
			Name:       name,
			Subjects:   len(traits[g]),
			MeanRating: nanMean(ratings[g]),
			MeanTrait:  stat.Mean(traits[g], nil),
			EstimVar:   estim[g],
		})
	}
	return r
}

func (r report) write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// nanMean averages the non-NaN entries of x.
func nanMean(x []float64) float64 {
	var sum, n float64
	for _, v := range x {
		if v == v {
			sum += v
			n++
		}
	}
	return sum / n
}
