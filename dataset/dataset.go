// SPDX-License-Identifier: MIT

package dataset

import (
	"fmt"

	"github.com/katalvlaran/irtcalc/irt"
)

// Group is the response data of one group of subjects.
type Group struct {
	Name string
	// Subjects[s] identifies row s; may be empty.
	Subjects []string
	// Responses[s][i] is the zero-based level of subject s for item i,
	// -1 when missing.
	Responses [][]int
}

// Dataset is a questionnaire with the responses of every group.
type Dataset struct {
	Questionnaire Questionnaire
	Groups        []Group
}

// New returns an empty dataset after validating q.
func New(q Questionnaire) (*Dataset, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &Dataset{Questionnaire: q}, nil
}

// AddGroup appends g after checking its name and responses.
func (d *Dataset) AddGroup(g Group) error {
	for _, h := range d.Groups {
		if h.Name == g.Name {
			return fmt.Errorf("group %q: %w", g.Name, ErrDuplicateGroup)
		}
	}
	for s, r := range g.Responses {
		if len(r) != d.Questionnaire.NItems() {
			return fmt.Errorf("group %q subject %d: %d responses for %d items: %w",
				g.Name, s, len(r), d.Questionnaire.NItems(), ErrBadResponse)
		}
		for i, ri := range r {
			if ri < -1 || ri >= d.Questionnaire.Items[i].NLevels() {
				return fmt.Errorf("group %q subject %d item %q: level %d: %w",
					g.Name, s, d.Questionnaire.Items[i].Name, ri, ErrBadResponse)
			}
		}
	}
	d.Groups = append(d.Groups, g)
	return nil
}

// NSubjects returns the total number of subjects.
func (d *Dataset) NSubjects() int {
	var n int
	for _, g := range d.Groups {
		n += len(g.Responses)
	}
	return n
}

// Cohorts returns the groups in the form irt.Initialize consumes.
func (d *Dataset) Cohorts() []irt.Cohort {
	out := make([]irt.Cohort, len(d.Groups))
	for i, g := range d.Groups {
		out[i] = irt.Cohort{Name: g.Name, Responses: g.Responses}
	}
	return out
}

// ItemResponseCount returns counts[i][l], the number of level-l responses
// to item i over all groups. Missing responses are not counted.
func (d *Dataset) ItemResponseCount() [][]int {
	counts := make([][]int, d.Questionnaire.NItems())
	for i, it := range d.Questionnaire.Items {
		counts[i] = make([]int, it.NLevels())
	}
	for _, g := range d.Groups {
		for _, r := range g.Responses {
			for i, ri := range r {
				if ri >= 0 {
					counts[i][ri]++
				}
			}
		}
	}
	return counts
}

var _ irt.Source = (*Dataset)(nil)
