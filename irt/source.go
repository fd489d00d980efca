// SPDX-License-Identifier: MIT

package irt

// Cohort is the raw response data of one named group of subjects.
type Cohort struct {
	Name string
	// Responses[s][i] is the zero-based response level of subject s to
	// item i, or -1 when missing.
	Responses [][]int
}

// Source is the data a model is initialized from.
type Source interface {
	// Cohorts returns every group in a stable order.
	Cohorts() []Cohort

	// ItemResponseCount returns counts[i][l], the number of responses at
	// level l of item i summed over all groups. len(counts[i]) is the
	// number of response levels of item i.
	ItemResponseCount() [][]int
}
