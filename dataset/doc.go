// SPDX-License-Identifier: MIT

// Package dataset holds questionnaire response data for package irt.
//
// A Questionnaire lists the items and their response levels; a Dataset
// adds one response matrix per group of subjects. Responses are stored
// zero-based with -1 for missing. CSV input uses the common 1-based coding
// where 0 or an empty cell is missing.
//
// Synthesize generates data from a known single- or multi-trait Graded
// Response Model, for tests and for the simulate command.
package dataset
