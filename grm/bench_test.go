// SPDX-License-Identifier: MIT

package grm_test

import (
	"testing"

	"github.com/katalvlaran/irtcalc/grm"
)

var sinkF float64

// BenchmarkLogProbRange covers the central, tail and unbounded branches.
func BenchmarkLogProbRange(b *testing.B) {
	ranges := [][2]float64{{-0.5, 0.5}, {8, 9}, {-30, -29}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := ranges[i%len(ranges)]
		sinkF += grm.LogProbRange(r[0], r[1])
	}
}

// BenchmarkTau measures threshold mapping for a 7-level item.
func BenchmarkTau(b *testing.B) {
	eta := []float64{-0.3, 0.1, 0.4, 0, -0.2, 0.5, -0.5}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sinkF += grm.Tau(eta)[3]
	}
}
