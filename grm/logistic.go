// SPDX-License-Identifier: MIT

package grm

import "math"

// Logistic returns 1/(1+exp(-x)) without overflow.
func Logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Logit is the inverse of Logistic.
func Logit(p float64) float64 {
	return math.Log(p) - math.Log1p(-p)
}

// Softplus returns log(1+exp(x)) without overflow.
func Softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// LogProbRange returns log(Logistic(b) - Logistic(a)) for a < b, the log
// probability that a standard-logistic variable falls in (a, b].
// Either bound may be infinite.
func LogProbRange(a, b float64) float64 {
	return math.Log1p(-math.Exp(a-b)) - Softplus(-b) - Softplus(a)
}

// DLogProbRange returns the partial derivatives of LogProbRange(a, b)
// with respect to a and b.
func DLogProbRange(a, b float64) (da, db float64) {
	c := 1 / math.Expm1(b-a)
	return -c - Logistic(a), c + Logistic(-b)
}

// DLogProbRangeShift returns d/dθ LogProbRange(a-θ, b-θ) evaluated at the
// already shifted bounds am = a-θ and bm = b-θ.
func DLogProbRangeShift(am, bm float64) float64 {
	return Logistic(am) - Logistic(-bm)
}
