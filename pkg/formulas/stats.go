// Package formulas holds the small numeric building blocks shared by the estimators.
package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return stat.Mean(data, nil)
}

// SampleStdDev is the standard deviation with the N-1 denominator.
// Fewer than two observations yield NaN.
func SampleStdDev(data []float64) float64 {
	if len(data) < 2 {
		return math.NaN()
	}
	return stat.StdDev(data, nil)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Quantile returns the p-quantile of data using linear interpolation between
// closest ranks: position h = (n-1)·p, result x[⌊h⌋] + (h-⌊h⌋)·(x[⌊h⌋+1]-x[⌊h⌋]).
// This is the definition most dataframe libraries use by default. data is not modified.
func Quantile(p float64, data []float64) float64 {
	if len(data) == 0 || p < 0 || p > 1 || math.IsNaN(p) {
		return math.NaN()
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// LogReturn is ln(cur/prev).
func LogReturn(prev, cur float64) float64 {
	return math.Log(cur / prev)
}

// SimpleFromLog converts a log return into a simple return, exp(r) - 1.
func SimpleFromLog(r float64) float64 {
	return math.Expm1(r)
}
