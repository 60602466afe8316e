package metrics

import "math"

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
// Callers that need to tell "no data" from "mean 0" must check len first.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StandardDeviation returns the population standard deviation (divide by N).
// Empty and single-element slices yield 0. Values are scaled by a power of
// two before squaring so the result is 0 only when every value is equal and
// stays finite for finite input.
func StandardDeviation(values []float64) float64 {
	n := len(values)
	if n < 2 || allEqual(values) {
		return 0
	}
	var maxAbs float64
	for _, v := range values {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if !isFinite(maxAbs) {
		return math.NaN()
	}
	_, exp := math.Frexp(maxAbs)

	scaled := make([]float64, n)
	for i, v := range values {
		scaled[i] = math.Ldexp(v, -exp)
	}
	mean := Mean(scaled)
	var variance float64
	for _, v := range scaled {
		d := v - mean
		variance += d * d
	}
	sd := math.Ldexp(math.Sqrt(variance/float64(n)), exp)
	if sd == 0 {
		// below the smallest subnormal
		return math.SmallestNonzeroFloat64
	}
	return sd
}

// Ratio returns successCount/totalCount as a percentage in [0,100].
func Ratio(successCount, totalCount int) float64 {
	if totalCount <= 0 {
		return 0
	}
	if successCount <= 0 {
		return 0
	}
	if successCount >= totalCount {
		return 100
	}
	return float64(successCount) * 100 / float64(totalCount)
}

// percentile expects values sorted ascending and uses the nearest-rank method.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return values[0]
	}
	if p >= 1 {
		return values[len(values)-1]
	}
	idx := int(math.Ceil(p*float64(len(values)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}

func allEqual(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round1(v float64) float64 {
	r := math.Round(v*10) / 10
	if r == 0 {
		return 0 // drop the sign of -0
	}
	return r
}

func clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
