package metrics

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMean_EmptyIsZero(t *testing.T) {
	t.Parallel()

	if got := Mean(nil); got != 0 {
		t.Fatalf("mean=%v", got)
	}
	if got := Mean([]float64{1, 2, 3}); got != 2 {
		t.Fatalf("mean=%v", got)
	}
}

func TestStandardDeviation_Population(t *testing.T) {
	t.Parallel()

	if got := StandardDeviation([]float64{2, 4, 4, 4, 5, 5, 7, 9}); !approx(got, 2) {
		t.Fatalf("stddev=%v", got)
	}
	if got := StandardDeviation([]float64{10, 30}); !approx(got, 10) {
		t.Fatalf("stddev=%v", got)
	}
}

func TestStandardDeviation_ZeroIffEqual(t *testing.T) {
	t.Parallel()

	cases := []struct {
		values []float64
		zero   bool
	}{
		{nil, true},
		{[]float64{5}, true},
		{[]float64{3, 3, 3}, true},
		{[]float64{0.1, 0.1}, true},
		{[]float64{1, 2}, false},
		{[]float64{-4, 4, 4}, false},
		{[]float64{1e-6, 0}, false},
	}
	for _, tc := range cases {
		got := StandardDeviation(tc.values)
		if got < 0 {
			t.Fatalf("stddev(%v)=%v is negative", tc.values, got)
		}
		if (got == 0) != tc.zero {
			t.Fatalf("stddev(%v)=%v, want zero=%v", tc.values, got, tc.zero)
		}
	}
}

func TestStandardDeviation_ExtremeMagnitudes(t *testing.T) {
	t.Parallel()

	if got := StandardDeviation([]float64{1e-200, 0}); got == 0 || !approx(got/5e-201, 1) {
		t.Fatalf("tiny stddev=%v", got)
	}
	got := StandardDeviation([]float64{1e308, 1e308, -1e308})
	if math.IsInf(got, 0) || math.IsNaN(got) {
		t.Fatalf("large stddev=%v", got)
	}
	if !approx(got/1e308, math.Sqrt(8.0/9.0)) {
		t.Fatalf("large stddev=%v", got)
	}
	if got := StandardDeviation([]float64{math.SmallestNonzeroFloat64, 0}); got <= 0 {
		t.Fatalf("subnormal stddev=%v", got)
	}
}

func TestRatio_Bounds(t *testing.T) {
	t.Parallel()

	if got := Ratio(0, 0); got != 0 {
		t.Fatalf("ratio(0,0)=%v", got)
	}
	for _, k := range []int{1, 7, 1000} {
		if got := Ratio(k, k); got != 100 {
			t.Fatalf("ratio(%d,%d)=%v", k, k, got)
		}
	}
	if got := Ratio(1, 4); got != 25 {
		t.Fatalf("ratio(1,4)=%v", got)
	}
}

func TestRatio_MonotonicInSuccess(t *testing.T) {
	t.Parallel()

	const n = 13
	prev := -1.0
	for k := 0; k <= n; k++ {
		got := Ratio(k, n)
		if got < prev {
			t.Fatalf("ratio(%d,%d)=%v < ratio(%d,%d)=%v", k, n, got, k-1, n, prev)
		}
		if got < 0 || got > 100 {
			t.Fatalf("ratio(%d,%d)=%v out of range", k, n, got)
		}
		prev = got
	}
}

func TestPercentile_Edges(t *testing.T) {
	t.Parallel()

	values := []float64{1, 2, 3, 4}
	if got := percentile(values, 0); got != 1 {
		t.Fatalf("p0=%v", got)
	}
	if got := percentile(values, 1); got != 4 {
		t.Fatalf("p100=%v", got)
	}
	if got := percentile(values, 0.5); got != 2 {
		t.Fatalf("p50=%v", got)
	}
}

func TestRound1_NoNegativeZero(t *testing.T) {
	t.Parallel()

	got := round1(-0.04)
	if got != 0 || math.Signbit(got) {
		t.Fatalf("round1(-0.04)=%v signbit=%v", got, math.Signbit(got))
	}
	if got := round1(-33.3333); got != -33.3 {
		t.Fatalf("round1=%v", got)
	}
}
