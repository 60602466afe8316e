package metrics

import (
	"math"
	"testing"
)

func TestComputeTrend_UnavailableBaseline(t *testing.T) {
	t.Parallel()

	zero := 0.0
	for _, x := range []float64{0, -5, 42, 1e6} {
		for _, prev := range []*float64{nil, &zero} {
			tr := ComputeTrend(x, prev)
			if tr.Direction != DirectionUnavailable {
				t.Fatalf("trend(%v,%v) direction=%s", x, prev, tr.Direction)
			}
			if tr.PercentChange != nil {
				t.Fatalf("trend(%v,%v) change=%v", x, prev, *tr.PercentChange)
			}
			if tr.Text() != "N/A" {
				t.Fatalf("text=%q", tr.Text())
			}
		}
	}
}

func TestComputeTrend_UpAndDown(t *testing.T) {
	t.Parallel()

	prev := 100.0
	up := ComputeTrend(150, &prev)
	if up.Direction != DirectionUp || up.PercentChange == nil || *up.PercentChange != 50 {
		t.Fatalf("up=%+v", up)
	}
	if up.Text() != "+50.0%" {
		t.Fatalf("text=%q", up.Text())
	}

	prev = 150
	down := ComputeTrend(100, &prev)
	if down.Direction != DirectionDown || down.PercentChange == nil {
		t.Fatalf("down=%+v", down)
	}
	if math.Abs(*down.PercentChange-(-33.3)) > 1e-9 {
		t.Fatalf("change=%v", *down.PercentChange)
	}
	if down.Text() != "-33.3%" {
		t.Fatalf("text=%q", down.Text())
	}
}

func TestComputeTrend_FlatHasNoSign(t *testing.T) {
	t.Parallel()

	prev := 100.0
	for _, cur := range []float64{100, 100.01, 99.99} {
		tr := ComputeTrend(cur, &prev)
		if tr.Direction != DirectionFlat {
			t.Fatalf("trend(%v) direction=%s", cur, tr.Direction)
		}
		if tr.Text() != "0.0%" {
			t.Fatalf("trend(%v) text=%q", cur, tr.Text())
		}
	}
}

func TestComputeTrend_NonFiniteCurrent(t *testing.T) {
	t.Parallel()

	prev := 10.0
	if tr := ComputeTrend(math.NaN(), &prev); tr.Direction != DirectionUnavailable {
		t.Fatalf("direction=%s", tr.Direction)
	}
}
