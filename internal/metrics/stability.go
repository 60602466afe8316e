package metrics

import (
	"math"

	"probedash/internal/model"
)

// Dispersion returns the mean relative spread (max-min)/avg over successful
// records that carry a positive average latency. ok is false when no record
// qualifies. Terms that are not finite count as zero spread.
func Dispersion(records []model.ProbeRecord) (value float64, ok bool) {
	var (
		sum   float64
		count int
	)
	for _, r := range records {
		term, valid := dispersionTerm(r)
		if !valid {
			continue
		}
		sum += term
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func dispersionTerm(r model.ProbeRecord) (float64, bool) {
	if !r.Succeeded || !hasLatency(r) {
		return 0, false
	}
	if r.MinLatencyMs == nil || r.MaxLatencyMs == nil {
		return 0, false
	}
	avg, lo, hi := *r.AvgLatencyMs, *r.MinLatencyMs, *r.MaxLatencyMs
	if lo > hi {
		return 0, false
	}
	if isFinite(lo) && isFinite(hi) && (avg < lo || avg > hi) {
		return 0, false
	}
	term := (hi - lo) / avg
	if !isFinite(term) {
		return 0, true
	}
	return term, true
}

// StabilityIndex maps a dispersion onto a 0-100 score: (1-d)*100, clamped.
// Non-finite input yields exactly 0, so missing data and a fully unstable
// window read the same; MetricWindow.StabilityKnown separates them.
func StabilityIndex(dispersion float64) float64 {
	if math.IsNaN(dispersion) || math.IsInf(dispersion, 0) {
		return 0
	}
	return clamp(0, 100, (1-dispersion)*100)
}
