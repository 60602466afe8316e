package metrics

import (
	"math"

	"probedash/internal/model"
)

// LatencyBucket counts records whose average latency lies in [Lower, Upper).
// Upper is nil for the open-ended last bin.
type LatencyBucket struct {
	Label string   `json:"label"`
	Lower float64  `json:"lower"`
	Upper *float64 `json:"upper"`
	Count int      `json:"count"`
}

// Contains reports whether v falls in the bin.
func (b LatencyBucket) Contains(v float64) bool {
	if v < b.Lower {
		return false
	}
	return b.Upper == nil || v < *b.Upper
}

var latencyBins = []struct {
	label string
	lower float64
}{
	{"0-50ms", 0},
	{"50-100ms", 50},
	{"100-200ms", 100},
	{"200-500ms", 200},
	{"500ms+", 500},
}

// LatencyDistribution counts records per latency bin. Every bin is reported,
// ordered by lower bound. Records without a usable average are left out.
func LatencyDistribution(records []model.ProbeRecord) []LatencyBucket {
	out := make([]LatencyBucket, len(latencyBins))
	for i, bin := range latencyBins {
		out[i] = LatencyBucket{Label: bin.label, Lower: bin.lower}
		if i+1 < len(latencyBins) {
			out[i].Upper = model.Float(latencyBins[i+1].lower)
		}
	}

	for _, r := range records {
		if r.AvgLatencyMs == nil {
			continue
		}
		v := *r.AvgLatencyMs
		if math.IsNaN(v) || v < 0 {
			continue
		}
		for i := range out {
			if out[i].Contains(v) {
				out[i].Count++
				break
			}
		}
	}
	return out
}
