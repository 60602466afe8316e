package metrics

import (
	"sort"
	"time"

	"probedash/internal/model"
)

// MetricWindow is the reduction of one group of probe records.
type MetricWindow struct {
	Count          int       `json:"count"`
	Succeeded      int       `json:"succeeded"`
	LatencySamples int       `json:"latency_samples"`
	From           time.Time `json:"from,omitempty"`
	To             time.Time `json:"to,omitempty"`
	MeanLatency    float64   `json:"mean_latency_ms"`
	P95Latency     float64   `json:"p95_latency_ms"`
	MinLatency     float64   `json:"min_latency_ms"`
	MaxLatency     float64   `json:"max_latency_ms"`
	PacketLossRate float64   `json:"packet_loss_rate"`
	DispersionRaw  float64   `json:"dispersion_raw"`
	StabilityIndex float64   `json:"stability_index"`
	StabilityKnown bool      `json:"stability_known"`
	UptimeRate     float64   `json:"uptime_rate"`
	Jitter         float64   `json:"jitter_ms"`
}

// HasLatency reports whether any record contributed to the latency figures.
func (m MetricWindow) HasLatency() bool {
	return m.LatencySamples > 0
}

// Summarize reduces records into a MetricWindow. Records without a positive
// average latency are left out of the latency figures but still count
// towards packet loss and uptime.
func Summarize(records []model.ProbeRecord) MetricWindow {
	if len(records) == 0 {
		return MetricWindow{}
	}

	var (
		succeeded int
		failed    int
		latencies = make([]float64, 0, len(records))
		jitterSet = make([]float64, 0, len(records))
	)
	for _, r := range records {
		if r.Succeeded {
			succeeded++
		} else {
			failed++
		}
		if hasLatency(r) {
			latencies = append(latencies, *r.AvgLatencyMs)
		}
		if r.Succeeded && r.AvgLatencyMs != nil && isFinite(*r.AvgLatencyMs) && *r.AvgLatencyMs >= 0 && consistent(r) {
			jitterSet = append(jitterSet, *r.AvgLatencyMs)
		}
	}

	total := len(records)
	out := MetricWindow{
		Count:          total,
		Succeeded:      succeeded,
		LatencySamples: len(latencies),
		PacketLossRate: Ratio(failed, total),
		UptimeRate:     Ratio(succeeded, total),
		Jitter:         StandardDeviation(jitterSet),
	}
	if from, to, ok := Span(records); ok {
		out.From, out.To = from, to
	}

	if len(latencies) > 0 {
		out.MeanLatency = Mean(latencies)
		sorted := append([]float64(nil), latencies...)
		sort.Float64s(sorted)
		out.P95Latency = percentile(sorted, 0.95)
		out.MinLatency = sorted[0]
		out.MaxLatency = sorted[len(sorted)-1]
	}

	if d, ok := Dispersion(records); ok {
		out.DispersionRaw = d
		out.StabilityIndex = StabilityIndex(d)
		out.StabilityKnown = true
	}
	return out
}

// SummarizeWindow reduces the records that fall inside w.
func SummarizeWindow(records []model.ProbeRecord, w Window) MetricWindow {
	return Summarize(w.Filter(records))
}

// PartialLossRate is the per-attempt loss percentage shown in the result
// table: lost replies over the fixed probe count, 100 for failed attempts.
func PartialLossRate(r model.ProbeRecord, probeCount int) float64 {
	if !r.Succeeded {
		return 100
	}
	if probeCount <= 0 {
		return 0
	}
	return clamp(0, 100, float64(r.PacketLossCount)*100/float64(probeCount))
}

// hasLatency reports whether r carries a usable positive average latency.
func hasLatency(r model.ProbeRecord) bool {
	if r.AvgLatencyMs == nil {
		return false
	}
	avg := *r.AvgLatencyMs
	if !isFinite(avg) || avg <= 0 {
		return false
	}
	return consistent(r)
}

// consistent rejects records whose min latency exceeds their max.
func consistent(r model.ProbeRecord) bool {
	return r.MinLatencyMs == nil || r.MaxLatencyMs == nil || *r.MinLatencyMs <= *r.MaxLatencyMs
}
