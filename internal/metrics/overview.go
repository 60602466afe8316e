package metrics

import (
	"time"

	"probedash/internal/model"
)

// Overview compares the current period against the one before it.
type Overview struct {
	Current         Window       `json:"current"`
	Previous        Window       `json:"previous"`
	CurrentMetrics  MetricWindow `json:"current_metrics"`
	PreviousMetrics MetricWindow `json:"previous_metrics"`
	TestCount       int          `json:"test_count"`
	LatencyTrend    Trend        `json:"latency_trend"`
	LossTrend       Trend        `json:"loss_trend"`
	StabilityTrend  Trend        `json:"stability_trend"`
}

// BuildOverview summarizes the days-long period ending at now and the
// period of equal length before it.
func BuildOverview(records []model.ProbeRecord, now time.Time, days int) (Overview, error) {
	current := LastDays(now, days)
	if err := current.Validate(); err != nil {
		return Overview{}, err
	}
	previous := current.Previous()
	parts := Partition(records, current, previous)

	cur := Summarize(parts[0])
	prev := Summarize(parts[1])

	ov := Overview{
		Current:         current,
		Previous:        previous,
		CurrentMetrics:  cur,
		PreviousMetrics: prev,
		TestCount:       cur.Count,
		LatencyTrend:    ComputeTrend(cur.MeanLatency, baseline(prev.HasLatency(), prev.MeanLatency)),
		LossTrend:       ComputeTrend(cur.PacketLossRate, baseline(prev.Count > 0, prev.PacketLossRate)),
		StabilityTrend:  ComputeTrend(cur.StabilityIndex, baseline(prev.StabilityKnown && cur.StabilityKnown, prev.StabilityIndex)),
	}
	return ov, nil
}

func baseline(ok bool, v float64) *float64 {
	if !ok {
		return nil
	}
	return &v
}
