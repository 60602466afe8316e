package metrics

import (
	"sort"

	"probedash/internal/model"
)

const dayLayout = "2006-01-02"

// SeriesPoint is one value of a daily series.
type SeriesPoint struct {
	Day   string  `json:"day"`
	Value float64 `json:"value"`
}

// DaySummary is the MetricWindow of one calendar day.
type DaySummary struct {
	Day string `json:"day"`
	MetricWindow
}

// DailySeries holds the per-day latency and packet loss lines.
type DailySeries struct {
	Latency    []SeriesPoint `json:"latency"`
	PacketLoss []SeriesPoint `json:"packet_loss"`
}

// SummarizeByDay reduces records per calendar day, oldest first. The day is
// taken from each timestamp in its own location.
func SummarizeByDay(records []model.ProbeRecord) []DaySummary {
	groups := make(map[string][]model.ProbeRecord)
	for _, r := range records {
		if !r.HasTimestamp() {
			continue
		}
		day := r.Timestamp.Format(dayLayout)
		groups[day] = append(groups[day], r)
	}

	out := make([]DaySummary, 0, len(groups))
	for day, group := range groups {
		out = append(out, DaySummary{Day: day, MetricWindow: Summarize(group)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// Daily builds the daily series for the records inside w, optionally for a
// single host. Days without a latency sample are absent from the latency
// line but still present in the packet loss line.
func Daily(records []model.ProbeRecord, w Window, host string) DailySeries {
	days := SummarizeByDay(w.Filter(ForHost(records, host)))
	out := DailySeries{
		Latency:    make([]SeriesPoint, 0, len(days)),
		PacketLoss: make([]SeriesPoint, 0, len(days)),
	}
	for _, d := range days {
		if d.HasLatency() {
			out.Latency = append(out.Latency, SeriesPoint{Day: d.Day, Value: d.MeanLatency})
		}
		out.PacketLoss = append(out.PacketLoss, SeriesPoint{Day: d.Day, Value: d.PacketLossRate})
	}
	return out
}
