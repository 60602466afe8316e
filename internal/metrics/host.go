package metrics

import (
	"sort"

	"probedash/internal/model"
)

// HostSummary is the MetricWindow of a single host.
type HostSummary struct {
	Host   string `json:"host"`
	Region string `json:"region"`
	MetricWindow
}

// SummarizeByHost reduces the records inside w per host, ordered by host.
func SummarizeByHost(records []model.ProbeRecord, w Window) []HostSummary {
	groups := make(map[string][]model.ProbeRecord)
	regions := make(map[string]string)
	for _, r := range w.Filter(records) {
		groups[r.Host] = append(groups[r.Host], r)
		if r.Region != "" {
			regions[r.Host] = r.Region
		}
	}

	out := make([]HostSummary, 0, len(groups))
	for host, group := range groups {
		out = append(out, HostSummary{
			Host:         host,
			Region:       regions[host],
			MetricWindow: Summarize(group),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

// SortByUptime orders hosts by uptime, best first.
func SortByUptime(hosts []HostSummary) {
	sort.SliceStable(hosts, func(i, j int) bool {
		if hosts[i].UptimeRate != hosts[j].UptimeRate {
			return hosts[i].UptimeRate > hosts[j].UptimeRate
		}
		return hosts[i].Host < hosts[j].Host
	})
}

// SortByJitter orders hosts by jitter, steadiest first.
func SortByJitter(hosts []HostSummary) {
	sort.SliceStable(hosts, func(i, j int) bool {
		if hosts[i].Jitter != hosts[j].Jitter {
			return hosts[i].Jitter < hosts[j].Jitter
		}
		return hosts[i].Host < hosts[j].Host
	})
}

// SortByLatency orders hosts by mean latency, fastest first. Hosts without
// latency samples go last.
func SortByLatency(hosts []HostSummary) {
	sort.SliceStable(hosts, func(i, j int) bool {
		a, b := hosts[i], hosts[j]
		if a.HasLatency() != b.HasLatency() {
			return a.HasLatency()
		}
		if a.MeanLatency != b.MeanLatency {
			return a.MeanLatency < b.MeanLatency
		}
		return a.Host < b.Host
	})
}

// SortByStability orders hosts by stability index, steadiest first. Hosts
// whose stability is unknown go last.
func SortByStability(hosts []HostSummary) {
	sort.SliceStable(hosts, func(i, j int) bool {
		a, b := hosts[i], hosts[j]
		if a.StabilityKnown != b.StabilityKnown {
			return a.StabilityKnown
		}
		if a.StabilityIndex != b.StabilityIndex {
			return a.StabilityIndex > b.StabilityIndex
		}
		return a.Host < b.Host
	})
}

// OverallUptime is the uptime across every attempt of every host.
func OverallUptime(hosts []HostSummary) float64 {
	var succeeded, total int
	for _, h := range hosts {
		succeeded += h.Succeeded
		total += h.Count
	}
	return Ratio(succeeded, total)
}
