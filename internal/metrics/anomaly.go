package metrics

import (
	"sort"
	"time"

	"probedash/internal/model"
)

// AnomalyGroup collects the failed attempts of one host.
type AnomalyGroup struct {
	Host        string    `json:"host"`
	Region      string    `json:"region"`
	Count       int       `json:"count"`
	LastAnomaly time.Time `json:"last_anomaly"`
	ErrorLabels []string  `json:"error_labels"`
}

// Anomalies groups the failed records inside w by host. Empty error messages
// are reported as placeholder. Groups are ordered by count, then host.
func Anomalies(records []model.ProbeRecord, w Window, placeholder string) []AnomalyGroup {
	byHost := make(map[string]*AnomalyGroup)
	labels := make(map[string]map[string]struct{})

	for _, r := range w.Filter(records) {
		if r.Succeeded {
			continue
		}
		g, ok := byHost[r.Host]
		if !ok {
			g = &AnomalyGroup{Host: r.Host}
			byHost[r.Host] = g
			labels[r.Host] = make(map[string]struct{})
		}
		g.Count++
		if r.Region != "" {
			g.Region = r.Region
		}
		if r.Timestamp.After(g.LastAnomaly) {
			g.LastAnomaly = r.Timestamp
		}
		label := r.ErrorMessage
		if label == "" {
			label = placeholder
		}
		labels[r.Host][label] = struct{}{}
	}

	out := make([]AnomalyGroup, 0, len(byHost))
	for host, g := range byHost {
		g.ErrorLabels = make([]string, 0, len(labels[host]))
		for l := range labels[host] {
			g.ErrorLabels = append(g.ErrorLabels, l)
		}
		sort.Strings(g.ErrorLabels)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Host < out[j].Host
	})
	return out
}
