// Package trace decodes stored traceroute hops and prepares them for display.
package trace

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"probedash/internal/model"
)

// Locator resolves an address to a location label.
type Locator interface {
	Locate(ip string) (string, bool)
}

// DecodeHops parses the hops_json column. Empty input yields no hops.
func DecodeHops(raw string) ([]model.TraceHop, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var hops []model.TraceHop
	if err := json.Unmarshal([]byte(raw), &hops); err != nil {
		return nil, fmt.Errorf("decode hops: %w", err)
	}
	sort.SliceStable(hops, func(i, j int) bool { return hops[i].HopIndex < hops[j].HopIndex })
	return hops, nil
}

// ValidHops drops hops that timed out or carry no address.
func ValidHops(hops []model.TraceHop) []model.TraceHop {
	out := make([]model.TraceHop, 0, len(hops))
	for _, h := range hops {
		if h.Unresolved() {
			continue
		}
		out = append(out, h)
	}
	return out
}

// Enrich returns copies of runs with valid hops only, filling locations that
// are empty or equal to one of placeholders from loc. Stored locations are
// kept when loc has no answer. A nil loc only filters hops.
func Enrich(runs []model.TraceRun, loc Locator, placeholders ...string) []model.TraceRun {
	pending := make(map[string]struct{}, len(placeholders))
	for _, p := range placeholders {
		pending[p] = struct{}{}
	}

	out := make([]model.TraceRun, len(runs))
	for i, run := range runs {
		hops := ValidHops(run.Hops)
		for j := range hops {
			_, stale := pending[hops[j].ResolvedLocation]
			if hops[j].ResolvedLocation != "" && !stale {
				continue
			}
			if loc == nil {
				continue
			}
			if label, ok := loc.Locate(hops[j].IP); ok {
				hops[j].ResolvedLocation = label
			}
		}
		run.Hops = hops
		out[i] = run
	}
	return out
}

// LatestByTarget keeps the newest run of each target, ordered by target.
func LatestByTarget(runs []model.TraceRun) []model.TraceRun {
	latest := make(map[string]model.TraceRun)
	for _, r := range runs {
		cur, ok := latest[r.Target]
		if !ok || r.Timestamp.After(cur.Timestamp) {
			latest[r.Target] = r
		}
	}
	out := make([]model.TraceRun, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}
