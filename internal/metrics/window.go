package metrics

import (
	"errors"
	"sort"
	"time"

	"probedash/internal/model"
)

// ErrEmptyWindow is returned for windows whose end is not after their start.
var ErrEmptyWindow = errors.New("window end must be after start")

// Window is the half-open time range [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LastDays returns the window of the n days ending at now.
func LastDays(now time.Time, days int) Window {
	return Window{Start: now.AddDate(0, 0, -days), End: now}
}

// Previous returns the window of equal length that ends where w starts.
func (w Window) Previous() Window {
	return Window{Start: w.Start.Add(-w.End.Sub(w.Start)), End: w.Start}
}

// Contains reports whether ts falls in [Start, End). Zero timestamps never do.
func (w Window) Contains(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// Validate rejects empty or inverted windows.
func (w Window) Validate() error {
	if !w.End.After(w.Start) {
		return ErrEmptyWindow
	}
	return nil
}

// Filter returns the records whose timestamp falls inside w.
func (w Window) Filter(records []model.ProbeRecord) []model.ProbeRecord {
	out := make([]model.ProbeRecord, 0, len(records))
	for _, r := range records {
		if w.Contains(r.Timestamp) {
			out = append(out, r)
		}
	}
	return out
}

// Partition splits records across windows. Windows must not overlap; each
// record lands in the first window containing it, or nowhere.
func Partition(records []model.ProbeRecord, windows ...Window) [][]model.ProbeRecord {
	out := make([][]model.ProbeRecord, len(windows))
	for _, r := range records {
		for i, w := range windows {
			if w.Contains(r.Timestamp) {
				out[i] = append(out[i], r)
				break
			}
		}
	}
	return out
}

// ForHost keeps the records of one host; an empty host keeps everything.
func ForHost(records []model.ProbeRecord, host string) []model.ProbeRecord {
	if host == "" {
		return records
	}
	out := make([]model.ProbeRecord, 0, len(records))
	for _, r := range records {
		if r.Host == host {
			out = append(out, r)
		}
	}
	return out
}

// Span returns the earliest and latest valid timestamps among records.
func Span(records []model.ProbeRecord) (from, to time.Time, ok bool) {
	for _, r := range records {
		if !r.HasTimestamp() {
			continue
		}
		if !ok || r.Timestamp.Before(from) {
			from = r.Timestamp
		}
		if !ok || r.Timestamp.After(to) {
			to = r.Timestamp
		}
		ok = true
	}
	return from, to, ok
}

// Hosts returns the distinct hosts in records, sorted.
func Hosts(records []model.ProbeRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.Host] = struct{}{}
	}
	hosts := make([]string, 0, len(seen))
	for h := range seen {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}
