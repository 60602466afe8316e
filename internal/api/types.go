package api

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"probedash/internal/metrics"
	"probedash/internal/model"
	"probedash/internal/store"
)

// DateLayout is the format of the from/to result filters.
const DateLayout = "2006-01-02"

// ResultRow is one probe attempt as shown in the result table.
type ResultRow struct {
	ID              int64     `json:"id"`
	Host            string    `json:"host"`
	Region          string    `json:"region"`
	Timestamp       time.Time `json:"timestamp"`
	Succeeded       bool      `json:"succeeded"`
	AvgLatencyMs    *float64  `json:"avg_latency_ms"`
	MinLatencyMs    *float64  `json:"min_latency_ms"`
	MaxLatencyMs    *float64  `json:"max_latency_ms"`
	PacketLossCount int       `json:"packet_loss"`
	LossRate        float64   `json:"loss_rate"`
	Samples         []float64 `json:"samples,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// NewResultRow converts a record; probeCount is the number of pings per attempt.
func NewResultRow(r model.ProbeRecord, probeCount int) ResultRow {
	return ResultRow{
		ID:              r.ID,
		Host:            r.Host,
		Region:          r.Region,
		Timestamp:       r.Timestamp,
		Succeeded:       r.Succeeded,
		AvgLatencyMs:    r.AvgLatencyMs,
		MinLatencyMs:    r.MinLatencyMs,
		MaxLatencyMs:    r.MaxLatencyMs,
		PacketLossCount: r.PacketLossCount,
		LossRate:        metrics.PartialLossRate(r, probeCount),
		Samples:         r.RawSamples,
		Error:           r.ErrorMessage,
	}
}

// NewResultRows converts records in order.
func NewResultRows(records []model.ProbeRecord, probeCount int) []ResultRow {
	out := make([]ResultRow, len(records))
	for i, r := range records {
		out[i] = NewResultRow(r, probeCount)
	}
	return out
}

// ResultsQuery selects a page of the result table.
type ResultsQuery struct {
	Page int
	Size int
	From string // inclusive day, YYYY-MM-DD
	To   string // inclusive day, YYYY-MM-DD
	Host string
}

// Values encodes the query for the results endpoint.
func (q ResultsQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.From != "" {
		v.Set("from", q.From)
	}
	if q.To != "" {
		v.Set("to", q.To)
	}
	if q.Host != "" {
		v.Set("host", q.Host)
	}
	return v
}

// Filter converts the day bounds to a snapshot filter in loc. The To day is
// included whole.
func (q ResultsQuery) Filter(loc *time.Location) (store.Filter, error) {
	f := store.Filter{Host: q.Host}
	if q.From != "" {
		from, err := time.ParseInLocation(DateLayout, q.From, loc)
		if err != nil {
			return f, fmt.Errorf("invalid from date %q: %w", q.From, err)
		}
		f.Since = from
	}
	if q.To != "" {
		to, err := time.ParseInLocation(DateLayout, q.To, loc)
		if err != nil {
			return f, fmt.Errorf("invalid to date %q: %w", q.To, err)
		}
		f.Until = to.AddDate(0, 0, 1)
	}
	if !f.Since.IsZero() && !f.Until.IsZero() && !f.Until.After(f.Since) {
		return f, fmt.Errorf("to date %s is before from date %s", q.To, q.From)
	}
	return f, nil
}

// ResultsResponse is one page of the result table.
type ResultsResponse struct {
	Rows  []ResultRow `json:"rows"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
	Total int         `json:"total"`
	Pages int         `json:"pages"`
	// bounds of the whole snapshot, for the date pickers
	MinDate string `json:"min_date,omitempty"`
	MaxDate string `json:"max_date,omitempty"`
}

// LatestResponse holds the newest attempt of each host.
type LatestResponse struct {
	Rows       []ResultRow `json:"rows"`
	LastUpdate time.Time   `json:"last_update"`
}

// HostsResponse lists the probed hosts.
type HostsResponse struct {
	Hosts []model.Target `json:"hosts"`
}

// TracesResponse holds the newest traceroute of each target.
type TracesResponse struct {
	Traces []model.TraceRun `json:"traces"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Snapshot string `json:"snapshot"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
