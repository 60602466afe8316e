package model

import "time"

// UnresolvedHop is the traceroute sentinel for a hop that timed out.
const UnresolvedHop = "*"

// ProbeRecord is one recorded ping attempt against a host.
type ProbeRecord struct {
	ID              int64
	Host            string
	Region          string
	Timestamp       time.Time // zero when the stored value could not be parsed
	Succeeded       bool
	AvgLatencyMs    *float64
	MinLatencyMs    *float64
	MaxLatencyMs    *float64
	PacketLossCount int
	RawSamples      []float64
	ErrorMessage    string
}

// HasTimestamp reports whether the record can take part in windowed aggregates.
func (r ProbeRecord) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}

// TraceHop is a single hop of a traceroute attempt.
type TraceHop struct {
	HopIndex         int    `json:"hop"`
	IP               string `json:"ip"`
	ResolvedLocation string `json:"location,omitempty"`
}

// Unresolved reports whether the hop carries no usable address.
func (h TraceHop) Unresolved() bool {
	return h.IP == "" || h.IP == UnresolvedHop
}

// TraceRun is one traceroute attempt towards a target.
type TraceRun struct {
	Target    string     `json:"target"`
	Timestamp time.Time  `json:"timestamp"`
	Hops      []TraceHop `json:"hops"`
	Error     string     `json:"error,omitempty"`
}

// Target is a configured probe destination with its display label.
type Target struct {
	Host   string `yaml:"host" json:"host"`
	Region string `yaml:"region" json:"region"`
}

// Float returns a pointer to v; handy for optional latency fields.
func Float(v float64) *float64 {
	return &v
}
