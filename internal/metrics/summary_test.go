package metrics

import (
	"testing"
	"time"

	"probedash/internal/model"
)

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	got := Summarize(nil)
	if got != (MetricWindow{}) {
		t.Fatalf("summary=%+v", got)
	}
	if got.StabilityKnown || got.HasLatency() {
		t.Fatalf("empty window must report no data")
	}
}

func TestSummarize_Basic(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	a := probe(10, 9, 11)
	a.Timestamp = now.Add(-10 * time.Second)
	b := probe(30, 27, 33)
	b.Timestamp = now.Add(-5 * time.Second)
	failed := model.ProbeRecord{Timestamp: now, PacketLossCount: 10, ErrorMessage: "timeout"}

	s := Summarize([]model.ProbeRecord{a, b, failed})
	if s.Count != 3 || s.Succeeded != 2 || s.LatencySamples != 2 {
		t.Fatalf("counts=%+v", s)
	}
	if s.MeanLatency != 20 {
		t.Fatalf("mean=%v", s.MeanLatency)
	}
	if s.MinLatency != 10 || s.MaxLatency != 30 || s.P95Latency != 30 {
		t.Fatalf("min/max/p95=%v/%v/%v", s.MinLatency, s.MaxLatency, s.P95Latency)
	}
	if !approx(s.PacketLossRate, 100.0/3) || !approx(s.UptimeRate, 200.0/3) {
		t.Fatalf("loss=%v uptime=%v", s.PacketLossRate, s.UptimeRate)
	}
	if !approx(s.Jitter, 10) {
		t.Fatalf("jitter=%v", s.Jitter)
	}
	if !s.StabilityKnown || !approx(s.DispersionRaw, 0.2) || !approx(s.StabilityIndex, 80) {
		t.Fatalf("stability=%+v", s)
	}
	if !s.From.Equal(a.Timestamp) || !s.To.Equal(now) {
		t.Fatalf("span=%v..%v", s.From, s.To)
	}
}

func TestSummarize_ZeroLatencyCountsOnlyForAvailability(t *testing.T) {
	t.Parallel()

	records := []model.ProbeRecord{
		probe(40, 40, 40),
		{Succeeded: true, AvgLatencyMs: model.Float(0)},
		{Succeeded: true},
		{Succeeded: false},
	}
	s := Summarize(records)
	if s.MeanLatency != 40 || s.LatencySamples != 1 {
		t.Fatalf("mean=%v samples=%d", s.MeanLatency, s.LatencySamples)
	}
	if s.UptimeRate != 75 || s.PacketLossRate != 25 {
		t.Fatalf("uptime=%v loss=%v", s.UptimeRate, s.PacketLossRate)
	}
}

func TestSummarize_InvalidRecordSkipped(t *testing.T) {
	t.Parallel()

	records := []model.ProbeRecord{
		probe(20, 18, 22),
		probe(500, 600, 400),
	}
	s := Summarize(records)
	if s.MeanLatency != 20 || s.Jitter != 0 {
		t.Fatalf("mean=%v jitter=%v", s.MeanLatency, s.Jitter)
	}
	if s.UptimeRate != 100 || s.Count != 2 {
		t.Fatalf("uptime=%v count=%d", s.UptimeRate, s.Count)
	}
}

func TestSummarizeWindow_ExcludesZeroTimestamps(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	good := probe(10, 10, 10)
	good.Timestamp = now.Add(-time.Hour)
	broken := probe(90, 90, 90)

	s := SummarizeWindow([]model.ProbeRecord{good, broken}, LastDays(now, 7))
	if s.Count != 1 || s.MeanLatency != 10 {
		t.Fatalf("summary=%+v", s)
	}
}

func TestPartialLossRate(t *testing.T) {
	t.Parallel()

	ok := model.ProbeRecord{Succeeded: true, PacketLossCount: 3}
	if got := PartialLossRate(ok, 10); !approx(got, 30) {
		t.Fatalf("partial=%v", got)
	}
	if got := PartialLossRate(model.ProbeRecord{}, 10); got != 100 {
		t.Fatalf("failed=%v", got)
	}
	if got := PartialLossRate(ok, 0); got != 0 {
		t.Fatalf("no probe count=%v", got)
	}
}
