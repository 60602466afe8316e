package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probedash/internal/config"
	"probedash/internal/logging"
	"probedash/internal/metrics"
	"probedash/internal/model"
	"probedash/internal/store"
)

type fakeSource struct {
	records  []model.ProbeRecord
	runs     []model.TraceRun
	probeErr error
	traceErr error
	filter   store.Filter
}

func (f *fakeSource) Probes(_ context.Context, filter store.Filter) ([]model.ProbeRecord, error) {
	f.filter = filter
	return f.records, f.probeErr
}

func (f *fakeSource) LatestTraces(context.Context) ([]model.TraceRun, error) {
	return f.runs, f.traceErr
}

type fakeLocator map[string]string

func (f fakeLocator) Locate(ip string) (string, bool) {
	label, ok := f[ip]
	return label, ok
}

func ok(host string, ts time.Time, avg, lo, hi float64) model.ProbeRecord {
	return model.ProbeRecord{
		Host: host, Timestamp: ts, Succeeded: true,
		AvgLatencyMs: model.Float(avg), MinLatencyMs: model.Float(lo), MaxLatencyMs: model.Float(hi),
	}
}

func fail(host string, ts time.Time, msg string) model.ProbeRecord {
	return model.ProbeRecord{Host: host, Timestamp: ts, PacketLossCount: 10, ErrorMessage: msg}
}

func TestBuild_AggregatesSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{
		records: []model.ProbeRecord{
			ok("10.0.0.1", now.AddDate(0, 0, -1), 80, 70, 90),
			ok("10.0.0.2", now.AddDate(0, 0, -2), 240, 200, 260),
			fail("10.0.0.2", now.AddDate(0, 0, -2), ""),
			ok("10.0.0.1", now.AddDate(0, 0, -10), 100, 90, 110),
			ok("10.0.0.1", now.AddDate(0, 0, -25), 60, 60, 60),
		},
		runs: []model.TraceRun{{
			Target: "10.0.0.1",
			Hops:   []model.TraceHop{{HopIndex: 1, IP: "192.168.1.1", ResolvedLocation: "查询中..."}, {HopIndex: 2, IP: "*"}},
		}},
	}
	targets := &store.Targets{Targets: []model.Target{{Host: "10.0.0.1", Region: "east"}}}
	b, err := NewBuilder(src, fakeLocator{"192.168.1.1": "Private - RFC1918 - Local Network"}, targets, config.Default(), logging.Discard())
	require.NoError(t, err)

	d, err := b.Build(context.Background(), now, "")
	require.NoError(t, err)

	assert.Equal(t, now.AddDate(0, 0, -30), src.filter.Since)
	assert.Equal(t, now, src.filter.Until)

	assert.Equal(t, 3, d.Overview.TestCount)
	assert.Equal(t, metrics.DirectionUp, d.Overview.LatencyTrend.Direction)
	assert.InDelta(t, 200.0/3, d.OverallUptime, 1e-9)

	require.Len(t, d.Uptime, 2)
	assert.Equal(t, "10.0.0.1", d.Uptime[0].Host)
	assert.Equal(t, "east", d.Uptime[0].Region)
	assert.Equal(t, "unknown", d.Uptime[1].Region)

	require.Len(t, d.Comparison, 2)
	assert.Equal(t, "10.0.0.1", d.Comparison[0].Host)

	require.Len(t, d.Stability, 2)
	assert.Equal(t, "10.0.0.1", d.Stability[0].Host)
	assert.InDelta(t, 75, d.Stability[0].StabilityIndex, 1e-9)
	assert.InDelta(t, 75, d.Stability[1].StabilityIndex, 1e-9)

	require.Len(t, d.Anomalies, 1)
	assert.Equal(t, []string{"timeout"}, d.Anomalies[0].ErrorLabels)

	require.Len(t, d.Distribution, 5)
	assert.Equal(t, 1, d.Distribution[1].Count)
	assert.Equal(t, 1, d.Distribution[3].Count)

	assert.Len(t, d.Daily.PacketLoss, 4)

	require.Len(t, d.Traces, 1)
	require.Len(t, d.Traces[0].Hops, 1)
	assert.Equal(t, "Private - RFC1918 - Local Network", d.Traces[0].Hops[0].ResolvedLocation)
}

func TestBuild_DailySeriesForOneHost(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{records: []model.ProbeRecord{
		ok("a", now.AddDate(0, 0, -1), 10, 10, 10),
		ok("b", now.AddDate(0, 0, -2), 20, 20, 20),
	}}
	b, err := NewBuilder(src, nil, nil, config.Default(), logging.Discard())
	require.NoError(t, err)

	d, err := b.Build(context.Background(), now, "b")
	require.NoError(t, err)
	require.Len(t, d.Daily.Latency, 1)
	assert.Equal(t, 20.0, d.Daily.Latency[0].Value)
	assert.Len(t, d.Uptime, 2)
}

func TestBuild_ProbeErrorFails(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk gone")
	b, err := NewBuilder(&fakeSource{probeErr: boom}, nil, nil, config.Default(), logging.Discard())
	require.NoError(t, err)

	_, err = b.Build(context.Background(), time.Now(), "")
	assert.ErrorIs(t, err, boom)
}

func TestBuild_MissingTracesAreTolerated(t *testing.T) {
	t.Parallel()

	b, err := NewBuilder(&fakeSource{traceErr: errors.New("no such table")}, nil, nil, config.Default(), logging.Discard())
	require.NoError(t, err)

	d, err := b.Build(context.Background(), time.Now(), "")
	require.NoError(t, err)
	assert.Empty(t, d.Traces)
	assert.Equal(t, metrics.DirectionUnavailable, d.Overview.LatencyTrend.Direction)
}

func TestNewBuilder_RequiresSource(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder(nil, nil, nil, config.Default(), nil)
	assert.ErrorIs(t, err, ErrNoSource)
}
