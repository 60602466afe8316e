package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probedash/internal/dashboard"
	"probedash/internal/metrics"
	"probedash/internal/model"
	"probedash/internal/store"
)

var at = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func writeExport(t *testing.T) string {
	t.Helper()

	records := []model.ProbeRecord{
		{
			Host: "10.0.0.1", Region: "Tokyo", Timestamp: at.AddDate(0, 0, -2), Succeeded: true,
			AvgLatencyMs: model.Float(80), MinLatencyMs: model.Float(70), MaxLatencyMs: model.Float(90),
		},
		{
			Host: "10.0.0.2", Region: "Paris", Timestamp: at.AddDate(0, 0, -1),
			PacketLossCount: 10, ErrorMessage: "timeout",
		},
	}
	path := filepath.Join(t.TempDir(), "export.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, metrics.WriteCSV(f, records))
	require.NoError(t, f.Close())
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "--log-level", "error"}, args...))
	require.NoError(t, root.ExecuteContext(context.Background()))
	return out.String()
}

func TestReport_FromCSV(t *testing.T) {
	path := writeExport(t)

	out := run(t, "report", "--csv", path, "--at", at.Format(time.RFC3339))
	assert.Contains(t, out, "tests=2 uptime=50.0%")
	assert.Contains(t, out, "latency avg=80.0ms (N/A)")
	assert.Contains(t, out, "Anomalies")
	assert.Contains(t, out, "10.0.0.2")
	assert.Contains(t, out, "timeout")
}

func TestReport_JSON(t *testing.T) {
	path := writeExport(t)

	out := run(t, "report", "--csv", path, "--at", at.Format(time.RFC3339), "--json")

	var d dashboard.Dashboard
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, 2, d.Overview.TestCount)
	require.Len(t, d.Comparison, 1)
	assert.Equal(t, "10.0.0.1", d.Comparison[0].Host)
}

func runErr(t *testing.T, args ...string) error {
	t.Helper()

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "--log-level", "error"}, args...))
	return root.ExecuteContext(context.Background())
}

func TestReport_RejectsBadTime(t *testing.T) {
	path := writeExport(t)

	err := runErr(t, "report", "--csv", path, "--at", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --at")
}

func TestReport_CSVWithUnparseableRow(t *testing.T) {
	path := writeExport(t)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not a time,10.0.0.3,Oslo,1,20,18,22,0,,\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out := run(t, "report", "--csv", path, "--at", at.Format(time.RFC3339))
	assert.Contains(t, out, "tests=2 uptime=50.0%")
}

func TestReport_HostColumns(t *testing.T) {
	t.Parallel()

	d := &dashboard.Dashboard{
		Uptime: []metrics.HostSummary{
			{Host: "10.0.0.1", Region: "Tokyo", MetricWindow: metrics.MetricWindow{Count: 4, UptimeRate: 75, PacketLossRate: 27.5, StabilityIndex: 82, StabilityKnown: true}},
			{Host: "10.0.0.2", Region: "Paris", MetricWindow: metrics.MetricWindow{Count: 1, PacketLossRate: 100}},
		},
		Comparison: []metrics.HostSummary{
			{Host: "10.0.0.1", Region: "Tokyo", MetricWindow: metrics.MetricWindow{MeanLatency: 80, PacketLossRate: 27.5}},
		},
	}
	var buf bytes.Buffer
	printReport(&buf, d)

	rows := map[string][]string{}
	for _, line := range strings.Split(buf.String(), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.HasPrefix(fields[0], "10.0.0.") {
			if _, dup := rows[fields[0]]; !dup {
				rows[fields[0]] = fields
			}
		}
	}
	assert.Equal(t, []string{"10.0.0.1", "Tokyo", "75.0%", "27.5%", "82.0", "4"}, rows["10.0.0.1"])
	assert.Equal(t, []string{"10.0.0.2", "Paris", "0.0%", "100.0%", "n/a", "1"}, rows["10.0.0.2"])
	assert.Contains(t, buf.String(), "JITTER  LOSS")
}

func TestLocalCommands_RejectRemote(t *testing.T) {
	for _, args := range [][]string{
		{"--remote", "http://127.0.0.1:1", "export", "csv", "--out", filepath.Join(t.TempDir(), "out.csv")},
		{"--remote", "http://127.0.0.1:1", "targets", "--out", filepath.Join(t.TempDir(), "targets.yaml")},
		{"--remote", "http://127.0.0.1:1", "serve"},
	} {
		err := runErr(t, args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "cannot be combined with --remote", args)
	}
}

func TestCharts_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/charts/uptime" {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"chart: no data"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	out := run(t, "--remote", srv.URL, "charts", "--out", dir)
	assert.Contains(t, out, "uptime.png")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "uptime.png", entries[0].Name())
}

func TestPrintHosts_MarksTargetsWithoutData(t *testing.T) {
	t.Parallel()

	targets := &store.Targets{Targets: []model.Target{
		{Host: "10.0.0.1", Region: "Tokyo"},
		{Host: "10.0.0.9", Region: "Lima"},
	}}
	var buf bytes.Buffer
	printHosts(&buf, []model.Target{{Host: "10.0.0.1"}, {Host: "10.0.0.2", Region: "Paris"}}, targets)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"10.0.0.1", "Tokyo", "yes"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"10.0.0.2", "Paris", "yes"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"10.0.0.9", "Lima", "no"}, strings.Fields(lines[3]))
}

func TestRecordSource_AppliesFilter(t *testing.T) {
	t.Parallel()

	src := recordSource{
		{Host: "a", Timestamp: at.Add(-time.Hour)},
		{Host: "b", Timestamp: at.Add(-time.Hour)},
		{Host: "a", Timestamp: at},
		{Host: "a"},
	}
	got, err := src.Probes(context.Background(), store.Filter{Since: at.Add(-2 * time.Hour), Until: at, Host: "a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Timestamp.Equal(at.Add(-time.Hour)))
}

func TestPrintTraces(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printTraces(&buf, []model.TraceRun{{
		Target:    "8.8.8.8",
		Timestamp: at,
		Hops:      []model.TraceHop{{HopIndex: 1, IP: "192.168.1.1", ResolvedLocation: "Private - RFC1918 - Local Network"}},
	}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "8.8.8.8  2024-05-15 12:00:00"))
	assert.Contains(t, lines[1], "192.168.1.1")
}
