package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"probedash/internal/dashboard"
	"probedash/internal/metrics"
	"probedash/internal/model"
	"probedash/internal/store"
)

type reportOptions struct {
	host    string
	at      string
	csvPath string
	asJSON  bool
}

func newReportCmd(a *app) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard for the last period",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.loadDashboard(cmd.Context(), opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}
			printReport(out, d)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.host, "host", "", "restrict the daily series to one host")
	cmd.Flags().StringVar(&opts.at, "at", "", "evaluate the windows as of this time (default now)")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "aggregate a CSV export instead of the snapshot")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) loadDashboard(ctx context.Context, opts *reportOptions) (*dashboard.Dashboard, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.remote != "" {
		if opts.at != "" || opts.csvPath != "" {
			return nil, errors.New("--at and --csv cannot be combined with --remote")
		}
		return a.client().Dashboard(ctx, opts.host)
	}

	now := time.Now().In(a.loc)
	if opts.at != "" {
		now = model.ParseTime(opts.at, a.loc)
		if now.IsZero() {
			return nil, fmt.Errorf("invalid --at time %q", opts.at)
		}
	}

	if opts.csvPath != "" {
		records, err := metrics.ReadCSV(opts.csvPath, a.loc, a.logger)
		if err != nil {
			return nil, err
		}
		b, err := a.newBuilder(recordSource(records), nil)
		if err != nil {
			return nil, err
		}
		return b.Build(ctx, now, opts.host)
	}

	snap, err := a.openSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	reader := a.openGeo()
	defer reader.Close()

	b, err := a.newBuilder(snap, reader)
	if err != nil {
		return nil, err
	}
	return b.Build(ctx, now, opts.host)
}

// recordSource serves records already in memory, such as a CSV export.
type recordSource []model.ProbeRecord

func (s recordSource) Probes(_ context.Context, f store.Filter) ([]model.ProbeRecord, error) {
	out := make([]model.ProbeRecord, 0, len(s))
	for _, r := range s {
		if r.Timestamp.IsZero() {
			continue
		}
		if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && !r.Timestamp.Before(f.Until) {
			continue
		}
		if f.Host != "" && r.Host != f.Host {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s recordSource) LatestTraces(context.Context) ([]model.TraceRun, error) {
	return nil, nil
}

func printReport(w io.Writer, d *dashboard.Dashboard) {
	ov := d.Overview
	cur := ov.CurrentMetrics

	fmt.Fprintf(w, "period %s to %s\n", ov.Current.Start.Format(model.TimeLayout), ov.Current.End.Format(model.TimeLayout))
	fmt.Fprintf(w, "tests=%d uptime=%.1f%%\n", ov.TestCount, d.OverallUptime)
	fmt.Fprintf(w, "latency avg=%s (%s)\n", latencyText(cur), ov.LatencyTrend.Text())
	fmt.Fprintf(w, "packet loss=%.1f%% (%s)\n", cur.PacketLossRate, ov.LossTrend.Text())
	fmt.Fprintf(w, "stability=%s (%s)\n", stabilityText(cur), ov.StabilityTrend.Text())

	section(w, "Uptime")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tREGION\tUPTIME\tLOSS\tSTABILITY\tTESTS")
	for _, h := range d.Uptime {
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t%.1f%%\t%s\t%d\n",
			h.Host, h.Region, h.UptimeRate, h.PacketLossRate, stabilityText(h.MetricWindow), h.Count)
	}
	tw.Flush()

	section(w, "Latency")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tREGION\tAVG\tP95\tMIN\tMAX\tJITTER\tLOSS")
	for _, h := range d.Comparison {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.2f\t%.1f%%\n",
			h.Host, h.Region, h.MeanLatency, h.P95Latency, h.MinLatency, h.MaxLatency, h.Jitter, h.PacketLossRate)
	}
	tw.Flush()

	section(w, "Distribution")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, b := range d.Distribution {
		fmt.Fprintf(tw, "%s\t%d\n", b.Label, b.Count)
	}
	tw.Flush()

	if len(d.Anomalies) > 0 {
		section(w, "Anomalies")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "HOST\tREGION\tCOUNT\tLAST\tERRORS")
		for _, g := range d.Anomalies {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				g.Host, g.Region, g.Count, g.LastAnomaly.Format(model.TimeLayout), strings.Join(g.ErrorLabels, "; "))
		}
		tw.Flush()
	}

	if len(d.Traces) > 0 {
		section(w, "Traces")
		printTraces(w, d.Traces)
	}
}

func printTraces(w io.Writer, runs []model.TraceRun) {
	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s", run.Target, run.Timestamp.Format(model.TimeLayout))
		if run.Error != "" {
			fmt.Fprintf(w, "  error=%s", run.Error)
		}
		fmt.Fprintln(w)
		for _, hop := range run.Hops {
			fmt.Fprintf(w, "  %2d  %-15s  %s\n", hop.HopIndex, hop.IP, hop.ResolvedLocation)
		}
	}
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", title)
}

func latencyText(m metrics.MetricWindow) string {
	if !m.HasLatency() {
		return "n/a"
	}
	return fmt.Sprintf("%.1fms", m.MeanLatency)
}

func stabilityText(m metrics.MetricWindow) string {
	if !m.StabilityKnown {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", m.StabilityIndex)
}
