// Package dashboard runs one render cycle: load the snapshot, aggregate,
// and hand a fully materialized Dashboard to the presentation layer.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"probedash/internal/config"
	"probedash/internal/metrics"
	"probedash/internal/model"
	"probedash/internal/store"
	"probedash/internal/trace"
)

// ErrNoSource is returned when a Builder is created without a data source.
var ErrNoSource = errors.New("dashboard: nil source")

// Source supplies records from the snapshot.
type Source interface {
	Probes(ctx context.Context, f store.Filter) ([]model.ProbeRecord, error)
	LatestTraces(ctx context.Context) ([]model.TraceRun, error)
}

// PendingLocations are the labels the recorder stores for hops it could not
// resolve; they are replaced when the locator knows better.
var PendingLocations = []string{
	"查询中...", "查询失败", "查询超时", "查询错误", "查询出错", "查询异常", "解析失败", "未知地点",
}

// Dashboard is everything one page render needs.
type Dashboard struct {
	GeneratedAt   time.Time               `json:"generated_at"`
	Host          string                  `json:"host,omitempty"`
	Overview      metrics.Overview        `json:"overview"`
	OverallUptime float64                 `json:"overall_uptime"`
	Distribution  []metrics.LatencyBucket `json:"distribution"`
	Uptime        []metrics.HostSummary   `json:"uptime"`
	Jitter        []metrics.HostSummary   `json:"jitter"`
	Comparison    []metrics.HostSummary   `json:"comparison"`
	Stability     []metrics.HostSummary   `json:"stability"`
	Anomalies     []metrics.AnomalyGroup  `json:"anomalies"`
	Daily         metrics.DailySeries     `json:"daily"`
	Traces        []model.TraceRun        `json:"traces"`
}

// Builder owns the collaborators of a render cycle.
type Builder struct {
	source  Source
	locator trace.Locator
	targets *store.Targets
	cfg     config.Config
	logger  logrus.FieldLogger
}

// NewBuilder validates its collaborators. locator and targets may be nil.
func NewBuilder(source Source, locator trace.Locator, targets *store.Targets, cfg config.Config, logger logrus.FieldLogger) (*Builder, error) {
	if source == nil {
		return nil, ErrNoSource
	}
	config.ApplyDefaults(&cfg)
	if cfg.PeriodDays <= 0 || cfg.TrendDays <= 0 {
		return nil, fmt.Errorf("%w: period_days and trend_days must be positive", config.ErrInvalid)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Builder{source: source, locator: locator, targets: targets, cfg: cfg, logger: logger}, nil
}

// Build loads what the windows ending at now need and aggregates it. host
// narrows the daily series; an empty host covers every host.
func (b *Builder) Build(ctx context.Context, now time.Time, host string) (*Dashboard, error) {
	lookback := max(b.cfg.TrendDays, 2*b.cfg.PeriodDays)
	filter := store.Filter{Since: now.AddDate(0, 0, -lookback), Until: now}

	var (
		records []model.ProbeRecord
		runs    []model.TraceRun
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = b.source.Probes(gctx, filter)
		if err != nil {
			return fmt.Errorf("load probes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		runs, err = b.source.LatestTraces(gctx)
		if err != nil {
			// older snapshots have no traceroute table
			b.logger.WithError(err).Warn("traceroute results unavailable")
			runs = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		b.logger.WithError(err).Error("dashboard load failed")
		return nil, err
	}

	b.logger.WithFields(logrus.Fields{"rows": len(records), "traces": len(runs), "host": host}).Debug("snapshot loaded")
	return b.FromRecords(now, host, records, runs)
}

// FromRecords aggregates already loaded records.
func (b *Builder) FromRecords(now time.Time, host string, records []model.ProbeRecord, runs []model.TraceRun) (*Dashboard, error) {
	records = b.labelRegions(records)

	overview, err := metrics.BuildOverview(records, now, b.cfg.PeriodDays)
	if err != nil {
		return nil, err
	}
	period := overview.Current
	recent := period.Filter(records)

	hosts := metrics.SummarizeByHost(records, period)
	for i := range hosts {
		if hosts[i].Region == "" {
			hosts[i].Region = b.targets.Region(hosts[i].Host, b.cfg.UnknownRegion)
		}
	}

	d := &Dashboard{
		GeneratedAt:   now,
		Host:          host,
		Overview:      overview,
		OverallUptime: metrics.OverallUptime(hosts),
		Distribution:  metrics.LatencyDistribution(recent),
		Uptime:        sorted(hosts, metrics.SortByUptime),
		Jitter:        sorted(withLatency(hosts), metrics.SortByJitter),
		Comparison:    sorted(withLatency(hosts), metrics.SortByLatency),
		Stability:     sorted(withStability(hosts), metrics.SortByStability),
		Anomalies:     metrics.Anomalies(records, period, b.cfg.TimeoutLabel),
		Daily:         metrics.Daily(records, metrics.LastDays(now, b.cfg.TrendDays), host),
		Traces:        trace.Enrich(runs, b.locator, PendingLocations...),
	}
	return d, nil
}

func (b *Builder) labelRegions(records []model.ProbeRecord) []model.ProbeRecord {
	if b.targets == nil {
		return records
	}
	out := make([]model.ProbeRecord, len(records))
	for i, r := range records {
		if r.Region == "" {
			r.Region = b.targets.Region(r.Host, "")
		}
		out[i] = r
	}
	return out
}

func sorted(hosts []metrics.HostSummary, order func([]metrics.HostSummary)) []metrics.HostSummary {
	out := append([]metrics.HostSummary(nil), hosts...)
	order(out)
	return out
}

func withLatency(hosts []metrics.HostSummary) []metrics.HostSummary {
	out := make([]metrics.HostSummary, 0, len(hosts))
	for _, h := range hosts {
		if h.HasLatency() {
			out = append(out, h)
		}
	}
	return out
}

func withStability(hosts []metrics.HostSummary) []metrics.HostSummary {
	out := make([]metrics.HostSummary, 0, len(hosts))
	for _, h := range hosts {
		if h.StabilityKnown {
			out = append(out, h)
		}
	}
	return out
}
