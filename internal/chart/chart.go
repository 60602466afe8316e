// Package chart renders dashboard views as PNG images.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"probedash/internal/dashboard"
	"probedash/internal/metrics"
)

var (
	// ErrNoData is returned when a view has nothing to draw.
	ErrNoData = errors.New("chart: no data")
	// ErrUnknownChart is returned by Render for an unregistered name.
	ErrUnknownChart = errors.New("chart: unknown chart")
)

const (
	width  = 960
	height = 420
)

type renderFunc func(w io.Writer, d *dashboard.Dashboard) error

var renderers = map[string]renderFunc{
	"distribution": func(w io.Writer, d *dashboard.Dashboard) error { return Distribution(w, d.Distribution) },
	"latency":      func(w io.Writer, d *dashboard.Dashboard) error { return DailyLatency(w, d.Daily.Latency) },
	"loss":         func(w io.Writer, d *dashboard.Dashboard) error { return DailyLoss(w, d.Daily.PacketLoss) },
	"uptime":       func(w io.Writer, d *dashboard.Dashboard) error { return Uptime(w, d.Uptime) },
	"jitter":       func(w io.Writer, d *dashboard.Dashboard) error { return Jitter(w, d.Jitter) },
	"comparison":   func(w io.Writer, d *dashboard.Dashboard) error { return Comparison(w, d.Comparison) },
	"host-loss":    func(w io.Writer, d *dashboard.Dashboard) error { return HostLoss(w, d.Uptime) },
	"stability":    func(w io.Writer, d *dashboard.Dashboard) error { return Stability(w, d.Stability) },
}

// Names lists the charts Render knows, sorted.
func Names() []string {
	names := make([]string, 0, len(renderers))
	for name := range renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render draws the named chart of d as PNG.
func Render(w io.Writer, name string, d *dashboard.Dashboard) error {
	fn, ok := renderers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChart, name)
	}
	return fn(w, d)
}

// Distribution draws the latency histogram.
func Distribution(w io.Writer, buckets []metrics.LatencyBucket) error {
	bars := make([]chart.Value, 0, len(buckets))
	for _, b := range buckets {
		bars = append(bars, chart.Value{Label: b.Label, Value: float64(b.Count)})
	}
	return renderBars(w, "Latency distribution (tests)", bars, 0)
}

// Uptime draws per-host availability, best first.
func Uptime(w io.Writer, hosts []metrics.HostSummary) error {
	bars := make([]chart.Value, 0, len(hosts))
	for _, h := range hosts {
		bars = append(bars, chart.Value{Label: h.Host, Value: h.UptimeRate})
	}
	return renderBars(w, "Uptime (%)", bars, 100)
}

// Jitter draws per-host latency standard deviation.
func Jitter(w io.Writer, hosts []metrics.HostSummary) error {
	bars := make([]chart.Value, 0, len(hosts))
	for _, h := range hosts {
		bars = append(bars, chart.Value{Label: h.Host, Value: h.Jitter})
	}
	return renderBars(w, "Jitter (ms)", bars, 0)
}

// Comparison draws per-host mean latency, fastest first.
func Comparison(w io.Writer, hosts []metrics.HostSummary) error {
	bars := make([]chart.Value, 0, len(hosts))
	for _, h := range hosts {
		bars = append(bars, chart.Value{Label: h.Host, Value: h.MeanLatency})
	}
	return renderBars(w, "Mean latency (ms)", bars, 0)
}

// HostLoss draws per-host packet loss.
func HostLoss(w io.Writer, hosts []metrics.HostSummary) error {
	bars := make([]chart.Value, 0, len(hosts))
	for _, h := range hosts {
		bars = append(bars, chart.Value{Label: h.Host, Value: h.PacketLossRate})
	}
	return renderBars(w, "Packet loss (%)", bars, 100)
}

// Stability plots each host's stability index; the marker grows with the
// number of tests behind it.
func Stability(w io.Writer, hosts []metrics.HostSummary) error {
	if len(hosts) == 0 {
		return ErrNoData
	}
	most := 1
	for _, h := range hosts {
		most = max(most, h.Count)
	}

	ticks := make([]chart.Tick, 0, len(hosts))
	series := make([]chart.Series, 0, len(hosts))
	for i, h := range hosts {
		x := float64(i + 1)
		ticks = append(ticks, chart.Tick{Value: x, Label: h.Host})
		// two identical points: a series needs a range
		series = append(series, chart.ContinuousSeries{
			Name:    h.Host,
			XValues: []float64{x, x},
			YValues: []float64{h.StabilityIndex, h.StabilityIndex},
			Style: chart.Style{
				StrokeWidth: 0,
				DotWidth:    4 + 12*float64(h.Count)/float64(most),
				DotColor:    chart.ColorBlue,
			},
		})
	}

	ch := chart.Chart{
		Title:      "Stability index",
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Range: &chart.ContinuousRange{Min: 0.5, Max: float64(len(hosts)) + 0.5}, Ticks: ticks},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: 100}},
		Series:     series,
	}
	return ch.Render(chart.PNG, w)
}

// DailyLatency draws the daily mean latency line.
func DailyLatency(w io.Writer, points []metrics.SeriesPoint) error {
	return renderLine(w, "Daily mean latency (ms)", points, 0)
}

// DailyLoss draws the daily packet loss line.
func DailyLoss(w io.Writer, points []metrics.SeriesPoint) error {
	return renderLine(w, "Daily packet loss (%)", points, 100)
}

// renderBars draws bars; a positive ceiling fixes the top of the axis.
func renderBars(w io.Writer, title string, bars []chart.Value, ceiling float64) error {
	if len(bars) == 0 {
		return ErrNoData
	}
	top := ceiling
	if top <= 0 {
		top = axisTop(valuesOf(bars))
	}
	bc := chart.BarChart{
		Title:      title,
		Width:      width,
		Height:     height,
		BarWidth:   max(8, min(60, (width-120)/len(bars)-10)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: top}},
		Bars:       bars,
	}
	return bc.Render(chart.PNG, w)
}

func renderLine(w io.Writer, title string, points []metrics.SeriesPoint, ceiling float64) error {
	if len(points) == 0 {
		return ErrNoData
	}
	xs := make([]time.Time, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		day, err := time.Parse("2006-01-02", p.Day)
		if err != nil {
			continue
		}
		xs = append(xs, day)
		ys = append(ys, p.Value)
	}
	if len(xs) == 0 {
		return ErrNoData
	}
	if len(xs) == 1 {
		// a series needs two x values to span a range
		xs = append(xs, xs[0].Add(24*time.Hour))
		ys = append(ys, ys[0])
	}

	top := ceiling
	if top <= 0 {
		top = axisTop(ys)
	}
	ch := chart.Chart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{ValueFormatter: dayFormatter},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: top}},
		Series: []chart.Series{chart.TimeSeries{
			Name:    title,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2, DotWidth: 3, DotColor: chart.ColorBlue},
		}},
	}
	return ch.Render(chart.PNG, w)
}

// dayFormatter labels time axis ticks as month-day.
func dayFormatter(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("01-02")
	case float64:
		return time.Unix(0, int64(t)).UTC().Format("01-02")
	}
	return ""
}

func valuesOf(bars []chart.Value) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Value
	}
	return out
}

// axisTop leaves headroom above the largest value and never returns 0.
func axisTop(values []float64) float64 {
	top := 0.0
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v > top {
			top = v
		}
	}
	if top == 0 {
		return 1
	}
	return top * 1.1
}
