package metrics

import (
	"fmt"
	"strconv"
)

// Direction classifies a trend.
type Direction string

const (
	DirectionUp          Direction = "up"
	DirectionDown        Direction = "down"
	DirectionFlat        Direction = "flat"
	DirectionUnavailable Direction = "unavailable"
)

// Trend compares a metric between the current and the previous period.
type Trend struct {
	PercentChange *float64  `json:"percent_change"`
	Direction     Direction `json:"direction"`
}

// ComputeTrend returns the percent change from previous to current, rounded
// to one decimal. A missing or zero baseline makes the trend unavailable.
func ComputeTrend(current float64, previous *float64) Trend {
	if previous == nil || *previous == 0 || !isFinite(*previous) || !isFinite(current) {
		return Trend{Direction: DirectionUnavailable}
	}
	change := round1((current - *previous) / *previous * 100)
	t := Trend{PercentChange: &change}
	switch {
	case change > 0:
		t.Direction = DirectionUp
	case change < 0:
		t.Direction = DirectionDown
	default:
		t.Direction = DirectionFlat
	}
	return t
}

// Text renders the trend the way the overview cards show it.
func (t Trend) Text() string {
	if t.PercentChange == nil || t.Direction == DirectionUnavailable {
		return "N/A"
	}
	v := *t.PercentChange
	formatted := strconv.FormatFloat(v, 'f', 1, 64)
	if v > 0 {
		return fmt.Sprintf("+%s%%", formatted)
	}
	if v == 0 {
		return "0.0%"
	}
	return formatted + "%"
}

// String implements fmt.Stringer.
func (t Trend) String() string {
	return t.Text()
}
