package model

import (
	"strings"
	"time"
)

// TimeLayout is how the recorder writes timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// ParseTime reads a recorded timestamp. Naive values are taken in loc, values
// with an offset keep it. Unparseable input yields the zero time.
func ParseTime(value string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05Z07:00"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	for _, layout := range []string{TimeLayout, "2006-01-02 15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts
		}
	}
	return time.Time{}
}
