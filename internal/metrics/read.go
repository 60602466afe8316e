package metrics

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"probedash/internal/model"
)

// ReadCSV loads probe records from a CSV file written by WriteCSV or by the
// recorder. Naive timestamps are read in loc. Rows with an unparseable
// timestamp are kept with a zero Timestamp; short rows are skipped. Both are
// logged at debug when logger is set.
func ReadCSV(path string, loc *time.Location, logger logrus.FieldLogger) ([]model.ProbeRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readCSV(file, loc, logger)
}

func readCSV(r io.Reader, loc *time.Location, logger logrus.FieldLogger) ([]model.ProbeRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	start := 0
	if len(records[0]) > 0 && records[0][0] == "timestamp" {
		start = 1
	}

	items := make([]model.ProbeRecord, 0, len(records)-start)
	for i := start; i < len(records); i++ {
		rec := records[i]
		if len(rec) < len(csvHeader) {
			if logger != nil {
				logger.WithField("line", i+1).Debug("skipping short CSV row")
			}
			continue
		}
		ts := model.ParseTime(rec[0], loc)
		if ts.IsZero() && rec[0] != "" && logger != nil {
			logger.WithFields(logrus.Fields{"line": i + 1, "timestamp": rec[0]}).Debug("unparseable timestamp")
		}
		loss, _ := strconv.Atoi(rec[7])
		items = append(items, model.ProbeRecord{
			ID:              int64(i - start + 1),
			Timestamp:       ts,
			Host:            rec[1],
			Region:          rec[2],
			Succeeded:       rec[3] == "1" || strings.EqualFold(rec[3], "true"),
			AvgLatencyMs:    parseOptional(rec[4]),
			MinLatencyMs:    parseOptional(rec[5]),
			MaxLatencyMs:    parseOptional(rec[6]),
			PacketLossCount: loss,
			RawSamples:      ParseSamples(rec[8]),
			ErrorMessage:    rec[9],
		})
	}

	return items, nil
}

func parseOptional(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseSamples parses a comma separated latency list. Entries that are not
// numbers are skipped.
func ParseSamples(s string) []float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
