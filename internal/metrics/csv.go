package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"probedash/internal/model"
)

var csvHeader = []string{
	"timestamp",
	"host",
	"region",
	"success",
	"avg_latency",
	"min_latency",
	"max_latency",
	"packet_loss",
	"latencies",
	"error",
}

// WriteCSV writes probe records to CSV with a fixed column order.
func WriteCSV(w io.Writer, items []model.ProbeRecord) error {
	return writeCSV(w, items, true)
}

// AppendCSV appends records to path, writing the header only when the file
// is new or empty.
func AppendCSV(path string, items []model.ProbeRecord) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if err := writeCSV(file, items, info.Size() == 0); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}

func writeCSV(w io.Writer, items []model.ProbeRecord, header bool) error {
	writer := csv.NewWriter(w)

	if header {
		if err := writer.Write(csvHeader); err != nil {
			return err
		}
	}

	for _, r := range items {
		ts := ""
		if r.HasTimestamp() {
			ts = r.Timestamp.Format(time.RFC3339)
		}
		success := "0"
		if r.Succeeded {
			success = "1"
		}
		record := []string{
			ts,
			r.Host,
			r.Region,
			success,
			formatOptional(r.AvgLatencyMs),
			formatOptional(r.MinLatencyMs),
			formatOptional(r.MaxLatencyMs),
			strconv.Itoa(r.PacketLossCount),
			formatSamples(r.RawSamples),
			r.ErrorMessage,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

func formatSamples(samples []float64) string {
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = strconv.FormatFloat(s, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
