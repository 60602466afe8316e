// Package store reads probe measurements from a recorded SQLite snapshot.
// The snapshot is never written.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"probedash/internal/metrics"
	"probedash/internal/model"
	"probedash/internal/trace"
)

// ErrNoSnapshot is returned when the snapshot file does not exist.
var ErrNoSnapshot = errors.New("snapshot not found")

// ErrInvalidPage is returned for non-positive page sizes.
var ErrInvalidPage = errors.New("page size must be positive")

const probeColumns = `id, ip, region, timestamp, success, avg_latency, min_latency, max_latency, packet_loss, latencies, error`

// Snapshot is a read-only view over ping_results and traceroute_results.
type Snapshot struct {
	db     *sql.DB
	loc    *time.Location
	logger logrus.FieldLogger
}

// Filter narrows probe queries. Zero fields do not filter; Until is exclusive.
type Filter struct {
	Since time.Time
	Until time.Time
	Host  string
}

// Page is one page of the result table, newest first.
type Page struct {
	Records []model.ProbeRecord `json:"records"`
	Page    int                 `json:"page"`
	Size    int                 `json:"size"`
	Total   int                 `json:"total"`
	Pages   int                 `json:"pages"`
}

// Open opens the snapshot at path read-only. Naive timestamps are read in loc.
func Open(ctx context.Context, path string, loc *time.Location, logger logrus.FieldLogger) (*Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, path)
		}
		return nil, err
	}

	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return New(db, loc, logger), nil
}

// New wraps an existing handle.
func New(db *sql.DB, loc *time.Location, logger logrus.FieldLogger) *Snapshot {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Snapshot{db: db, loc: loc, logger: logger}
}

// Close releases the database handle.
func (s *Snapshot) Close() error {
	return s.db.Close()
}

// Probes returns the records matching f, oldest first.
func (s *Snapshot) Probes(ctx context.Context, f Filter) ([]model.ProbeRecord, error) {
	where, args := s.where(f)
	query := `SELECT ` + probeColumns + ` FROM ping_results` + where + ` ORDER BY timestamp ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query probes: %w", err)
	}
	defer rows.Close()

	records, err := s.scanProbes(rows)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("rows", len(records)).Debug("loaded probe records")
	return records, nil
}

// Hosts lists every probed host with its recorded region, ordered by host.
func (s *Snapshot) Hosts(ctx context.Context) ([]model.Target, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ip, MAX(region) FROM ping_results GROUP BY ip ORDER BY ip`)
	if err != nil {
		return nil, fmt.Errorf("query hosts: %w", err)
	}
	defer rows.Close()

	var out []model.Target
	for rows.Next() {
		var (
			host   string
			region sql.NullString
		)
		if err := rows.Scan(&host, &region); err != nil {
			return nil, fmt.Errorf("scan host: %w", err)
		}
		out = append(out, model.Target{Host: host, Region: region.String})
	}
	return out, rows.Err()
}

// Latest returns the newest record of every host, ordered by host.
func (s *Snapshot) Latest(ctx context.Context) ([]model.ProbeRecord, error) {
	query := `SELECT ` + probeColumns + ` FROM ping_results p
		WHERE p.id = (
			SELECT id FROM ping_results
			WHERE ip = p.ip
			ORDER BY timestamp DESC, id DESC
			LIMIT 1
		)
		ORDER BY p.ip`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()
	return s.scanProbes(rows)
}

// Page returns one page of records matching f, newest first. page is clamped
// to the available range.
func (s *Snapshot) Page(ctx context.Context, f Filter, page, size int) (Page, error) {
	if size <= 0 {
		return Page{}, ErrInvalidPage
	}
	where, args := s.where(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ping_results`+where, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count probes: %w", err)
	}

	pages := (total + size - 1) / size
	page = max(1, min(page, max(pages, 1)))
	offset := (page - 1) * size

	query := `SELECT ` + probeColumns + ` FROM ping_results` + where + ` ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, size, offset)...)
	if err != nil {
		return Page{}, fmt.Errorf("query page: %w", err)
	}
	defer rows.Close()

	records, err := s.scanProbes(rows)
	if err != nil {
		return Page{}, err
	}
	return Page{Records: records, Page: page, Size: size, Total: total, Pages: pages}, nil
}

// DateRange returns the earliest and latest recorded timestamps. ok is false
// for an empty snapshot.
func (s *Snapshot) DateRange(ctx context.Context) (from, to time.Time, ok bool, err error) {
	var lo, hi sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(timestamp), MAX(timestamp) FROM ping_results`).Scan(&lo, &hi); err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("query date range: %w", err)
	}
	if !lo.Valid || !hi.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	from, to = s.parseTime(lo.String), s.parseTime(hi.String)
	return from, to, !from.IsZero() && !to.IsZero(), nil
}

// LatestTraces returns the newest traceroute run of every target.
func (s *Snapshot) LatestTraces(ctx context.Context) ([]model.TraceRun, error) {
	query := `SELECT t1.target_ip, t1.timestamp, t1.hops_json, t1.error
		FROM traceroute_results t1
		INNER JOIN (
			SELECT target_ip, MAX(timestamp) AS max_ts
			FROM traceroute_results
			GROUP BY target_ip
		) t2 ON t1.target_ip = t2.target_ip AND t1.timestamp = t2.max_ts
		ORDER BY t1.target_ip`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	var runs []model.TraceRun
	for rows.Next() {
		var (
			target       string
			ts, hops, em sql.NullString
		)
		if err := rows.Scan(&target, &ts, &hops, &em); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		decoded, err := trace.DecodeHops(hops.String)
		if err != nil {
			s.logger.WithError(err).WithField("host", target).Warn("skipping malformed hops")
		}
		runs = append(runs, model.TraceRun{
			Target:    target,
			Timestamp: s.parseTime(ts.String),
			Hops:      decoded,
			Error:     em.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// several runs may share the newest timestamp
	return trace.LatestByTarget(runs), nil
}

func (s *Snapshot) where(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.Since.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, f.Since.In(s.loc).Format(model.TimeLayout))
	}
	if !f.Until.IsZero() {
		conds = append(conds, "timestamp < ?")
		args = append(args, f.Until.In(s.loc).Format(model.TimeLayout))
	}
	if f.Host != "" {
		conds = append(conds, "ip = ?")
		args = append(args, f.Host)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Snapshot) scanProbes(rows *sql.Rows) ([]model.ProbeRecord, error) {
	var out []model.ProbeRecord
	for rows.Next() {
		var (
			id                 int64
			host               string
			region, ts         sql.NullString
			success, lost      sql.NullInt64
			avg, lo, hi        sql.NullFloat64
			latencies, errText sql.NullString
		)
		if err := rows.Scan(&id, &host, &region, &ts, &success, &avg, &lo, &hi, &lost, &latencies, &errText); err != nil {
			return nil, fmt.Errorf("scan probe: %w", err)
		}
		r := model.ProbeRecord{
			ID:              id,
			Host:            host,
			Region:          region.String,
			Timestamp:       s.parseTime(ts.String),
			Succeeded:       success.Valid && success.Int64 == 1,
			AvgLatencyMs:    optional(avg),
			MinLatencyMs:    optional(lo),
			MaxLatencyMs:    optional(hi),
			PacketLossCount: int(lost.Int64),
			RawSamples:      metrics.ParseSamples(latencies.String),
			ErrorMessage:    errText.String,
		}
		if !r.HasTimestamp() {
			s.logger.WithFields(logrus.Fields{"id": id, "host": host, "timestamp": ts.String}).Debug("unparseable timestamp")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Snapshot) parseTime(value string) time.Time {
	return model.ParseTime(value, s.loc)
}

func optional(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.Float(v.Float64)
}
