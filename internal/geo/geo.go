// Package geo resolves hop addresses to a readable location using an offline
// MaxMind-format database.
package geo

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Reader looks up "Country - Region - City" labels. A nil *Reader answers
// only private and loopback addresses.
type Reader struct {
	db *geoip2.Reader
}

// Open loads the database at path. An empty path or a missing file yields a
// nil reader and no error, so the trace view degrades to stored locations.
func Open(path string) (*Reader, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

// Close releases the database.
func (r *Reader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Locate returns the location label for ip. ok is false when the address is
// invalid or unknown to the database.
func (r *Reader) Locate(ipStr string) (string, bool) {
	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil {
		return "", false
	}
	if label, ok := localLabel(ip); ok {
		return label, true
	}
	if r == nil || r.db == nil {
		return "", false
	}

	record, err := r.db.City(ip)
	if err != nil {
		return "", false
	}
	var region string
	if len(record.Subdivisions) > 0 {
		region = record.Subdivisions[0].Names["en"]
	}
	label := Format(record.Country.Names["en"], region, record.City.Names["en"])
	return label, label != ""
}

// Format joins the non-empty parts with " - ", trimming administrative
// suffixes from the region name.
func Format(country, region, city string) string {
	region = strings.TrimSuffix(strings.TrimSuffix(region, " Province"), " Region")
	parts := make([]string, 0, 3)
	for _, p := range []string{country, region, city} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " - ")
}

func localLabel(ip net.IP) (string, bool) {
	switch {
	case ip.IsLoopback():
		return Format("Local", "Loopback", "localhost"), true
	case ip.IsPrivate():
		return Format("Private", "RFC1918", "Local Network"), true
	case ip.IsLinkLocalUnicast():
		return Format("Local", "Link-local", ""), true
	}
	return "", false
}
