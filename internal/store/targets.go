package store

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"probedash/internal/model"
)

// Targets is the configured list of probe destinations and their labels.
type Targets struct {
	UpdatedAt time.Time      `yaml:"updated_at,omitempty"`
	Targets   []model.Target `yaml:"targets"`
}

// targetEntry also accepts the recorder's {"ip": ..., "region": ...} shape.
type targetEntry struct {
	Host   string `yaml:"host"`
	IP     string `yaml:"ip"`
	Region string `yaml:"region"`
}

// LoadTargets loads the targets file. A missing file yields an empty list.
// Both a YAML document with a targets key and a bare list are accepted, so
// the recorder's JSON target list loads as is.
func LoadTargets(path string) (*Targets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Targets{}, nil
		}
		return nil, err
	}

	var doc struct {
		UpdatedAt time.Time     `yaml:"updated_at"`
		Targets   []targetEntry `yaml:"targets"`
	}
	var entries []targetEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		entries = doc.Targets
	}

	out := &Targets{UpdatedAt: doc.UpdatedAt}
	for _, e := range entries {
		host := e.Host
		if host == "" {
			host = e.IP
		}
		if host == "" {
			continue
		}
		out.Targets = append(out.Targets, model.Target{Host: host, Region: e.Region})
	}
	return out, nil
}

// SaveTargets writes the targets file.
func SaveTargets(path string, t *Targets) error {
	if t == nil {
		return nil
	}
	t.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(t)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Region returns the configured label of host, or fallback.
func (t *Targets) Region(host, fallback string) string {
	if t != nil {
		for _, target := range t.Targets {
			if target.Host == host && target.Region != "" {
				return target.Region
			}
		}
	}
	return fallback
}

// Hosts returns the configured hosts in file order.
func (t *Targets) Hosts() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.Targets))
	for _, target := range t.Targets {
		out = append(out, target.Host)
	}
	return out
}

// Merge adds hosts seen in the snapshot that the file does not list yet.
func (t *Targets) Merge(seen []model.Target) {
	known := make(map[string]struct{}, len(t.Targets))
	for _, target := range t.Targets {
		known[target.Host] = struct{}{}
	}
	for _, target := range seen {
		if _, ok := known[target.Host]; ok {
			continue
		}
		known[target.Host] = struct{}{}
		t.Targets = append(t.Targets, target)
	}
}
