package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSnapshotPath  = "ping_data.db"
	DefaultTargetsPath   = "ip_config.json"
	DefaultTimezone      = "Local"
	DefaultProbeCount    = 10
	DefaultPeriodDays    = 7
	DefaultTrendDays     = 30
	DefaultPageSize      = 20
	DefaultTimeoutLabel  = "timeout"
	DefaultUnknownRegion = "unknown"
	DefaultListen        = ":8080"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the dashboard settings.
type Config struct {
	SnapshotPath  string `yaml:"snapshot_path"`
	TargetsPath   string `yaml:"targets_path"`
	GeoIPPath     string `yaml:"geoip_path,omitempty"`
	Timezone      string `yaml:"timezone"`
	ProbeCount    int    `yaml:"probe_count"`
	PeriodDays    int    `yaml:"period_days"`
	TrendDays     int    `yaml:"trend_days"`
	PageSize      int    `yaml:"page_size"`
	TimeoutLabel  string `yaml:"timeout_label"`
	UnknownRegion string `yaml:"unknown_region"`
	Listen        string `yaml:"listen"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
}

// Default returns a config with every default applied.
func Default() Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return cfg
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate rejects settings the dashboard cannot run with.
func Validate(cfg Config) error {
	if cfg.SnapshotPath == "" {
		return fmt.Errorf("%w: snapshot_path is required", ErrInvalid)
	}
	if cfg.ProbeCount <= 0 {
		return fmt.Errorf("%w: probe_count must be positive", ErrInvalid)
	}
	if cfg.PeriodDays <= 0 || cfg.TrendDays <= 0 {
		return fmt.Errorf("%w: period_days and trend_days must be positive", ErrInvalid)
	}
	if cfg.PageSize <= 0 {
		return fmt.Errorf("%w: page_size must be positive", ErrInvalid)
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalid, cfg.Timezone, err)
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalid)
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = DefaultSnapshotPath
	}
	if cfg.TargetsPath == "" {
		cfg.TargetsPath = DefaultTargetsPath
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.ProbeCount == 0 {
		cfg.ProbeCount = DefaultProbeCount
	}
	if cfg.PeriodDays == 0 {
		cfg.PeriodDays = DefaultPeriodDays
	}
	if cfg.TrendDays == 0 {
		cfg.TrendDays = DefaultTrendDays
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.TimeoutLabel == "" {
		cfg.TimeoutLabel = DefaultTimeoutLabel
	}
	if cfg.UnknownRegion == "" {
		cfg.UnknownRegion = DefaultUnknownRegion
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
}

// Location resolves the configured timezone used for naive timestamps.
func (c Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
