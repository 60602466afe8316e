package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Environment keys that override the config file.
const (
	EnvSnapshot  = "PROBEDASH_SNAPSHOT"
	EnvTargets   = "PROBEDASH_TARGETS"
	EnvGeoIP     = "PROBEDASH_GEOIP"
	EnvTimezone  = "PROBEDASH_TIMEZONE"
	EnvListen    = "PROBEDASH_LISTEN"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)

// LoadEnv loads variables from local .env files into the process environment.
func LoadEnv(logger logrus.FieldLogger, files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("Failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger != nil && len(loaded) > 0 {
		logger.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
	}
}

// ApplyEnv overrides file settings with non-empty environment variables.
func ApplyEnv(cfg *Config) {
	cfg.SnapshotPath = GetEnv(EnvSnapshot, cfg.SnapshotPath)
	cfg.TargetsPath = GetEnv(EnvTargets, cfg.TargetsPath)
	cfg.GeoIPPath = GetEnv(EnvGeoIP, cfg.GeoIPPath)
	cfg.Timezone = GetEnv(EnvTimezone, cfg.Timezone)
	cfg.Listen = GetEnv(EnvListen, cfg.Listen)
	cfg.LogLevel = GetEnv(EnvLogLevel, cfg.LogLevel)
	cfg.LogFormat = GetEnv(EnvLogFormat, cfg.LogFormat)
}

// GetEnv gets an environment variable with a default value.
func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
