// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and FORMCOACH_ env vars on top of New().
// - Errors returned from this package wrap ErrInvalidConfig or ErrLoadConfig.
package config

import (
	"time"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
	DriverNone   = "none"
)

// Scoring modes.
const (
	ModeFrames      = "frames"
	ModePlaceholder = "placeholder"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DefaultSessionLimit is used by GET /v1/sessions when limit is absent.
	DefaultSessionLimit int `koanf:"default_session_limit"`

	// MaxSessionLimit caps GET /v1/sessions?limit.
	MaxSessionLimit int `koanf:"max_session_limit"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	Storage   StorageConfig   `koanf:"storage"`
	Uploads   UploadsConfig   `koanf:"uploads"`
	Metrics   MetricsConfig   `koanf:"metrics"`

	// Sports adds or overrides sport patterns, keyed by sport key.
	Sports map[string]SportConfig `koanf:"sports"`
}

// RateLimitConfig bounds POST /v1/analyze. RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

// ScoringConfig selects where raw scores come from.
type ScoringConfig struct {
	// Mode is frames (estimate from pose frames, fall back to placeholder)
	// or placeholder (always draw placeholder scores).
	Mode string `koanf:"mode"`

	// Seed fixes the placeholder generator; 0 seeds from the clock.
	Seed int64 `koanf:"seed"`
}

// StorageConfig selects and tunes the persistence backend.
type StorageConfig struct {
	Driver         string `koanf:"driver"`
	Path           string `koanf:"path"`
	WriteTimeoutMS int    `koanf:"write_timeout_ms"`
	AutoMigrate    bool   `koanf:"auto_migrate"`
}

// WriteTimeout returns the per-write deadline for best-effort persistence.
func (s StorageConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

// UploadsConfig controls POST /v1/uploads.
type UploadsConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Dir      string `koanf:"dir"`
	MaxBytes int64  `koanf:"max_bytes"`
}

// MetricsConfig controls the Prometheus collectors served on /metrics.
type MetricsConfig struct {
	// Enabled false keeps /metrics up but records nothing.
	Enabled           bool              `koanf:"enabled"`
	Namespace         string            `koanf:"namespace"`
	Subsystem         string            `koanf:"subsystem"`
	RefreshIntervalMS int               `koanf:"refresh_interval_ms"`
	Labels            map[string]string `koanf:"labels"`
}

// RefreshInterval returns how often the system gauges are sampled.
func (m MetricsConfig) RefreshInterval() time.Duration {
	return time.Duration(m.RefreshIntervalMS) * time.Millisecond
}

// SportConfig describes one configured sport pattern.
type SportConfig struct {
	DisplayName string             `koanf:"display_name"`
	Weights     map[string]float64 `koanf:"weights"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DefaultSessionLimit: 20,
		MaxSessionLimit:     100,
		RateLimit: RateLimitConfig{
			RPS:   20,
			Burst: 40,
		},
		Scoring: ScoringConfig{
			Mode: ModeFrames,
		},
		Storage: StorageConfig{
			Driver:         DriverSQLite,
			Path:           "data/formcoach.db",
			WriteTimeoutMS: 2000,
			AutoMigrate:    true,
		},
		Uploads: UploadsConfig{
			Enabled:  false,
			Dir:      "uploads",
			MaxBytes: 100 << 20,
		},
		Metrics: MetricsConfig{
			Enabled:           true,
			Namespace:         "formcoach",
			Subsystem:         "engine",
			RefreshIntervalMS: 10000,
			Labels:            map[string]string{},
		},
		Sports: map[string]SportConfig{},
	}
}
