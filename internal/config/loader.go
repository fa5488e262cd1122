package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "FORMCOACH_"
	envFileVar = "FORMCOACH_CONFIG"
)

var metricNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FORMCOACH_CONFIG is set
//  3. env (prefix FORMCOACH_, "__" separates nested keys)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	// FORMCOACH_STORAGE__WRITE_TIMEOUT_MS -> storage.write_timeout_ms.
	// Single underscores are preserved to match koanf tags on the struct.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The file path itself is not a config key.
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting joined into one error.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.Addr == "" {
		bad("addr must not be empty")
	}
	if c.DefaultSessionLimit <= 0 {
		bad("default_session_limit must be positive, got %d", c.DefaultSessionLimit)
	}
	if c.MaxSessionLimit < c.DefaultSessionLimit {
		bad("max_session_limit %d is below default_session_limit %d", c.MaxSessionLimit, c.DefaultSessionLimit)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		bad("rate_limit.burst must be positive when rate_limit.rps is set")
	}
	switch c.Scoring.Mode {
	case ModeFrames, ModePlaceholder:
	default:
		bad("unknown scoring.mode %q", c.Scoring.Mode)
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			bad("storage.path must not be empty for the sqlite driver")
		}
	case DriverMemory, DriverNone:
	default:
		bad("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.WriteTimeoutMS <= 0 {
		bad("storage.write_timeout_ms must be positive, got %d", c.Storage.WriteTimeoutMS)
	}
	if c.Uploads.Enabled {
		if c.Uploads.Dir == "" {
			bad("uploads.dir must not be empty when uploads are enabled")
		}
		if c.Uploads.MaxBytes <= 0 {
			bad("uploads.max_bytes must be positive, got %d", c.Uploads.MaxBytes)
		}
	}
	if c.Metrics.Enabled && !metricNamePattern.MatchString(c.Metrics.Namespace) {
		bad("metrics.namespace %q is not a valid metric name prefix", c.Metrics.Namespace)
	}
	if c.Metrics.Subsystem != "" && !metricNamePattern.MatchString(c.Metrics.Subsystem) {
		bad("metrics.subsystem %q is not a valid metric name part", c.Metrics.Subsystem)
	}
	if c.Metrics.RefreshIntervalMS <= 0 {
		bad("metrics.refresh_interval_ms must be positive, got %d", c.Metrics.RefreshIntervalMS)
	}
	for key, sc := range c.Sports {
		for dim, w := range sc.Weights {
			if w < 0 {
				bad("sports.%s.weights.%s must not be negative", key, dim)
			}
		}
	}

	return errors.Join(errs...)
}
