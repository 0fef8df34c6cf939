package config

import (
	"time"

	"github.com/rootlab/rootlab/internal/ailink"
	"github.com/rootlab/rootlab/internal/document"
)

// Config represents the complete application configuration. Values are
// layered: struct defaults, then the YAML config file, then environment
// variables, then runtime overrides.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	AILink     ailink.Config    `mapstructure:"ailink"`
	Lesson     LessonConfig     `mapstructure:"lesson"`
	Structurer document.Options `mapstructure:"structurer"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`
	Debug      DebugConfig      `mapstructure:"debug"`
}

// ServerConfig contains HTTP server configuration.
//
// WriteTimeout bounds a whole streamed lesson, so it is much larger than
// the read timeout.
type ServerConfig struct {
	Host            string        `mapstructure:"host" default:"localhost"`
	Port            int           `mapstructure:"port" default:"8080"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" default:"5m"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" default:"120s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"10s"`
}

// StoreConfig contains database configuration for libsql/Turso.
type StoreConfig struct {
	Enabled   bool   `mapstructure:"enabled" default:"true"`
	Driver    string `mapstructure:"driver" default:"libsql"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LessonConfig contains lesson generation settings.
type LessonConfig struct {
	// Role selects the ailink routing entry used for lessons.
	Role string `mapstructure:"role" default:"lesson"`
	// DefaultLevel applies to CLI requests that omit --level.
	DefaultLevel string `mapstructure:"default_level" default:"intermediate"`
	// Persist stores completed lessons in the history table.
	Persist bool `mapstructure:"persist" default:"true"`
	// HistoryLimit caps list responses.
	HistoryLimit int `mapstructure:"history_limit" default:"50"`
	// RateLimits are per-minute request budgets keyed by provider id.
	RateLimits map[string]int `mapstructure:"rate_limits"`
	// RateLimitMargin scales every budget, in (0, 1].
	RateLimitMargin float64 `mapstructure:"rate_limit_margin" default:"1"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level" default:"info"`

	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile" default:"STRUCTURED"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" default:"true"`

	// Port is the dedicated Prometheus endpoint port.
	Port int `mapstructure:"port" default:"9090"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled" default:"true"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
