// Package config loads taxledger settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment
// variables (TAXLEDGER_LISTEN, TAXLEDGER_DATABASE), then CLI flags applied
// by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Environment variables read by ApplyEnv.
const (
	EnvListen   = "TAXLEDGER_LISTEN"
	EnvDatabase = "TAXLEDGER_DATABASE"
)

// Config is the full service configuration.
type Config struct {
	Listen          string          `yaml:"listen"`
	Database        DatabaseConfig  `yaml:"database"`
	Log             LogConfig       `yaml:"log"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes"`
}

// DatabaseConfig selects and locates the ledger store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"` // sqlite file or ":memory:"
	DSN    string `yaml:"dsn"`  // postgres connection string
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// RateLimitConfig is the per-IP HTTP rate limit. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen: ":8080",
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "taxledger.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			RPS:   0,
			Burst: 20,
		},
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,
	}
}

// Load reads path (if non-empty) over the defaults, then applies the
// environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := decode(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without touching the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(bytes.NewReader(data), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment. A TAXLEDGER_DATABASE
// value starting with postgres:// or postgresql:// selects the postgres
// driver; ":memory:" or a file path selects sqlite.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvListen); ok && v != "" {
		c.Listen = v
	}
	if v, ok := lookup(EnvDatabase); ok && v != "" {
		c.SetDatabase(v)
	}
}

// SetDatabase points the config at a database given as one string, as
// accepted by TAXLEDGER_DATABASE and --db. "memory" selects the in-process
// store.
func (c *Config) SetDatabase(v string) {
	switch {
	case strings.HasPrefix(v, "postgres://"), strings.HasPrefix(v, "postgresql://"):
		c.Database.Driver = DriverPostgres
		c.Database.DSN = v
	case v == DriverMemory:
		c.Database.Driver = DriverMemory
	default:
		c.Database.Driver = DriverSQLite
		c.Database.Path = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver %q: must be one of %s, %s, %s",
			c.Database.Driver, DriverSQLite, DriverPostgres, DriverMemory)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format %q: must be text or json", c.Log.Format)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must be >= 0, got %v", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst must be >= 0, got %d", c.RateLimit.Burst)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must be >= 0, got %s", c.ShutdownTimeout)
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must be >= 0, got %d", c.MaxBodyBytes)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level %q: must be debug, info, warn or error", s)
}

// NewLogger builds the slog logger described by c, writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
