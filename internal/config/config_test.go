package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
listen: 127.0.0.1:9000
database:
  driver: postgres
  dsn: postgres://ledger@localhost/ledger?sslmode=disable
log:
  level: debug
  format: json
rate_limit:
  rps: 5
  burst: 10
shutdown_timeout: 3s
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	// Unset fields keep their defaults.
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("listen: :8080\nlisten_port: 80\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen_port")
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		driver string
		check  func(t *testing.T, c Config)
	}{
		{
			name:   "sqlite path",
			env:    map[string]string{EnvDatabase: "/var/lib/ledger.db"},
			driver: DriverSQLite,
			check:  func(t *testing.T, c Config) { assert.Equal(t, "/var/lib/ledger.db", c.Database.Path) },
		},
		{
			name:   "postgres url",
			env:    map[string]string{EnvDatabase: "postgresql://u@h/db"},
			driver: DriverPostgres,
			check:  func(t *testing.T, c Config) { assert.Equal(t, "postgresql://u@h/db", c.Database.DSN) },
		},
		{
			name:   "memory",
			env:    map[string]string{EnvDatabase: "memory"},
			driver: DriverMemory,
		},
		{
			name:   "listen only",
			env:    map[string]string{EnvListen: ":9999"},
			driver: DriverSQLite,
			check:  func(t *testing.T, c Config) { assert.Equal(t, ":9999", c.Listen) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ApplyEnv(func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			})
			assert.Equal(t, tt.driver, cfg.Database.Driver)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: :7000\n"), 0o644))
	t.Setenv(EnvListen, "")
	t.Setenv(EnvDatabase, ":memory:")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.Path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, "database.dsn"},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative rps", func(c *Config) { c.RateLimit.RPS = -1 }, "rate_limit.rps"},
		{"negative body", func(c *Config) { c.MaxBodyBytes = -1 }, "max_body_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
