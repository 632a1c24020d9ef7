package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "legacy", cfg.Signature.Mode)
	assert.NotEmpty(t, cfg.Signature.Secret)
	assert.Equal(t, 60*time.Second, cfg.Anomaly.ClockSkewTolerance())
	assert.Equal(t, 365*24*time.Hour, cfg.Anomaly.StalenessHorizon())
	assert.Equal(t, 10*time.Second, cfg.Anomaly.MinFullCatalogSpan())
	assert.True(t, cfg.Watcher.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := `
[storage]
backend = "sqlite"
path = "/tmp/trophyd-test/state.db"

[signature]
mode = "keyed"
secret = "override-secret"

[anomaly]
clock_skew_tolerance_sec = 120

[watcher]
enabled = false

[logging]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "keyed", cfg.Signature.Mode)
	assert.Equal(t, "override-secret", cfg.Signature.Secret)
	assert.Equal(t, 120, cfg.Anomaly.ClockSkewToleranceSec)
	// Unset fields keep their defaults.
	assert.Equal(t, 365, cfg.Anomaly.StalenessHorizonDays)
	assert.False(t, cfg.Watcher.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := `
[storage]
backend = "redis"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default ok", func(c *Config) {}, false},
		{"memory without path ok", func(c *Config) {
			c.Storage.Backend = "memory"
			c.Storage.Path = ""
		}, false},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, true},
		{"unknown mode", func(c *Config) { c.Signature.Mode = "hmac" }, true},
		{"file without path", func(c *Config) { c.Storage.Path = "" }, true},
		{"negative skew", func(c *Config) { c.Anomaly.ClockSkewToleranceSec = -1 }, true},
		{"zero horizon", func(c *Config) { c.Anomaly.StalenessHorizonDays = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TROPHYD_SECRET", "from-env")
	t.Setenv("TROPHYD_STATE_PATH", "/tmp/elsewhere/state.json")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "from-env", cfg.Signature.Secret)
	assert.Equal(t, "/tmp/elsewhere/state.json", cfg.Storage.Path)
}
