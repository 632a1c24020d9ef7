// Package config handles configuration loading and validation for trophyd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Errors
var (
	ErrUnknownBackend = errors.New("config: unknown storage backend")
	ErrUnknownMode    = errors.New("config: unknown signature mode")
)

// Config holds the complete engine configuration.
type Config struct {
	// Storage selects and locates the persistence medium.
	Storage StorageConfig `toml:"storage"`

	// Signature configures the state signature.
	Signature SignatureConfig `toml:"signature"`

	// Anomaly holds the plausibility-rule thresholds.
	Anomaly AnomalyConfig `toml:"anomaly"`

	// Catalog optionally points at a YAML catalog definition.
	// Empty means the built-in catalog.
	Catalog CatalogConfig `toml:"catalog"`

	// Watcher configures the external-tamper watch.
	Watcher WatcherConfig `toml:"watcher"`

	// Logging configures diagnostics output.
	Logging LoggingConfig `toml:"logging"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is "memory", "file", or "sqlite".
	Backend string `toml:"backend"`

	// Path is the state file or database path (file/sqlite backends).
	Path string `toml:"path"`
}

// SignatureConfig configures signature derivation.
type SignatureConfig struct {
	// Mode is "legacy" (rolling hash) or "keyed" (BLAKE2b MAC).
	Mode string `toml:"mode"`

	// Secret is the shared secret mixed into every signature. It ships
	// with the client, so it deters casual edits only.
	Secret string `toml:"secret"`
}

// AnomalyConfig holds the timestamp plausibility thresholds.
// The defaults match the legacy client; they are heuristics, not
// load-bearing correctness values.
type AnomalyConfig struct {
	// ClockSkewToleranceSec is how many seconds into the future an
	// unlock timestamp may sit.
	ClockSkewToleranceSec int `toml:"clock_skew_tolerance_sec"`

	// StalenessHorizonDays is how many days into the past an unlock
	// timestamp may sit.
	StalenessHorizonDays int `toml:"staleness_horizon_days"`

	// MinFullCatalogSpanSec is the minimum plausible seconds between the
	// first and last unlock when the whole catalog is present.
	MinFullCatalogSpanSec int `toml:"min_full_catalog_span_sec"`
}

// CatalogConfig locates an optional custom catalog.
type CatalogConfig struct {
	// Path is a YAML catalog definition; empty uses the built-in one.
	Path string `toml:"path"`
}

// WatcherConfig configures the external-modification watch.
type WatcherConfig struct {
	// Enabled turns on fsnotify watching of the state file.
	Enabled bool `toml:"enabled"`

	// DebounceMs is how long the file must be quiet before revalidation.
	DebounceMs int `toml:"debounce_ms"`
}

// LoggingConfig configures diagnostics.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "file",
			Path:    filepath.Join(StateDir(), "state.json"),
		},
		Signature: SignatureConfig{
			Mode:   "legacy",
			Secret: "trophyd-achievement-salt-v1",
		},
		Anomaly: AnomalyConfig{
			ClockSkewToleranceSec: 60,
			StalenessHorizonDays:  365,
			MinFullCatalogSpanSec: 10,
		},
		Watcher: WatcherConfig{
			Enabled:    true,
			DebounceMs: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// StateDir returns the per-user trophyd directory.
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trophyd"
	}
	return filepath.Join(home, ".trophyd")
}

// Load reads the config at path. An empty path falls back to
// $TROPHYD_CONFIG, then the default location; defaults are returned when
// no file exists. Environment overrides apply after parsing.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TROPHYD_CONFIG")
	}
	if path == "" {
		path = filepath.Join(StateDir(), "config.toml")
		if _, err := os.Stat(path); err != nil {
			cfg := Default()
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if secret := os.Getenv("TROPHYD_SECRET"); secret != "" {
		c.Signature.Secret = secret
	}
	if path := os.Getenv("TROPHYD_STATE_PATH"); path != "" {
		c.Storage.Path = path
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "file", "sqlite":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}

	switch c.Signature.Mode {
	case "legacy", "keyed":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.Signature.Mode)
	}

	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("config: storage path required for %q backend", c.Storage.Backend)
	}

	if c.Anomaly.ClockSkewToleranceSec < 0 ||
		c.Anomaly.StalenessHorizonDays <= 0 ||
		c.Anomaly.MinFullCatalogSpanSec < 0 {
		return errors.New("config: anomaly thresholds out of range")
	}

	return nil
}

// ClockSkewTolerance returns the skew threshold as a duration.
func (c *AnomalyConfig) ClockSkewTolerance() time.Duration {
	return time.Duration(c.ClockSkewToleranceSec) * time.Second
}

// StalenessHorizon returns the staleness threshold as a duration.
func (c *AnomalyConfig) StalenessHorizon() time.Duration {
	return time.Duration(c.StalenessHorizonDays) * 24 * time.Hour
}

// MinFullCatalogSpan returns the speed-run threshold as a duration.
func (c *AnomalyConfig) MinFullCatalogSpan() time.Duration {
	return time.Duration(c.MinFullCatalogSpanSec) * time.Second
}
