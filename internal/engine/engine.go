// Package engine assembles the achievement engine from configuration.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"trophyd/internal/achieve"
	"trophyd/internal/anomaly"
	"trophyd/internal/catalog"
	"trophyd/internal/config"
	"trophyd/internal/detect"
	"trophyd/internal/signature"
	"trophyd/internal/storage"
	"trophyd/internal/store"
	"trophyd/internal/watcher"
)

// Engine bundles the wired components.
type Engine struct {
	Catalog *catalog.Catalog
	Store   *store.Store
	Manager *achieve.Manager

	watch  *watcher.Watcher
	closer io.Closer
}

// Open builds the engine from cfg. The detector session starts now.
func Open(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cat, err := openCatalog(cfg)
	if err != nil {
		return nil, err
	}

	medium, closer, err := openMedium(cfg)
	if err != nil {
		return nil, err
	}

	signer := signature.New(cfg.Signature.Secret, signature.Mode(cfg.Signature.Mode))
	validator := anomaly.New(anomaly.Policy{
		ClockSkewTolerance: cfg.Anomaly.ClockSkewTolerance(),
		StalenessHorizon:   cfg.Anomaly.StalenessHorizon(),
		MinFullCatalogSpan: cfg.Anomaly.MinFullCatalogSpan(),
	}, cat.Size())

	st := store.New(cat, medium, signer, validator, logger)
	mgr := achieve.New(cat, st, detect.DefaultSet(time.Now()), logger)

	return &Engine{
		Catalog: cat,
		Store:   st,
		Manager: mgr,
		closer:  closer,
	}, nil
}

// StartWatch begins the external-tamper watch when enabled and the
// backend is file-based.
func (e *Engine) StartWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.Watcher.Enabled || cfg.Storage.Backend == "memory" {
		return nil
	}

	debounce := time.Duration(cfg.Watcher.DebounceMs) * time.Millisecond
	w := watcher.New(cfg.Storage.Path, debounce, e.Manager, logger)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start tamper watch: %w", err)
	}
	e.watch = w
	return nil
}

// Close stops the watch and releases the medium.
func (e *Engine) Close() error {
	if e.watch != nil {
		e.watch.Stop()
	}
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}

func openCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

func openMedium(cfg *config.Config) (storage.Medium, io.Closer, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemory(), nil, nil
	case "file":
		m, err := storage.NewFile(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return m, nil, nil
	case "sqlite":
		m, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Storage.Backend)
	}
}

// NewLogger builds a slog logger per the logging config.
func NewLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}
