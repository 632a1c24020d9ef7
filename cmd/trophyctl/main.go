// trophyctl is the control CLI for trophyd achievement state.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"trophyd/internal/anomaly"
	"trophyd/internal/catalog"
	"trophyd/internal/config"
	"trophyd/internal/engine"
	"trophyd/internal/ledger"
	"trophyd/internal/signature"
	"trophyd/internal/storage"
	"trophyd/internal/store"
)

var configPath = flag.String("config", "", "path to config file")

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "status":
		cmdStatus()
	case "verify":
		cmdVerify()
	case "reset":
		cmdReset()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", flag.Arg(0))
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `trophyctl - Control utility for trophyd achievement state

Usage: trophyctl [options] <command>

Commands:
  status    Show unlocked achievements and timestamps
  verify    Validate the persisted state and report per-rule verdicts
  reset     Clear all achievement state
  help      Show this help message

Options:
  -config <path>  Path to config file (default: ~/.trophyd/config.toml)`)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func openEngine(cfg *config.Config) *engine.Engine {
	logger := engine.NewLogger(cfg.Logging, os.Stderr)
	eng, err := engine.Open(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening engine: %v\n", err)
		os.Exit(1)
	}
	return eng
}

func cmdStatus() {
	cfg := loadConfig()
	eng := openEngine(cfg)
	defer eng.Close()

	unlocked := eng.Manager.UnlockedIDs()
	records := eng.Store.Records()
	times := make(map[string]int64, len(records))
	for _, r := range records {
		times[r.ID] = r.UnlockedAt
	}

	fmt.Printf("=== trophyd Status ===\n\n")
	fmt.Printf("Backend:  %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend != "memory" {
		fmt.Printf("State:    %s\n", cfg.Storage.Path)
	}
	fmt.Printf("Unlocked: %d/%d\n\n", len(unlocked), eng.Catalog.Size())

	for _, a := range eng.Catalog.All() {
		if ts, ok := times[string(a.ID)]; ok {
			when := time.UnixMilli(ts).Format(time.RFC3339)
			fmt.Printf("  [x] %-10s %s  (unlocked %s)\n", a.ID, a.DisplayName, when)
		} else {
			fmt.Printf("  [ ] %-10s %s\n", a.ID, a.DisplayName)
		}
	}
}

// cmdVerify inspects the raw persisted blob and reports every check the
// integrity store would apply, without resetting anything.
func cmdVerify() {
	cfg := loadConfig()

	medium, closer := openMedium(cfg)
	if closer != nil {
		defer closer()
	}

	blob, err := store.ReadBlob(medium)
	if err != nil {
		fmt.Printf("Persisted state: INVALID (%v)\n", err)
		os.Exit(1)
	}
	if blob == nil {
		fmt.Println("Persisted state: empty (nothing to verify)")
		return
	}

	fmt.Printf("Persisted ids: %d, timestamp records: %d\n\n", len(blob.UnlockedIDs), len(blob.Timestamps))

	failed := false

	signer := signature.New(cfg.Signature.Secret, signature.Mode(cfg.Signature.Mode))
	if signer.Verify(blob.UnlockedIDs, blob.Signature) {
		fmt.Println("  signature:          OK")
	} else {
		fmt.Println("  signature:          MISMATCH")
		failed = true
	}

	cat, err := openCatalog(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
		os.Exit(1)
	}
	memberOK := true
	for _, id := range blob.UnlockedIDs {
		if !cat.Contains(id) {
			fmt.Printf("  catalog membership: UNKNOWN ID %q\n", id)
			memberOK = false
			failed = true
		}
	}
	if memberOK {
		fmt.Println("  catalog membership: OK")
	}

	validator := anomaly.New(anomaly.Policy{
		ClockSkewTolerance: cfg.Anomaly.ClockSkewTolerance(),
		StalenessHorizon:   cfg.Anomaly.StalenessHorizon(),
		MinFullCatalogSpan: cfg.Anomaly.MinFullCatalogSpan(),
	}, cat.Size())

	ids := make([]string, len(blob.UnlockedIDs))
	for i, id := range blob.UnlockedIDs {
		ids[i] = string(id)
	}
	verdict := validator.Check(blob.Timestamps, ids, time.Now())
	if verdict.Plausible {
		fmt.Println("  anomaly rules:      OK")
	} else {
		fmt.Printf("  anomaly rules:      VIOLATED %v\n", verdict.Violated)
		failed = true
	}

	if _, err := ledger.FromRecords(blob.Timestamps); err != nil {
		fmt.Printf("  timestamp ledger:   DUPLICATES (%v)\n", err)
		failed = true
	} else {
		fmt.Println("  timestamp ledger:   OK")
	}

	fmt.Println()
	if failed {
		fmt.Println("Verdict: INVALID (the engine will reset this state on next load)")
		os.Exit(1)
	}
	fmt.Println("Verdict: VALID")
}

func cmdReset() {
	cfg := loadConfig()
	eng := openEngine(cfg)
	defer eng.Close()

	if err := eng.Store.Reset(); err != nil {
		fmt.Fprintf(os.Stderr, "Error resetting state: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Achievement state cleared.")
}

func openMedium(cfg *config.Config) (storage.Medium, func() error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemory(), nil
	case "file":
		m, err := storage.NewFile(cfg.Storage.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening state file: %v\n", err)
			os.Exit(1)
		}
		return m, nil
	case "sqlite":
		m, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			os.Exit(1)
		}
		return m, m.Close
	default:
		fmt.Fprintf(os.Stderr, "Unknown storage backend %q\n", cfg.Storage.Backend)
		os.Exit(1)
		return nil, nil
	}
}

func openCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.Catalog.Path)
}
