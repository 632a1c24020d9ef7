// trophyd is an interactive demo host for the achievement engine.
//
// It translates stdin lines into engine events and prints unlock
// notifications, standing in for the UI layer a real host would provide.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"trophyd/internal/achieve"
	"trophyd/internal/config"
	"trophyd/internal/detect"
	"trophyd/internal/engine"
)

var configPath = flag.String("config", "", "path to config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := engine.NewLogger(cfg.Logging, os.Stderr)

	eng, err := engine.Open(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening engine: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.StartWatch(ctx, cfg, logger); err != nil {
		logger.Warn("tamper watch unavailable", "error", err)
	}

	run(ctx, eng)
}

func run(ctx context.Context, eng *engine.Engine) {
	mgr := eng.Manager

	unsubscribe := mgr.Subscribe(func(n achieve.Notification) {
		fmt.Printf("\n🏆 Achievement unlocked: %s: %s\n> ", n.DisplayName, n.Description)
	})
	defer unsubscribe()

	// Periodic ticks drive the dwell-time detector.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				mgr.Feed(detect.TickEvent(now))
			}
		}
	}()

	fmt.Println("trophyd demo host. Type 'help' for commands.")
	printBadge(eng)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return

		case "help":
			printHelp()

		case "badge", "status":
			printBadge(eng)

		case "reset":
			if err := eng.Store.Reset(); err != nil {
				fmt.Printf("reset: %v\n", err)
			}
			mgr.Reload()
			fmt.Println("achievement state cleared")

		case "click":
			count := 1
			if len(fields) > 1 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					count = n
				}
			}
			now := time.Now()
			for i := 0; i < count; i++ {
				mgr.Feed(detect.ClickEvent(now.Add(time.Duration(i) * 10 * time.Millisecond)))
			}

		case "scroll":
			if len(fields) < 2 {
				fmt.Println("usage: scroll <deltaPx>")
				break
			}
			delta, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				fmt.Println("usage: scroll <deltaPx>")
				break
			}
			mgr.Feed(detect.ScrollEvent(delta, time.Now()))

		case "nav":
			if len(fields) < 2 {
				fmt.Println("usage: nav <step>")
				break
			}
			mgr.Feed(detect.NavStepEvent(fields[1], time.Now()))

		case "press":
			ms := 2000
			if len(fields) > 1 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					ms = n
				}
			}
			mgr.Feed(detect.LongPressEvent(time.Duration(ms)*time.Millisecond, time.Now()))

		default:
			// Anything else is a stream of key tokens.
			now := time.Now()
			for _, token := range fields {
				mgr.Feed(detect.KeyEvent(token, now))
			}
		}
		fmt.Print("> ")
	}
}

func printBadge(eng *engine.Engine) {
	unlocked := eng.Manager.UnlockedIDs()
	total := eng.Catalog.Size()
	fmt.Printf("progress: %d/%d unlocked\n", len(unlocked), total)
	for _, a := range eng.Manager.Catalog() {
		mark := " "
		if eng.Manager.Unlocked(a.ID) {
			mark = "x"
		}
		fmt.Printf("  [%s] %s %s: %s\n", mark, a.Icon, a.DisplayName, a.Description)
	}
}

func printHelp() {
	fmt.Println(`Commands:
  <tokens...>      feed key tokens (e.g. "up up down down left right left right b a")
  click [n]        feed n rapid clicks (default 1)
  scroll <px>      feed a scroll delta (negative scrolls up)
  nav <step>       feed a navigation step (e.g. "home", "about")
  press [ms]       feed a long-press (default 2000 ms)
  badge            show the progress badge
  reset            clear all achievement state
  quit             exit`)
}
