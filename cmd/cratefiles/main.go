// # cmd/cratefiles/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cratefiles/internal/config"
	"cratefiles/internal/observability"
)

var (
	manifestPath      = flag.String("manifest-path", "", "Path to Cargo.toml or workspace root")
	configPath        = flag.String("config", "./cratefiles.toml", "Path to config file")
	kind              = flag.String("kind", "", "Only resolve targets whose kind matches this glob (lib, bin, test, example, bench, build-script)")
	features          = flag.String("features", "", "Comma-separated list of enabled features")
	noDefaultFeatures = flag.Bool("no-default-features", false, "Treat unlisted features as disabled")
	noCargo           = flag.Bool("no-cargo", false, "Discover targets from Cargo.toml directly instead of invoking cargo")
	unique            = flag.Bool("unique", false, "Deduplicate paths shared between targets")
	watch             = flag.Bool("watch", false, "Keep running and re-resolve on source changes")
	ui                = flag.Bool("ui", false, "Enable terminal UI mode (implies -watch)")
	metricsAddr       = flag.String("metrics-addr", "", "Serve prometheus metrics on this address in watch mode")
	historyPath       = flag.String("history", "", "Record resolution runs to this sqlite file")
	verbose           = flag.Bool("verbose", false, "Enable verbose logging")
	version           = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("cratefiles v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stderr
	if *ui {
		// In UI mode, avoid stderr logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); err == nil {
			output = f
		} else {
			fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config; the config file is optional, flags win over it.
	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = config.Default()
	}
	applyFlags(cfg)

	app, err := NewApp(cfg, *kind)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	ctx := context.Background()

	if _, err := app.Resolve(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if !*ui {
		if err := app.PrintFiles(os.Stdout, *unique); err != nil {
			os.Exit(1)
		}
	}

	if !*watch && !*ui {
		return
	}

	// Watch mode
	if cfg.Metrics.Addr != "" {
		server := observability.NewServer(cfg.Metrics.Addr)
		if err := server.Start(); err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
		defer server.Stop(ctx)
	}

	if err := app.StartWatcher(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if *ui {
		if err := app.RunUI(); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
	} else {
		// Block forever
		select {}
	}
}

func applyFlags(cfg *config.Config) {
	if *manifestPath != "" {
		cfg.ManifestPath = *manifestPath
	}
	if *features != "" {
		for _, feature := range strings.Split(*features, ",") {
			if feature = strings.TrimSpace(feature); feature != "" {
				cfg.Resolution.Features = append(cfg.Resolution.Features, feature)
			}
		}
	}
	if *noDefaultFeatures {
		cfg.Resolution.NoDefaultFeatures = true
	}
	if *noCargo {
		cfg.NoCargo = true
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *historyPath != "" {
		cfg.History.Path = *historyPath
	}
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "cratefiles", "cratefiles.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "cratefiles", "cratefiles.log")
	}

	return "cratefiles.log"
}
