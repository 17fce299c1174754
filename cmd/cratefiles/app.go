// # cmd/cratefiles/app.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gobwas/glob"

	"cratefiles/internal/config"
	"cratefiles/internal/history"
	"cratefiles/internal/observability"
	"cratefiles/internal/util"
	"cratefiles/internal/watcher"
	"cratefiles/pkg/cargo"
	"cratefiles/pkg/catalog"
	"cratefiles/pkg/errors"
	"cratefiles/pkg/modwalk"
)

type App struct {
	Config  *config.Config
	Source  cargo.Source
	Walker  *modwalk.Walker
	History *history.Store

	kindGlob glob.Glob
	limiter  *util.Limiter
	watcher  *watcher.Watcher

	teaProgram *tea.Program

	mu          sync.Mutex
	resolutions []Resolution
}

// Resolution is the outcome of resolving one target's file set.
type Resolution struct {
	Target   catalog.Target
	Files    []string
	Err      error
	Duration time.Duration
}

func NewApp(cfg *config.Config, kindPattern string) (*App, error) {
	app := &App{
		Config: cfg,
		Walker: modwalk.New(modwalk.Config{
			DefaultFeatures: !cfg.Resolution.NoDefaultFeatures,
			Features:        cfg.Resolution.Features,
			Flags:           cfg.Resolution.Flags,
		}),
		limiter: util.NewLimiter(cfg.Watch.MaxRunsPerSecond, cfg.Watch.Burst),
	}

	if cfg.NoCargo {
		app.Source = &cargo.ManifestSource{}
	} else {
		app.Source = &cargo.CommandSource{}
	}

	if kindPattern != "" {
		g, err := glob.Compile(kindPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid kind pattern %q: %w", kindPattern, err)
		}
		app.kindGlob = g
	}

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		app.History = store
	}

	return app, nil
}

// Resolve queries the target catalog and walks every matching target. A
// failing walk does not stop the others; its error is kept on the
// Resolution so the caller can report every broken target at once.
func (a *App) Resolve(ctx context.Context) ([]Resolution, error) {
	targets, err := catalog.GetTargets(ctx, a.Config.ManifestPath, a.Source)
	if err != nil {
		return nil, err
	}
	observability.TargetsTotal.Set(float64(len(targets)))

	resolutions := make([]Resolution, 0, len(targets))
	for _, target := range targets {
		if a.kindGlob != nil && !a.kindGlob.Match(target.Kind.String()) {
			continue
		}

		start := time.Now()
		files, walkErr := a.Walker.TargetFiles(target)
		elapsed := time.Since(start)

		observability.ResolveDuration.WithLabelValues(target.Kind.String()).Observe(elapsed.Seconds())
		if walkErr != nil {
			observability.ResolveErrorsTotal.WithLabelValues(string(errors.CodeOf(walkErr))).Inc()
		} else {
			observability.ResolvedFiles.WithLabelValues(target.Kind.String()).Set(float64(len(files)))
		}

		resolutions = append(resolutions, Resolution{
			Target:   target,
			Files:    files,
			Err:      walkErr,
			Duration: elapsed,
		})
		a.recordRun(target, files, walkErr, elapsed)
	}

	a.mu.Lock()
	a.resolutions = resolutions
	a.mu.Unlock()

	return resolutions, nil
}

func (a *App) recordRun(target catalog.Target, files []string, walkErr error, elapsed time.Duration) {
	if a.History == nil {
		return
	}

	run := history.Run{
		Workspace:  a.Config.ManifestPath,
		Package:    target.Package,
		Target:     target.Name,
		Kind:       target.Kind.String(),
		FileCount:  len(files),
		DurationMS: elapsed.Milliseconds(),
		Outcome:    "ok",
	}
	if walkErr != nil {
		run.Outcome = "error"
		run.ErrorCode = string(errors.CodeOf(walkErr))
	}
	if err := a.History.RecordRun(run); err != nil {
		slog.Warn("failed to record run", "error", err)
	}
}

// PrintFiles writes one file path per line for every resolved target and
// reports failed targets on stderr. It returns the first error so the
// process can exit non-zero; a partially resolved target never contributes
// paths.
func (a *App) PrintFiles(w io.Writer, unique bool) error {
	a.mu.Lock()
	resolutions := a.resolutions
	a.mu.Unlock()

	var firstErr error
	seen := make(map[string]bool)

	for _, res := range resolutions {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Target, res.Err)
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		for _, file := range res.Files {
			if unique {
				if seen[file] {
					continue
				}
				seen[file] = true
			}
			fmt.Fprintln(w, file)
		}
	}

	return firstErr
}

// StartWatcher re-resolves after debounced source changes. Each re-run is a
// fresh, stateless resolution; the limiter only spaces the runs out.
func (a *App) StartWatcher(ctx context.Context) error {
	root := a.Config.ManifestPath
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		root = cwd
	}
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		root = filepath.Dir(root)
	}

	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.Config.Exclude.Dirs, a.Config.Exclude.Files, func(paths []string) {
		observability.WatcherEventsTotal.Inc()
		slog.Info("detected changes", "count", len(paths))

		if !a.limiter.Allow() {
			slog.Debug("re-resolution throttled, waiting for the rate limiter")
			if err := a.limiter.Wait(ctx); err != nil {
				return
			}
		}
		resolutions, err := a.Resolve(ctx)
		if err != nil {
			slog.Error("re-resolution failed", "error", err)
			return
		}
		a.notifyUI(resolutions)
		a.logSummary(resolutions)
	})
	if err != nil {
		return err
	}

	a.watcher = w
	return w.Watch([]string{root})
}

func (a *App) notifyUI(resolutions []Resolution) {
	if a.teaProgram != nil {
		a.teaProgram.Send(updateMsg{resolutions: resolutions})
	}
}

func (a *App) logSummary(resolutions []Resolution) {
	total := 0
	failed := 0
	for _, res := range resolutions {
		if res.Err != nil {
			failed++
			continue
		}
		total += len(res.Files)
	}
	slog.Info("resolved targets", "targets", len(resolutions), "files", total, "failed", failed)
}

func (a *App) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.History != nil {
		_ = a.History.Close()
	}
}
