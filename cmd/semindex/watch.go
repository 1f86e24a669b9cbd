// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"

	apperrors "github.com/kraklabs/semindex/internal/errors"
	"github.com/kraklabs/semindex/internal/ui"
	"github.com/kraklabs/semindex/pkg/storage"
)

// watchDebounce is how long the watcher waits after the last filesystem
// event before triggering a reindex pass, so a burst of saves (a
// format-on-save, a git checkout) collapses into a single run.
const watchDebounce = 2 * time.Second

// watchState tracks whether a reindex pass is currently running, so a
// debounce fire that lands mid-run is coalesced into the next one instead
// of starting a second orchestrator concurrently.
type watchState struct {
	mu         sync.Mutex
	inProgress bool
	pending    bool
	runs       int
	lastErr    error
}

// runWatch executes the 'watch' CLI command: it recursively watches the
// repository for filesystem changes and triggers an incremental
// reindexPass after a debounce window, until interrupted.
func runWatch(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	debug := fs.Bool("debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: semindex watch [options]

Description:
  Watch the repository for file changes and re-index incrementally. Each
  burst of changes is debounced by %s before triggering a reindex pass
  limited to the files that actually changed.

Options:
`, watchDebounce)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		apperrors.FatalError(apperrors.NewConfigError(
			"No semindex configuration found",
			err.Error(),
			"Run 'semindex init' first",
		), globals.JSON)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cwd, err := os.Getwd()
	if err != nil {
		apperrors.FatalError(apperrors.NewInternalError("Cannot access current directory", err.Error(), ""), globals.JSON)
	}

	dataDir, err := projectDataDir(cfg, configPath)
	if err != nil {
		apperrors.FatalError(apperrors.NewConfigError("Cannot resolve data directory", err.Error(), ""), globals.JSON)
	}

	backend, err := storage.NewEmbeddedBackend(storage.EmbeddedConfig{
		DataDir:   dataDir,
		Engine:    cfg.Indexing.Engine,
		ProjectID: cfg.ProjectID,
	})
	if err != nil {
		apperrors.FatalError(apperrors.NewDatabaseError(
			"Cannot open local database",
			err.Error(),
			"Check permissions on "+dataDir,
		), globals.JSON)
	}
	defer backend.Close()

	if err := backend.EnsureSchema(); err != nil {
		apperrors.FatalError(apperrors.NewDatabaseError("Cannot initialize database schema", err.Error(), ""), globals.JSON)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		apperrors.FatalError(apperrors.NewInternalError("Cannot start filesystem watcher", err.Error(), ""), globals.JSON)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, cwd); err != nil {
		apperrors.FatalError(apperrors.NewInternalError("Cannot watch repository", err.Error(), ""), globals.JSON)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("watch.shutdown.signal", "signal", sig.String())
		cancel()
	}()

	state := &watchState{}
	logger.Info("watch.start", "dir", cwd, "debounce", watchDebounce.String())
	if !globals.Quiet {
		ui.Info(fmt.Sprintf("Watching %s for changes (debounce %s, Ctrl-C to stop)", cwd, watchDebounce))
	}

	// Run an initial incremental pass so the index reflects any changes
	// made while semindex wasn't running.
	triggerReindex(ctx, state, cwd, cfg, backend, logger, globals)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch.stop", "runs", state.runs)
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if shouldIgnoreEvent(event) {
				continue
			}
			if event.Op&(fsnotify.Create) != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !watchSkipDirs[filepath.Base(event.Name)] {
						_ = watcher.Add(event.Name)
					}
				}
			}
			logger.Debug("watch.event", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(watchDebounce)
			}
			timerCh = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch.error", "err", err)

		case <-timerCh:
			timerCh = nil
			triggerReindex(ctx, state, cwd, cfg, backend, logger, globals)
		}
	}
}

// shouldIgnoreEvent filters out events semindex has no reason to react to:
// pure chmod notifications and anything inside an excluded directory.
func shouldIgnoreEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(event.Name), "/") {
		if watchSkipDirs[part] {
			return true
		}
	}
	return false
}

// addWatchDirs recursively registers root and every non-excluded
// subdirectory with watcher.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		name := info.Name()
		if path != root && watchSkipDirs[name] {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// triggerReindex runs one reindexPass, coalescing concurrent fires: if a
// pass is already running when called, it marks a follow-up pending and
// returns immediately rather than starting a second orchestrator run.
func triggerReindex(ctx context.Context, state *watchState, cwd string, cfg *Config, backend *storage.EmbeddedBackend, logger *slog.Logger, globals GlobalFlags) {
	state.mu.Lock()
	if state.inProgress {
		state.pending = true
		state.mu.Unlock()
		return
	}
	state.inProgress = true
	state.mu.Unlock()

	go func() {
		for {
			result, err := reindexPass(ctx, reindexParams{
				cwd:          cwd,
				cfg:          cfg,
				backend:      backend,
				logger:       logger,
				full:         false,
				parseWorkers: cfg.Indexing.ParseWorkers,
			})

			state.mu.Lock()
			state.runs++
			state.lastErr = err
			again := state.pending
			state.pending = false
			state.mu.Unlock()

			if err != nil {
				logger.Warn("watch.reindex.error", "err", err)
			} else if result.FilesIndexed > 0 && !globals.Quiet {
				ui.Info(fmt.Sprintf("Reindexed %s (%s skipped)",
					ui.CountText(result.FilesIndexed, "file"),
					ui.CountText(result.FilesSkipped, "file")))
			}

			if !again {
				break
			}
		}

		state.mu.Lock()
		state.inProgress = false
		state.mu.Unlock()
	}()
}
