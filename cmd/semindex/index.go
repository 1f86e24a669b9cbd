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
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	apperrors "github.com/kraklabs/semindex/internal/errors"
	"github.com/kraklabs/semindex/internal/output"
	"github.com/kraklabs/semindex/internal/ui"
	"github.com/kraklabs/semindex/pkg/semindex"
	"github.com/kraklabs/semindex/pkg/storage"
)

// watchSkipDirs names directories never walked during indexing, shared
// with watch.go's fsnotify filter.
var watchSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	".semindex":    true,
	"target":       true,
	"__pycache__":  true,
}

// extToLanguage maps recognized source extensions to a Language.
var extToLanguage = map[string]semindex.Language{
	".js":  semindex.LangJavaScript,
	".jsx": semindex.LangJavaScript,
	".mjs": semindex.LangJavaScript,
	".ts":  semindex.LangTypeScript,
	".tsx": semindex.LangTypeScript,
	".py":  semindex.LangPython,
	".rs":  semindex.LangRust,
}

// runIndex executes the 'index' CLI command: walk the repository, detect
// which files changed since the last run (unless --full is given), run
// the four-phase orchestrator over them, and persist the resulting graph.
func runIndex(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "Force full reindex, ignoring content-hash skip checks")
	parseWorkers := fs.Int("parse-workers", 0, "Parallel file-parsing workers (default: from config or 4)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: semindex index [options]

Description:
  Index the current repository: parse every JavaScript, TypeScript,
  Python, and Rust file with Tree-sitter, resolve names and call chains,
  build the class hierarchy and interface-implementation map, and store
  the result in the local CozoDB instance.

  Runs incrementally by default, skipping files whose content hash
  matches the last indexed run. Use --full to reprocess every file.

Options:
`)
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

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

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

	workers := *parseWorkers
	if workers <= 0 {
		workers = cfg.Indexing.ParseWorkers
	}

	var bar *progressbar.ProgressBar
	onProgress := func(current, total int, phase string) {
		if bar != nil {
			_ = bar.Set(current)
		}
	}

	result, err := reindexPass(ctx, reindexParams{
		cwd:          cwd,
		cfg:          cfg,
		backend:      backend,
		logger:       logger,
		full:         *full,
		parseWorkers: workers,
		before: func(total int) {
			if !globals.Quiet && total > 0 {
				bar = progressbar.Default(int64(total), "Indexing")
			}
		},
		onProgress: onProgress,
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		apperrors.FatalError(apperrors.NewInternalError("Indexing failed", err.Error(), "Check the error above and re-run 'semindex index'"), globals.JSON)
	}

	if result.FilesIndexed == 0 {
		if globals.JSON {
			_ = output.JSON(map[string]any{"files_indexed": 0, "files_skipped": result.FilesSkipped})
		} else {
			ui.Info(fmt.Sprintf("Nothing to index (%d files unchanged)", result.FilesSkipped))
		}
		return
	}

	if globals.JSON {
		_ = output.JSON(map[string]any{
			"files_indexed":    result.FilesIndexed,
			"files_skipped":    result.FilesSkipped,
			"symbols":          result.Symbols,
			"call_chains":      result.CallChains,
			"recursive_chains": result.RecursiveChains,
		})
		return
	}

	ui.Success(fmt.Sprintf("Indexed %s", ui.CountText(result.FilesIndexed, "file")))
	if result.FilesSkipped > 0 {
		ui.Info(fmt.Sprintf("Skipped %s (unchanged)", ui.CountText(result.FilesSkipped, "file")))
	}
	ui.Label("Symbols", fmt.Sprintf("%d", result.Symbols))
	ui.Label("Call chains", fmt.Sprintf("%d", result.CallChains))
	ui.Label("Recursive chains", fmt.Sprintf("%d", result.RecursiveChains))
}

// reindexParams bundles the inputs shared by a one-shot 'semindex index'
// run and each incremental pass triggered by 'semindex watch'.
type reindexParams struct {
	cwd          string
	cfg          *Config
	backend      *storage.EmbeddedBackend
	logger       *slog.Logger
	full         bool
	parseWorkers int
	// before, if set, is called with the number of files about to be
	// indexed before the orchestrator starts, so a caller can size a
	// progress bar. Not called when there is nothing to index.
	before     func(total int)
	onProgress semindex.ProgressCallback
}

// reindexResult summarizes the outcome of a single reindexPass call.
type reindexResult struct {
	FilesIndexed    int
	FilesSkipped    int
	Symbols         int
	CallChains      int
	RecursiveChains int
}

// reindexPass discovers source files under p.cwd, skips any whose content
// hash is unchanged since the last run (unless p.full), runs the
// orchestrator over what remains, and persists the resulting graph. It is
// the shared core of both 'semindex index' and every debounced pass of
// 'semindex watch'.
func reindexPass(ctx context.Context, p reindexParams) (reindexResult, error) {
	excludeDirs := make(map[string]bool, len(watchSkipDirs)+len(p.cfg.Indexing.ExcludeDirs))
	for d := range watchSkipDirs {
		excludeDirs[d] = true
	}
	for _, d := range p.cfg.Indexing.ExcludeDirs {
		excludeDirs[d] = true
	}

	candidates, err := discoverSourceFiles(p.cwd, excludeDirs)
	if err != nil {
		return reindexResult{}, fmt.Errorf("walk repository: %w", err)
	}

	var files []semindex.SourceFile
	var skipped int
	for _, rel := range candidates {
		lang := extToLanguage[strings.ToLower(filepath.Ext(rel))]
		content, err := os.ReadFile(filepath.Join(p.cwd, rel))
		if err != nil {
			p.logger.Warn("index.read.error", "path", rel, "err", err)
			continue
		}
		hash := semindex.ContentHash(content)
		if !p.full {
			needs, err := p.backend.NeedsReindex(rel, hash)
			if err == nil && !needs {
				skipped++
				continue
			}
		}
		files = append(files, semindex.SourceFile{Path: semindex.FilePath(rel), Language: lang, Content: content})
	}

	if len(files) == 0 {
		return reindexResult{FilesSkipped: skipped}, nil
	}

	if p.before != nil {
		p.before(len(files))
	}

	orch := semindex.NewOrchestrator(semindex.OrchestratorConfig{
		ParseWorkers:      p.parseWorkers,
		MaxCallChainDepth: p.cfg.Indexing.MaxCallChainDepth,
	}, nil, p.logger)
	if p.onProgress != nil {
		orch.SetProgressCallback(p.onProgress)
	}

	for _, f := range files {
		if err := p.backend.DeleteEntitiesForFile(string(f.Path)); err != nil {
			p.logger.Warn("index.delete_stale.error", "path", f.Path, "err", err)
		}
	}

	graph, err := orch.Run(ctx, files)
	if err != nil {
		return reindexResult{}, fmt.Errorf("run orchestrator: %w", err)
	}

	hashes := make(map[string]string, len(files))
	sizes := make(map[string]int, len(files))
	for _, f := range files {
		hashes[string(f.Path)] = semindex.ContentHash(f.Content)
		sizes[string(f.Path)] = len(f.Content)
	}

	if err := p.backend.WriteGraph(ctx, graph, hashes, sizes); err != nil {
		return reindexResult{}, fmt.Errorf("persist graph: %w", err)
	}

	return reindexResult{
		FilesIndexed:    len(files),
		FilesSkipped:    skipped,
		Symbols:         totalSymbolCount(graph),
		CallChains:      len(graph.Chains.Chains),
		RecursiveChains: len(graph.Chains.RecursiveChains),
	}, nil
}

func totalSymbolCount(graph *semindex.SemanticGraph) int {
	n := 0
	for _, idx := range graph.Files {
		n += len(idx.Symbols)
	}
	return n
}

// discoverSourceFiles walks root for files with a recognized source
// extension, skipping any directory named in exclude, and returns their
// paths relative to root.
func discoverSourceFiles(root string, exclude map[string]bool) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if info.IsDir() {
			if rel != "." && exclude[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]; ok {
			out = append(out, rel)
		}
		return nil
	})
	return out, err
}
