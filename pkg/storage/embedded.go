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

// Package storage persists a *semindex.SemanticGraph into an embedded
// CozoDB instance and serves read queries back out of it.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	cozo "github.com/kraklabs/semindex/pkg/cozodb"
	"github.com/kraklabs/semindex/pkg/semindex"
)

// EmbeddedBackend implements Backend using a local CozoDB instance. This is
// the only backend semindex ships: everything is a single-process, local
// graph store, with no remote/server mode.
type EmbeddedBackend struct {
	db     *cozo.CozoDB
	mu     sync.RWMutex
	closed bool
}

// EmbeddedConfig configures the embedded backend.
type EmbeddedConfig struct {
	// DataDir is the directory where CozoDB stores its data.
	// Defaults to ~/.semindex/data/<project_id>.
	DataDir string

	// Engine is the CozoDB storage engine: "rocksdb", "sqlite", or "mem".
	// Defaults to "rocksdb" for persistence.
	Engine string

	// ProjectID namespaces the data directory.
	ProjectID string
}

// NewEmbeddedBackend creates a new embedded CozoDB backend.
func NewEmbeddedBackend(config EmbeddedConfig) (*EmbeddedBackend, error) {
	if config.Engine == "" {
		config.Engine = "rocksdb"
	}
	if config.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		config.DataDir = filepath.Join(homeDir, ".semindex", "data")
		if config.ProjectID != "" {
			config.DataDir = filepath.Join(config.DataDir, config.ProjectID)
		}
	}

	if err := os.MkdirAll(config.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := cozo.New(config.Engine, config.DataDir, nil)
	if err != nil {
		return nil, fmt.Errorf("open cozodb: %w", err)
	}

	return &EmbeddedBackend{db: &db}, nil
}

// Query executes a read-only Datalog query.
func (b *EmbeddedBackend) Query(ctx context.Context, datalog string) (*QueryResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("backend is closed")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := b.db.RunReadOnly(datalog, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	return FromNamedRows(result), nil
}

// Execute runs a Datalog mutation.
func (b *EmbeddedBackend) Execute(ctx context.Context, datalog string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("backend is closed")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, err := b.db.Run(datalog, nil)
	if err != nil {
		return fmt.Errorf("execute failed: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (b *EmbeddedBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	b.db.Close()
	return nil
}

// DB returns the underlying CozoDB instance for advanced operations. Use
// with caution; prefer the Backend interface methods.
func (b *EmbeddedBackend) DB() *cozo.CozoDB {
	return b.db
}

// EnsureSchema creates the semindex tables if they don't exist. Idempotent
// and safe to call multiple times. The schema carries no embedding tables:
// this pipeline is purely structural (call chains, hierarchy, interfaces),
// not a vector-search index.
func (b *EmbeddedBackend) EnsureSchema() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, table := range schemaTables {
		_, err := b.db.Run(table, nil)
		if err != nil {
			errStr := err.Error()
			if strings.Contains(errStr, "already exists") ||
				strings.Contains(errStr, "conflicts with an existing one") {
				continue
			}
			return fmt.Errorf("create table failed: %w", err)
		}
	}

	return nil
}

// GetProjectMeta retrieves a metadata value by key. Returns empty string if
// the key doesn't exist.
func (b *EmbeddedBackend) GetProjectMeta(key string) (string, error) {
	query := `?[value] := *semindex_project_meta{key, value}, key = $key`
	params := map[string]interface{}{"key": key}

	b.mu.RLock()
	result, err := b.db.Run(query, params)
	b.mu.RUnlock()

	if err != nil {
		return "", err
	}
	if len(result.Rows) == 0 {
		return "", nil
	}
	if val, ok := result.Rows[0][0].(string); ok {
		return val, nil
	}
	return "", nil
}

// SetProjectMeta sets a metadata value by key.
func (b *EmbeddedBackend) SetProjectMeta(key, value string) error {
	query := `?[key, value] <- [[$key, $value]] :put semindex_project_meta { key, value }`
	params := map[string]interface{}{"key": key, "value": value}

	b.mu.Lock()
	_, err := b.db.Run(query, params)
	b.mu.Unlock()

	return err
}

// NeedsReindex reports whether path's current content hash differs from
// the hash recorded for it on the last indexing run (or whether path was
// never indexed at all), per the incremental-reindex supplement.
func (b *EmbeddedBackend) NeedsReindex(path string, contentHash string) (bool, error) {
	query := `?[hash] := *semindex_file{path: p, content_hash: hash}, p = $path`
	params := map[string]interface{}{"path": path}

	b.mu.RLock()
	result, err := b.db.Run(query, params)
	b.mu.RUnlock()

	if err != nil {
		return true, err
	}
	if len(result.Rows) == 0 {
		return true, nil
	}
	stored, _ := result.Rows[0][0].(string)
	return stored != contentHash, nil
}

// WriteGraph persists an entire indexing run's SemanticGraph, replacing any
// prior rows for the files in graph.Files. It is invoked once per
// indexing pass, after DeleteEntitiesForFile has cleared stale rows for
// any file being re-indexed.
func (b *EmbeddedBackend) WriteGraph(ctx context.Context, graph *semindex.SemanticGraph, contentHashes map[string]string, sizes map[string]int) error {
	builder := NewGraphDatalogBuilder()
	var script strings.Builder

	for path, idx := range graph.Files {
		script.WriteString(builder.BuildFileMutation(string(path), idx.Language, contentHashes[string(path)], sizes[string(path)]))
	}
	for _, idx := range graph.Files {
		script.WriteString(builder.BuildSymbolMutations(idx))
	}
	script.WriteString(builder.BuildCallMutations(graph.CallGraph))
	script.WriteString(builder.BuildImportMutations(graph.Imports))
	script.WriteString(builder.BuildClassMutations(graph.Hierarchy))
	script.WriteString(builder.BuildInterfaceImplMutations(graph.Interfaces))

	return b.Execute(ctx, script.String())
}

// DeleteEntitiesForFile removes a file's rows from semindex_file,
// semindex_symbol, semindex_import and semindex_class, plus every
// semindex_call row whose caller or callee is one of its symbols;
// semindex_interface_impl rows are not removed. Used during incremental indexing when a file is deleted or about to be
// re-indexed.
func (b *EmbeddedBackend) DeleteEntitiesForFile(filePath string) error {
	queries := []string{
		`?[id] := *semindex_call{id, caller_id}, *semindex_symbol{id: caller_id, file_path}, file_path = $path
		 :rm semindex_call {id}`,
		`?[id] := *semindex_call{id, callee_id}, *semindex_symbol{id: callee_id, file_path}, file_path = $path
		 :rm semindex_call {id}`,
		`?[id] := *semindex_symbol{id, file_path}, file_path = $path
		 :rm semindex_symbol {id}`,
		`?[id] := *semindex_import{id, importing_file}, importing_file = $path
		 :rm semindex_import {id}`,
		`?[id] := *semindex_class{id, file_path}, file_path = $path
		 :rm semindex_class {id}`,
		`?[id] := *semindex_file{id, path}, path = $path
		 :rm semindex_file {id}`,
	}

	params := map[string]interface{}{"path": filePath}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, query := range queries {
		if _, err := b.db.Run(query, params); err != nil {
			continue
		}
	}

	return nil
}
