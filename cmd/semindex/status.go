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
	"os"

	flag "github.com/spf13/pflag"

	apperrors "github.com/kraklabs/semindex/internal/errors"
	"github.com/kraklabs/semindex/internal/output"
	"github.com/kraklabs/semindex/internal/ui"
	"github.com/kraklabs/semindex/pkg/storage"
)

// StatusResult is the structured shape printed by 'semindex --json status'.
type StatusResult struct {
	ProjectID        string `json:"project_id"`
	DataDir          string `json:"data_dir"`
	Files            int    `json:"files"`
	Symbols          int    `json:"symbols"`
	Calls            int    `json:"calls"`
	Imports          int    `json:"imports"`
	Classes          int    `json:"classes"`
	InterfaceImpls   int    `json:"interface_implementations"`
}

// runStatus executes the 'status' command: counts rows in each relation
// and prints a summary, either as labeled text or as JSON.
func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		apperrors.FatalError(apperrors.NewConfigError("No semindex configuration found", err.Error(), "Run 'semindex init' first"), globals.JSON)
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
		apperrors.FatalError(apperrors.NewDatabaseError("Cannot open local database", err.Error(), ""), globals.JSON)
	}
	defer backend.Close()

	ctx := context.Background()
	result := StatusResult{ProjectID: cfg.ProjectID, DataDir: dataDir}
	result.Files = queryCount(ctx, backend, "semindex_file", "path")
	result.Symbols = queryCount(ctx, backend, "semindex_symbol", "id")
	result.Calls = queryCount(ctx, backend, "semindex_call", "id")
	result.Imports = queryCount(ctx, backend, "semindex_import", "id")
	result.Classes = queryCount(ctx, backend, "semindex_class", "id")
	result.InterfaceImpls = queryCount(ctx, backend, "semindex_interface_impl", "id")

	if globals.JSON {
		if err := output.JSON(result); err != nil {
			apperrors.FatalError(apperrors.NewInternalError("Failed to encode status", err.Error(), ""), true)
		}
		return
	}

	ui.Header("semindex status")
	ui.Label("Project", result.ProjectID)
	ui.Label("Data directory", result.DataDir)
	ui.Rule()
	ui.Label("Files", ui.CountText(result.Files, "file"))
	ui.Label("Symbols", ui.CountText(result.Symbols, "symbol"))
	ui.Label("Calls", ui.CountText(result.Calls, "call"))
	ui.Label("Imports", ui.CountText(result.Imports, "import"))
	ui.Label("Classes", ui.CountText(result.Classes, "class"))
	ui.Label("Interface implementations", ui.CountText(result.InterfaceImpls, "implementation"))
}

// queryCount runs a count(pk) aggregate over table and returns 0 on any
// error, since a freshly initialized but unindexed project is a normal
// state for 'status' to report, not a failure.
func queryCount(ctx context.Context, backend *storage.EmbeddedBackend, table, pk string) int {
	query := fmt.Sprintf("?[count(%s)] := *%s { %s }", pk, table, pk)
	result, err := backend.Query(ctx, query)
	if err != nil || len(result.Rows) == 0 {
		return 0
	}
	switch v := result.Rows[0][0].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
