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
	"strings"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	apperrors "github.com/kraklabs/semindex/internal/errors"
	"github.com/kraklabs/semindex/internal/output"
	"github.com/kraklabs/semindex/pkg/storage"
)

// runQuery executes the 'query' CLI command, running a CozoScript query
// against the locally indexed graph.
//
// Examples:
//
//	semindex query '?[name, file] := *semindex_symbol{ name, file_path: file }' --limit 10
//	semindex query '?[count(id)] := *semindex_symbol{ id }'
func runQuery(args []string, configPath string, globals GlobalFlags) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		apperrors.FatalError(apperrors.NewConfigError("No semindex configuration found", err.Error(), "Run 'semindex init' first"), globals.JSON)
	}

	fs := flag.NewFlagSet("query", flag.ExitOnError)
	timeout := fs.Duration("timeout", 30*time.Second, "Query timeout")
	limit := fs.Int("limit", 0, "Add :limit to query (0 = no limit)")
	suggest := fs.String("suggest", "", "If the query returns no rows, suggest symbol names similar to this one")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: semindex query [options] <cozoscript>

Description:
  Execute a CozoScript query against the indexed graph. CozoScript is a
  Datalog-based query language; see the semindex_* relations (files,
  symbols, calls, imports, classes, interface_impl) for the schema.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  semindex query "?[name, file] := *semindex_symbol{ name, file_path: file }" --limit 10
  semindex query "?[name] := *semindex_symbol{ name }, regex_matches(name, '(?i)parse')"
  semindex query "?[count(id)] := *semindex_file{ id }"
  semindex query "?[id] := *semindex_symbol{ id, name: 'hanldeRequest' }" --suggest handleRequest

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() == 0 {
		fs.Usage()
		apperrors.FatalError(apperrors.NewInputError(
			"Script argument required",
			"No CozoScript query provided",
			"Provide a query: semindex query '?[name] := *semindex_symbol{name}'",
		), globals.JSON)
	}

	script := fs.Arg(0)
	if *limit > 0 {
		script = strings.TrimSpace(script)
		if !strings.Contains(strings.ToLower(script), ":limit") {
			script = fmt.Sprintf("%s :limit %d", script, *limit)
		}
	}

	dataDir, err := projectDataDir(cfg, configPath)
	if err != nil {
		apperrors.FatalError(apperrors.NewConfigError("Cannot resolve data directory", err.Error(), ""), globals.JSON)
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		apperrors.FatalError(apperrors.NewDatabaseError(
			fmt.Sprintf("Project '%s' not indexed yet", cfg.ProjectID),
			"The semindex database does not exist for this project",
			"Run 'semindex index' first",
		), globals.JSON)
	}

	backend, err := storage.NewEmbeddedBackend(storage.EmbeddedConfig{
		DataDir:   dataDir,
		Engine:    cfg.Indexing.Engine,
		ProjectID: cfg.ProjectID,
	})
	if err != nil {
		apperrors.FatalError(apperrors.NewDatabaseError(
			"Cannot open semindex database",
			err.Error(),
			"Try 'semindex status' to check database health",
		), globals.JSON)
	}
	defer func() { _ = backend.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := backend.Query(ctx, script)
	if err != nil {
		if strings.Contains(err.Error(), "parse") || strings.Contains(err.Error(), "syntax") {
			apperrors.FatalError(apperrors.NewInputError(
				"Invalid CozoScript query syntax",
				err.Error(),
				"Run 'semindex query --help' for examples",
			), globals.JSON)
		}
		apperrors.FatalError(apperrors.NewDatabaseError("Query execution failed", err.Error(), ""), globals.JSON)
	}

	var suggestions []storage.SymbolSuggestion
	if len(result.Rows) == 0 && *suggest != "" {
		suggestions = storage.SuggestSymbolNames(ctx, backend, *suggest, 5)
	}

	if len(result.Rows) == 0 && !globals.JSON {
		fmt.Fprintf(os.Stderr, "Warning: query returned no results\n")
		fmt.Fprintf(os.Stderr, "Hint: try broadening your query or verify the project is indexed with 'semindex status'\n")
		if s := storage.FormatSymbolSuggestions(suggestions); s != "" {
			fmt.Fprint(os.Stderr, s)
		}
	}

	if globals.JSON {
		out := map[string]any{
			"headers": result.Headers,
			"rows":    result.Rows,
			"count":   len(result.Rows),
		}
		if len(suggestions) > 0 {
			out["suggestions"] = suggestions
		}
		_ = output.JSON(out)
		return
	}

	printQueryResult(result)
}

// printQueryResult prints query results as a tab-aligned table.
func printQueryResult(result *storage.QueryResult) {
	if len(result.Rows) == 0 {
		fmt.Println("No results")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	for i, h := range result.Headers {
		if i > 0 {
			_, _ = fmt.Fprint(w, "\t")
		}
		_, _ = fmt.Fprint(w, strings.ToUpper(h))
	}
	_, _ = fmt.Fprintln(w)

	for i := range result.Headers {
		if i > 0 {
			_, _ = fmt.Fprint(w, "\t")
		}
		_, _ = fmt.Fprint(w, "---")
	}
	_, _ = fmt.Fprintln(w)

	for _, row := range result.Rows {
		for i, cell := range row {
			if i > 0 {
				_, _ = fmt.Fprint(w, "\t")
			}
			_, _ = fmt.Fprint(w, formatCell(cell))
		}
		_, _ = fmt.Fprintln(w)
	}

	_ = w.Flush()
	fmt.Printf("\n(%d rows)\n", len(result.Rows))
}

// formatCell formats a single cell value for display in the query result table.
func formatCell(v any) string {
	switch val := v.(type) {
	case string:
		if len(val) > 60 {
			return val[:57] + "..."
		}
		return val
	case float64:
		if val == float64(int(val)) {
			return fmt.Sprintf("%d", int(val))
		}
		return fmt.Sprintf("%.2f", val)
	case nil:
		return "<null>"
	default:
		s := fmt.Sprintf("%v", val)
		if len(s) > 60 {
			return s[:57] + "..."
		}
		return s
	}
}
