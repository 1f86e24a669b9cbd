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
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	apperrors "github.com/kraklabs/semindex/internal/errors"
	"github.com/kraklabs/semindex/internal/output"
	"github.com/kraklabs/semindex/internal/ui"
)

// runInit creates .semindex/project.yaml in the current directory,
// deriving a default project id from the directory name unless one is
// given explicitly.
func runInit(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	projectID := fs.String("project-id", "", "Project identifier (default: current directory name)")
	engine := fs.String("engine", "rocksdb", "CozoDB storage engine: rocksdb, sqlite, or mem")
	force := fs.Bool("force", false, "Overwrite an existing .semindex/project.yaml")
	if err := fs.Parse(args); err != nil {
		apperrors.FatalError(apperrors.NewInputError("Invalid init flags", err.Error(), "Run 'semindex init --help' for usage"), globals.JSON)
	}

	cwd, err := os.Getwd()
	if err != nil {
		apperrors.FatalError(apperrors.NewInternalError("Cannot determine working directory", err.Error(), ""), globals.JSON)
	}

	if *projectID == "" {
		*projectID = filepath.Base(cwd)
	}

	configFile := filepath.Join(cwd, ConfigDir, ConfigFileName)
	if _, err := os.Stat(configFile); err == nil && !*force {
		apperrors.FatalError(apperrors.NewConfigError(
			"Configuration already exists",
			configFile+" already exists",
			"Pass --force to overwrite it",
		), globals.JSON)
	}

	cfg := DefaultConfig(*projectID)
	cfg.Indexing.Engine = *engine

	path, err := SaveConfig(cfg, cwd)
	if err != nil {
		apperrors.FatalError(apperrors.NewConfigError("Failed to write configuration", err.Error(), ""), globals.JSON)
	}

	if err := addToGitignore(cwd); err != nil && globals.Verbose >= 1 {
		fmt.Fprintf(os.Stderr, "[INFO] could not update .gitignore: %v\n", err)
	}

	if globals.JSON {
		_ = output.JSON(map[string]any{"config_path": path, "project_id": *projectID})
		return
	}

	ui.Success(fmt.Sprintf("Created %s", path))
	ui.Label("Project ID", *projectID)
	ui.Label("Engine", *engine)
	ui.Info("Next: run 'semindex index' to build the semantic graph")
}

// addToGitignore appends a .semindex data-ignore entry to dir/.gitignore
// if it isn't already present, mirroring the teacher's init-time courtesy
// edit so generated indexing state doesn't get committed by accident.
func addToGitignore(dir string) error {
	path := filepath.Join(dir, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	entry := ConfigDir + "/data/"
	content := string(existing)
	for _, line := range splitLines(content) {
		if line == entry {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return err
	}
	defer f.Close()

	if len(content) > 0 && content[len(content)-1] != '\n' {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(entry + "\n")
	return err
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
