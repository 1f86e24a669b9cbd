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
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// IndexingConfig tunes how a project is walked and indexed.
type IndexingConfig struct {
	// LocalDataDir overrides the default ~/.semindex/data storage root;
	// the project id is still appended beneath it. Relative paths are
	// resolved against the
	// directory containing project.yaml.
	LocalDataDir string `yaml:"local_data_dir,omitempty"`
	// Engine selects the CozoDB storage engine: rocksdb, sqlite, or mem.
	Engine string `yaml:"engine,omitempty"`
	// ParseWorkers bounds phase-0 parallelism. <=0 uses the orchestrator
	// default.
	ParseWorkers int `yaml:"parse_workers,omitempty"`
	// MaxCallChainDepth bounds call-chain traversal depth.
	MaxCallChainDepth int `yaml:"max_call_chain_depth,omitempty"`
	// ExcludeDirs lists directory names skipped during the file walk, in
	// addition to the built-in defaults (index.go's watchSkipDirs).
	ExcludeDirs []string `yaml:"exclude_dirs,omitempty"`
}

// Config is the full contents of .semindex/project.yaml.
type Config struct {
	ProjectID string         `yaml:"project_id"`
	Indexing  IndexingConfig `yaml:"indexing,omitempty"`
}

// DefaultConfig returns a Config populated with semindex's defaults,
// keyed to the given project id.
func DefaultConfig(projectID string) *Config {
	return &Config{
		ProjectID: projectID,
		Indexing: IndexingConfig{
			Engine:            "rocksdb",
			ParseWorkers:      4,
			MaxCallChainDepth: 10,
		},
	}
}

// ConfigDir is the project-local directory holding project.yaml.
const ConfigDir = ".semindex"

// ConfigFileName is the config file's name within ConfigDir.
const ConfigFileName = "project.yaml"

// findConfigFile walks up from the current working directory looking for
// .semindex/project.yaml, the way git locates .git.
func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, ConfigDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s/%s found in %s or any parent directory", ConfigDir, ConfigFileName, dir)
		}
		dir = parent
	}
}

// ConfigPath resolves the effective config file path: an explicit
// override, SEMINDEX_CONFIG_PATH, or the directory-walk default.
func ConfigPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if envPath := os.Getenv("SEMINDEX_CONFIG_PATH"); envPath != "" {
		return envPath, nil
	}
	return findConfigFile()
}

// LoadConfig reads and parses the project config at path (or the
// directory-walk default when path is empty), applying environment
// variable overrides afterward.
func LoadConfig(path string) (*Config, error) {
	resolved, err := ConfigPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", resolved, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", resolved, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// SaveConfig writes cfg as YAML to dir/.semindex/project.yaml, creating
// the directory if needed.
func SaveConfig(cfg *Config, dir string) (string, error) {
	configDir := filepath.Join(dir, ConfigDir)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	path := filepath.Join(configDir, ConfigFileName)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

// applyEnvOverrides lets SEMINDEX_* environment variables override fields
// loaded from project.yaml, the same precedence order the teacher's CLI
// used for CIE_* variables.
func applyEnvOverrides(cfg *Config) {
	if v := getEnv("SEMINDEX_PROJECT_ID"); v != "" {
		cfg.ProjectID = v
	}
	if v := getEnv("SEMINDEX_DATA_DIR"); v != "" {
		cfg.Indexing.LocalDataDir = v
	}
	if v := getEnv("SEMINDEX_ENGINE"); v != "" {
		cfg.Indexing.Engine = v
	}
	if v := getEnv("SEMINDEX_PARSE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Indexing.ParseWorkers = n
		}
	}
}

func getEnv(key string) string {
	return os.Getenv(key)
}

// dataRootFromConfig resolves the storage root with precedence:
// SEMINDEX_DATA_DIR > indexing.local_data_dir (resolved against the
// config file's directory) > ~/.semindex/data.
func dataRootFromConfig(cfg *Config, configPath string) (string, error) {
	if envDir := os.Getenv("SEMINDEX_DATA_DIR"); envDir != "" {
		return absPath(envDir)
	}

	if cfg != nil && cfg.Indexing.LocalDataDir != "" {
		custom := cfg.Indexing.LocalDataDir
		if filepath.IsAbs(custom) {
			return filepath.Clean(custom), nil
		}
		if resolved, err := ConfigPath(configPath); err == nil {
			return filepath.Clean(filepath.Join(filepath.Dir(resolved), custom)), nil
		}
		return absPath(custom)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, ".semindex", "data"), nil
}

// projectDataDir resolves the effective per-project data directory.
func projectDataDir(cfg *Config, configPath string) (string, error) {
	root, err := dataRootFromConfig(cfg, configPath)
	if err != nil {
		return "", err
	}
	if cfg == nil || cfg.ProjectID == "" {
		return root, nil
	}
	return filepath.Join(root, cfg.ProjectID), nil
}

func absPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
