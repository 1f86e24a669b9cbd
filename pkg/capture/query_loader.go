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

package capture

import (
	"embed"
	"fmt"
	"os"
	"sync"
)

//go:embed patterns/*.scm
var defaultPatterns embed.FS

// Language mirrors semindex.Language without importing it, so pkg/capture
// stays a leaf package with no dependency on the core pipeline.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Python     Language = "python"
	Rust       Language = "rust"
)

// SupportedLanguages is the closed set of languages this loader resolves
// patterns for; part of the public contract (spec.md §6).
var SupportedLanguages = map[Language]bool{
	JavaScript: true,
	TypeScript: true,
	Python:     true,
	Rust:       true,
}

var patternFileByLanguage = map[Language]string{
	JavaScript: "patterns/javascript.scm",
	TypeScript: "patterns/typescript.scm",
	Python:     "patterns/python.scm",
	Rust:       "patterns/rust.scm",
}

// QueryLoader resolves a language to its capture-pattern text, caching the
// embedded defaults and allowing them to be overridden from disk.
type QueryLoader struct {
	mu        sync.RWMutex
	cache     map[Language]string
	overrides map[Language]string // absolute paths, checked before embedded defaults
}

// NewQueryLoader builds a loader backed by the embedded default patterns.
func NewQueryLoader() *QueryLoader {
	return &QueryLoader{cache: make(map[Language]string)}
}

// SetOverridePath registers a filesystem path whose contents should be
// used instead of the embedded default pattern for lang. Passing an empty
// path clears any previously registered override.
func (l *QueryLoader) SetOverridePath(lang Language, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.overrides == nil {
		l.overrides = make(map[Language]string)
	}
	if path == "" {
		delete(l.overrides, lang)
	} else {
		l.overrides[lang] = path
	}
	delete(l.cache, lang) // force reload on next LoadQuery
}

// HasQuery reports whether a capture pattern is available for lang.
func (l *QueryLoader) HasQuery(lang Language) bool {
	return SupportedLanguages[lang]
}

// LoadQuery returns the capture-pattern text for lang, loading and caching
// it on first use. Returns ErrQueryFileNotFound-shaped errors (via the
// caller's own error kind mapping) for unsupported languages or unreadable
// override files.
func (l *QueryLoader) LoadQuery(lang Language) (string, error) {
	l.mu.RLock()
	if text, ok := l.cache[lang]; ok {
		l.mu.RUnlock()
		return text, nil
	}
	overridePath, hasOverride := l.overrides[lang]
	l.mu.RUnlock()

	if !l.HasQuery(lang) {
		return "", fmt.Errorf("capture: no pattern registered for language %q", lang)
	}

	var text string
	if hasOverride {
		data, err := loadOverride(overridePath)
		if err != nil {
			return "", fmt.Errorf("capture: load override pattern for %q: %w", lang, err)
		}
		text = data
	} else {
		data, err := defaultPatterns.ReadFile(patternFileByLanguage[lang])
		if err != nil {
			return "", fmt.Errorf("capture: load default pattern for %q: %w", lang, err)
		}
		text = string(data)
	}

	l.mu.Lock()
	l.cache[lang] = text
	l.mu.Unlock()
	return text, nil
}

func loadOverride(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
