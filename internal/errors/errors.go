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

// Package errors provides structured, user-facing errors for the semindex
// CLI. Every error carries a title, a detail line explaining what went
// wrong, and a suggestion telling the user what to try next. Library code
// under pkg/semindex returns plain wrapped errors; only the CLI layer
// escalates into these structured kinds.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
)

// Kind classifies a UserError for exit-code and formatting purposes.
type Kind string

const (
	KindConfig     Kind = "config"
	KindInput      Kind = "input"
	KindPermission Kind = "permission"
	KindDatabase   Kind = "database"
	KindNetwork    Kind = "network"
	KindInternal   Kind = "internal"
)

// UserError is a structured error meant to be shown directly to a human.
type UserError struct {
	Kind       Kind   `json:"kind"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (e *UserError) Error() string {
	if e.Detail == "" {
		return e.Title
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

func newUserError(kind Kind, title, detail, suggestion string) *UserError {
	return &UserError{Kind: kind, Title: title, Detail: detail, Suggestion: suggestion}
}

// NewConfigError reports a problem with project configuration (missing or
// malformed .semindex/project.yaml, unsupported version, and so on).
func NewConfigError(title, detail, suggestion string) *UserError {
	return newUserError(KindConfig, title, detail, suggestion)
}

// NewInputError reports a problem with user-supplied input (flags,
// arguments, query scripts).
func NewInputError(title, detail, suggestion string) *UserError {
	return newUserError(KindInput, title, detail, suggestion)
}

// NewPermissionError reports an OS-level permission or access failure.
func NewPermissionError(title, detail, suggestion string) *UserError {
	return newUserError(KindPermission, title, detail, suggestion)
}

// NewDatabaseError reports a failure in the embedded storage backend.
func NewDatabaseError(title, detail, suggestion string) *UserError {
	return newUserError(KindDatabase, title, detail, suggestion)
}

// NewNetworkError reports a failure reaching a remote collaborator.
func NewNetworkError(title, detail, suggestion string) *UserError {
	return newUserError(KindNetwork, title, detail, suggestion)
}

// NewInternalError reports a bug: something that should never happen.
func NewInternalError(title, detail, suggestion string) *UserError {
	return newUserError(KindInternal, title, detail, suggestion)
}

// exitCode maps an error kind to a process exit code.
func (k Kind) exitCode() int {
	switch k {
	case KindConfig:
		return 2
	case KindInput:
		return 2
	case KindPermission:
		return 3
	case KindDatabase:
		return 4
	case KindNetwork:
		return 5
	default:
		return 1
	}
}

// FatalError prints err to stderr (plain text or JSON depending on
// jsonMode) and terminates the process with an error kind's exit code.
// If err is nil, FatalError returns without doing anything.
func FatalError(err error, jsonMode bool) {
	if err == nil {
		return
	}

	ue, ok := err.(*UserError)
	if !ok {
		ue = newUserError(KindInternal, "Unexpected error", err.Error(), "")
	}

	if jsonMode {
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{
			"error": map[string]any{
				"kind":       ue.Kind,
				"title":      ue.Title,
				"detail":     ue.Detail,
				"suggestion": ue.Suggestion,
			},
		})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", ue.Title)
		if ue.Detail != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", ue.Detail)
		}
		if ue.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "\n  Suggestion: %s\n", ue.Suggestion)
		}
	}

	os.Exit(ue.Kind.exitCode())
}
