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

package storage

import (
	"context"
	"fmt"
	"strings"
)

// SymbolSuggestion is a "did you mean?" candidate returned when a symbol
// lookup by exact name finds nothing in the indexed graph.
type SymbolSuggestion struct {
	Name     string
	FilePath string
	Line     int
}

// SuggestSymbolNames queries semindex_symbol for names that case-insensitively
// contain name, for use when a lookup by exact name comes back empty. Errors
// are swallowed into a nil result, since a suggestion query is a best-effort
// courtesy, not something a caller should fail over.
func SuggestSymbolNames(ctx context.Context, backend *EmbeddedBackend, name string, limit int) []SymbolSuggestion {
	if limit <= 0 {
		limit = 5
	}
	script := fmt.Sprintf(
		`?[name, file_path, start_line] := *semindex_symbol{name, file_path, start_line}, regex_matches(name, "(?i)%s") :limit %d`,
		escapeRegex(name), limit,
	)

	result, err := backend.Query(ctx, script)
	if err != nil || len(result.Rows) == 0 {
		return nil
	}

	out := make([]SymbolSuggestion, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 3 {
			continue
		}
		out = append(out, SymbolSuggestion{
			Name:     fmt.Sprintf("%v", row[0]),
			FilePath: fmt.Sprintf("%v", row[1]),
			Line:     anyToInt(row[2]),
		})
	}
	return out
}

// FormatSymbolSuggestions renders suggestions as a "Did you mean?" block,
// or an empty string when there are none.
func FormatSymbolSuggestions(suggestions []SymbolSuggestion) string {
	if len(suggestions) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Did you mean?\n")
	for _, s := range suggestions {
		fmt.Fprintf(&sb, "  %s (%s:%d)\n", s.Name, s.FilePath, s.Line)
	}
	return sb.String()
}

// escapeRegex escapes CozoScript regex metacharacters in a user-supplied
// search term so it is matched literally aside from the surrounding
// case-insensitive substring search.
func escapeRegex(s string) string {
	special := `\.+*?()|[]{}^$"`
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func anyToInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
