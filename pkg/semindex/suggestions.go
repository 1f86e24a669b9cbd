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

package semindex

import (
	"sort"
	"strconv"
	"strings"
)

// SymbolSuggestion is a candidate "did you mean?" match for a symbol name
// that was not found.
type SymbolSuggestion struct {
	Name     string
	Kind     SymbolKind
	FilePath FilePath
	Line     int
	score    int
}

// SuggestSymbols ranks every symbol in graph against name and returns the
// closest limit matches, for use when a lookup (by call chain root, query
// tool, etc.) fails to find an exact symbol. Candidates whose name contains
// name as a case-insensitive substring are ranked first by how much of the
// name they match; everything else is ranked by edit distance, and anything
// further than half the query's length plus one away is dropped.
func SuggestSymbols(graph *SemanticGraph, name string, limit int) []SymbolSuggestion {
	if limit <= 0 {
		limit = 5
	}
	needle := strings.ToLower(name)
	maxDistance := len(needle)/2 + 1

	var candidates []SymbolSuggestion
	for _, idx := range graph.Files {
		for _, def := range idx.Symbols {
			if def.Name == "" || strings.EqualFold(def.Name, name) {
				continue
			}
			s := SymbolSuggestion{
				Name:     def.Name,
				Kind:     def.Kind,
				FilePath: def.Location.File,
				Line:     def.Location.StartLine,
			}
			hay := strings.ToLower(def.Name)
			switch {
			case strings.Contains(hay, needle):
				s.score = len(hay) - len(needle)
			default:
				d := levenshtein(needle, hay)
				if d > maxDistance {
					continue
				}
				s.score = d + len(needle)
			}
			candidates = append(candidates, s)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		iSub := strings.Contains(strings.ToLower(candidates[i].Name), needle)
		jSub := strings.Contains(strings.ToLower(candidates[j].Name), needle)
		if iSub != jSub {
			return iSub
		}
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].Name < candidates[j].Name
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// FormatSuggestions renders suggestions as a "Did you mean?" block, or an
// empty string when there are none.
func FormatSuggestions(suggestions []SymbolSuggestion) string {
	if len(suggestions) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Did you mean?\n")
	for _, s := range suggestions {
		sb.WriteString("- ")
		sb.WriteString(s.Name)
		sb.WriteString(" (")
		sb.WriteString(string(s.FilePath))
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(s.Line))
		sb.WriteString(")\n")
	}
	return sb.String()
}

// levenshtein computes the edit distance between a and b using the
// classic single-row dynamic-programming table.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
