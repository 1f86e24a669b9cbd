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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(names ...string) *SemanticGraph {
	idx := &SemanticIndex{
		File:    "widgets.py",
		Symbols: make(map[SymbolId]*SymbolDefinition, len(names)),
	}
	for i, name := range names {
		loc := Location{File: idx.File, StartLine: i + 1}
		id := GenerateSymbolId(SymFunction, name, "", loc)
		idx.Symbols[id] = &SymbolDefinition{
			ID:       id,
			Name:     name,
			Kind:     SymFunction,
			Location: loc,
		}
	}
	return &SemanticGraph{Files: map[FilePath]*SemanticIndex{idx.File: idx}}
}

func TestSuggestSymbols_SubstringMatchRankedFirst(t *testing.T) {
	g := newTestGraph("handleRequest", "handleRequestBody", "parseArgs")

	suggestions := SuggestSymbols(g, "handleRequest", 5)

	require.NotEmpty(t, suggestions)
	assert.Equal(t, "handleRequestBody", suggestions[0].Name, "the exact substring match should rank first")
}

func TestSuggestSymbols_ExcludesExactMatch(t *testing.T) {
	g := newTestGraph("handleRequest", "handleRequestBody")

	suggestions := SuggestSymbols(g, "handleRequest", 5)

	for _, s := range suggestions {
		assert.NotEqual(t, "handleRequest", s.Name, "an exact (case-insensitive) match is not its own suggestion")
	}
}

func TestSuggestSymbols_FuzzyMatchWithinEditDistance(t *testing.T) {
	g := newTestGraph("hanldeRequest", "parseArgs")

	suggestions := SuggestSymbols(g, "handleRequest", 5)

	require.Len(t, suggestions, 1)
	assert.Equal(t, "hanldeRequest", suggestions[0].Name)
}

func TestSuggestSymbols_RespectsLimit(t *testing.T) {
	g := newTestGraph("testOne", "testTwo", "testThree", "testFour")

	suggestions := SuggestSymbols(g, "test", 2)

	assert.Len(t, suggestions, 2)
}

func TestFormatSuggestions_Empty(t *testing.T) {
	assert.Equal(t, "", FormatSuggestions(nil))
}

func TestFormatSuggestions_ListsNameAndLocation(t *testing.T) {
	suggestions := []SymbolSuggestion{{Name: "handleRequestBody", FilePath: "widgets.py", Line: 2}}

	out := FormatSuggestions(suggestions)

	assert.Contains(t, out, "Did you mean?")
	assert.Contains(t, out, "handleRequestBody")
	assert.Contains(t, out, "widgets.py:2")
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"handle", "hanlde", 2},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, levenshtein(c.a, c.b), "levenshtein(%q, %q)", c.a, c.b)
	}
}
