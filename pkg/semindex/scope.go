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

import "github.com/kraklabs/semindex/pkg/capture"

// ScopeTree owns every LexicalScope built for one file, rooted at a
// synthetic module scope spanning the whole source text.
type ScopeTree struct {
	File    FilePath
	RootID  ScopeId
	scopes  map[ScopeId]*LexicalScope
	// order preserves build order for deterministic iteration.
	order []ScopeId
}

// Scopes returns every scope in build order.
func (t *ScopeTree) Scopes() []*LexicalScope {
	out := make([]*LexicalScope, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.scopes[id])
	}
	return out
}

// Get returns the scope for id, or nil if absent.
func (t *ScopeTree) Get(id ScopeId) *LexicalScope {
	return t.scopes[id]
}

var scopeEntityKind = map[capture.Entity]ScopeKind{
	"function": ScopeFunction,
	"method":   ScopeMethod,
	"class":    ScopeClass,
	"block":    ScopeBlock,
}

func scopeKindFor(c capture.NormalizedCapture) ScopeKind {
	if k, ok := scopeEntityKind[c.Entity]; ok {
		return k
	}
	return ScopeBlock
}

func toLocation(file FilePath, loc capture.NodeLocation) Location {
	return Location{
		File:      file,
		StartLine: loc.StartPosition.Row,
		StartCol:  loc.StartPosition.Column,
		EndLine:   loc.EndPosition.Row,
		EndCol:    loc.EndPosition.Column,
	}
}

// BuildScopeTree constructs the scope tree for one file from its ordered
// capture stream. It starts with a synthetic module root scope spanning
// the whole file, then opens a new scope for every capture.Category ==
// CategoryScope capture, nesting it under the innermost currently-open
// scope whose location contains it.
func BuildScopeTree(file FilePath, fileLoc Location, captures []capture.NormalizedCapture) *ScopeTree {
	root := &LexicalScope{
		ID:       GenerateScopeId(file, ScopeModule, fileLoc),
		Kind:     ScopeModule,
		Location: fileLoc,
		Locals:   make(map[string]SymbolId),
	}

	tree := &ScopeTree{
		File:   file,
		RootID: root.ID,
		scopes: map[ScopeId]*LexicalScope{root.ID: root},
		order:  []ScopeId{root.ID},
	}

	// openStack holds scopes currently open, outermost first; used to find
	// the innermost scope containing a new capture's location in O(depth).
	openStack := []*LexicalScope{root}

	for _, c := range captures {
		if c.Category != capture.CategoryScope {
			continue
		}
		loc := toLocation(file, c.Location)
		kind := scopeKindFor(c)

		// Pop stack entries whose range no longer contains loc.
		for len(openStack) > 1 && !openStack[len(openStack)-1].Location.Contains(loc) {
			openStack = openStack[:len(openStack)-1]
		}
		parent := openStack[len(openStack)-1]

		scope := &LexicalScope{
			ID:       GenerateScopeId(file, kind, loc),
			Kind:     kind,
			Location: loc,
			ParentID: parent.ID,
			Locals:   make(map[string]SymbolId),
		}
		parent.ChildIDs = append(parent.ChildIDs, scope.ID)
		tree.scopes[scope.ID] = scope
		tree.order = append(tree.order, scope.ID)
		openStack = append(openStack, scope)
	}

	return tree
}

// FindContainingScope walks the tree from root, descending into the
// unique child whose location range contains loc, and returns the
// deepest such scope. Runs in time proportional to tree depth.
func (t *ScopeTree) FindContainingScope(loc Location) *LexicalScope {
	current := t.scopes[t.RootID]
	for {
		var next *LexicalScope
		for _, childID := range current.ChildIDs {
			child := t.scopes[childID]
			if child.Location.Contains(loc) {
				next = child
				break
			}
		}
		if next == nil {
			return current
		}
		current = next
	}
}
