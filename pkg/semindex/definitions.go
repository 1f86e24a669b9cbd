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
	"strings"

	"github.com/kraklabs/semindex/pkg/capture"
)

var definitionSymbolKind = map[capture.Entity]SymbolKind{
	capture.EntityFunction:    SymFunction,
	capture.EntityMethod:      SymMethod,
	capture.EntityClass:       SymClass,
	capture.EntityInterface:   SymInterface,
	capture.EntityVariable:    SymVariable,
	capture.EntityParameter:   SymParameter,
	capture.EntityConstructor: SymConstructor,
	capture.EntityField:       SymField,
	capture.EntityTypeAlias:   SymTypeAlias,
	capture.EntityModule:      SymModule,
}

// DefinitionExtractor turns definition captures into SymbolDefinitions,
// attaches each to its containing scope's local-symbol map, and aggregates
// classes' methods/fields as they are discovered.
type DefinitionExtractor struct {
	tree *ScopeTree

	// classNameByScope maps a class/interface scope's ID to its name, so
	// methods/fields/constructors nested in that scope can record their
	// OwningClass.
	classNameByScope map[ScopeId]string

	// funcScopeToSymbol maps a function/method/constructor's own body
	// scope to its SymbolId, so the reference extractor can determine the
	// enclosing caller for a call site.
	funcScopeToSymbol map[ScopeId]SymbolId
}

// NewDefinitionExtractor builds an extractor over an already-built scope
// tree for one file.
func NewDefinitionExtractor(tree *ScopeTree) *DefinitionExtractor {
	return &DefinitionExtractor{
		tree:              tree,
		classNameByScope:  make(map[ScopeId]string),
		funcScopeToSymbol: make(map[ScopeId]SymbolId),
	}
}

// Extract walks captures in order and returns every SymbolDefinition
// produced, as a slice in capture order. Scope Locals maps are mutated in place: a
// second definition of the same name in a scope shadows the first for
// lookups, but both ids remain queryable via the returned slice.
func (d *DefinitionExtractor) Extract(captures []capture.NormalizedCapture) []*SymbolDefinition {
	// First pass: associate every class/interface-defining capture with the
	// scope whose location it opened, so method/field definitions nested
	// inside can look up their owning class name.
	for _, c := range captures {
		if c.Category != capture.CategoryDefinition {
			continue
		}
		if c.Entity != capture.EntityClass && c.Entity != capture.EntityInterface {
			continue
		}
		loc := toLocation(d.tree.File, c.Location)
		scope := d.tree.FindContainingScope(loc)
		// The class body's own scope is a child of `scope` whose location
		// equals (or is contained by) the definition's enclosing range;
		// in practice capture patterns fire the class-name capture inside
		// the class node itself, so the nearest class-kind ancestor is the
		// right scope to tag.
		owner := nearestScope(d.tree, scope, ScopeClass)
		if owner != nil {
			d.classNameByScope[owner.ID] = c.Text
		}
	}

	var defs []*SymbolDefinition
	for _, c := range captures {
		if c.Category != capture.CategoryDefinition {
			continue
		}
		kind, ok := definitionSymbolKind[c.Entity]
		if !ok {
			continue
		}

		loc := toLocation(d.tree.File, c.Location)
		scope := d.tree.FindContainingScope(loc)
		ownScope := scope

		// A function/method/class/interface name sits inside the scope its
		// own definition opens (the scope capture's range always contains
		// the narrower name capture's range). The definition itself must
		// bind in the *enclosing* scope so other code can look it up by
		// name; only variables, parameters, and fields bind directly into
		// the scope that contains them.
		if opensOwnScope(kind) {
			if parent := d.tree.Get(scope.ParentID); parent != nil {
				scope = parent
			}
		}

		owningClass := ""
		if kind == SymMethod || kind == SymConstructor || kind == SymField {
			if classScope := nearestScope(d.tree, scope, ScopeClass); classScope != nil {
				owningClass = d.classNameByScope[classScope.ID]
			}
		}

		sym := &SymbolDefinition{
			ID:           GenerateSymbolId(kind, c.Text, owningClass, loc),
			Name:         c.Text,
			Kind:         kind,
			Location:     loc,
			ScopeID:      scope.ID,
			Availability: availabilityFor(c.Text, kind),
			OwningClass:  owningClass,
			Modifiers:    c.Modifiers,
		}
		defs = append(defs, sym)

		// Second definition of the same name shadows the first for lookup
		// purposes (spec.md §4.3); both ids stay queryable via defs.
		scope.Locals[sym.Name] = sym.ID

		if kind == SymFunction || kind == SymMethod || kind == SymConstructor {
			d.funcScopeToSymbol[ownScope.ID] = sym.ID
		}
	}
	return defs
}

// EnclosingCallerSymbol returns the SymbolId of the nearest enclosing
// function/method/constructor containing scope, or ModuleCaller if scope
// (or none of its ancestors) is a function-kind scope.
func (d *DefinitionExtractor) EnclosingCallerSymbol(scope *LexicalScope) SymbolId {
	current := scope
	for current != nil {
		if id, ok := d.funcScopeToSymbol[current.ID]; ok {
			return id
		}
		if current.ParentID == "" {
			break
		}
		current = d.tree.Get(current.ParentID)
	}
	return ModuleCaller
}

func opensOwnScope(kind SymbolKind) bool {
	switch kind {
	case SymFunction, SymMethod, SymClass, SymInterface, SymConstructor:
		return true
	default:
		return false
	}
}

// nearestScope walks up from scope (inclusive) to the tree root looking
// for the nearest ancestor of the given kind.
func nearestScope(tree *ScopeTree, scope *LexicalScope, kind ScopeKind) *LexicalScope {
	current := scope
	for current != nil {
		if current.Kind == kind {
			return current
		}
		if current.ParentID == "" {
			return nil
		}
		current = tree.Get(current.ParentID)
	}
	return nil
}

// availabilityFor applies a naming heuristic: a name with a leading
// underscore (Python/JS convention) or "#" (JS private field) is private;
// every other name is public. Capitalization, kind and modifiers are not
// considered.
func availabilityFor(name string, kind SymbolKind) Availability {
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, "#") {
		return Private
	}
	return Public
}
