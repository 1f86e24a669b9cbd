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

// LocalTypeFlow holds per-file, pre-resolution type-flow hints used by the
// phase-2 method/constructor resolver: constructor calls keyed by the
// variable they were assigned to, and type annotations keyed by location.
type LocalTypeFlow struct {
	// ConstructorByVariable maps an assigned-to variable name to the class
	// name of the constructor call that produced it, scoped to the
	// variable's containing scope so shadowed names in nested scopes don't
	// collide.
	ConstructorByVariable map[ScopeId]map[string]string
	// AnnotationByLocation maps a LocationKey to a declared type name,
	// covering variable/parameter declarations with an explicit annotation.
	AnnotationByLocation map[LocationKey]string
}

// SemanticIndex is the per-file result of indexing: it exclusively owns
// the scope tree, definitions, references, and local type-flow records
// for one file. It is built once by the assembler and is immutable
// thereafter; global structures reference its entries by SymbolId only.
type SemanticIndex struct {
	File     FilePath
	Language Language

	ScopeTree *ScopeTree

	// Symbols maps SymbolId to its definition.
	Symbols map[SymbolId]*SymbolDefinition
	// DefinitionsByScope mirrors each scope's Locals map, duplicated here
	// for a stable, read-only public view (spec.md §4.5).
	DefinitionsByScope map[ScopeId]map[string]SymbolId

	References ReferenceBundle

	LocalTypeFlow LocalTypeFlow

	PackageName string
}

// AssembleFileIndex runs the capture normalizer's output for one file
// through the scope-tree builder, definition extractor, and reference
// extractor, and assembles the resulting SemanticIndex (spec.md §4.5).
func AssembleFileIndex(file FilePath, lang Language, fileLoc Location, captures []capture.NormalizedCapture) *SemanticIndex {
	tree := BuildScopeTree(file, fileLoc, captures)
	defExtractor := NewDefinitionExtractor(tree)
	defs := defExtractor.Extract(captures)
	refExtractor := NewReferenceExtractor(tree, defExtractor)
	refs := refExtractor.Extract(captures)

	idx := &SemanticIndex{
		File:               file,
		Language:           lang,
		ScopeTree:          tree,
		Symbols:            make(map[SymbolId]*SymbolDefinition, len(defs)),
		DefinitionsByScope: make(map[ScopeId]map[string]SymbolId),
		References:         refs,
		LocalTypeFlow: LocalTypeFlow{
			ConstructorByVariable: make(map[ScopeId]map[string]string),
			AnnotationByLocation:  make(map[LocationKey]string),
		},
	}

	for _, def := range defs {
		idx.Symbols[def.ID] = def
	}

	// Every file gets a synthetic module symbol bound under the empty
	// name in its root scope's locals, so an import that names the file
	// itself rather than one of its exports (e.g. `import utils from
	// './utils'` where 'utils' has no single matching export) still
	// resolves to something.
	moduleSym := &SymbolDefinition{
		ID:           GenerateSymbolId(SymModule, string(file), "", fileLoc),
		Name:         string(file),
		Kind:         SymModule,
		Location:     fileLoc,
		ScopeID:      tree.RootID,
		Availability: Public,
	}
	idx.Symbols[moduleSym.ID] = moduleSym
	tree.Get(tree.RootID).Locals[""] = moduleSym.ID

	for _, scope := range tree.Scopes() {
		if len(scope.Locals) == 0 {
			continue
		}
		m := make(map[string]SymbolId, len(scope.Locals))
		for name, id := range scope.Locals {
			m[name] = id
		}
		idx.DefinitionsByScope[scope.ID] = m
	}

	// Populate local type flow: constructor calls keyed by assigned
	// variable, and declared-type annotations keyed by location.
	for _, ctor := range refs.ConstructorCalls {
		if ctor.AssignedTo == nil {
			continue
		}
		scope := tree.FindContainingScope(*ctor.AssignedTo)
		varName := assignedVariableName(refs, *ctor.AssignedTo)
		if varName == "" {
			continue
		}
		if idx.LocalTypeFlow.ConstructorByVariable[scope.ID] == nil {
			idx.LocalTypeFlow.ConstructorByVariable[scope.ID] = make(map[string]string)
		}
		idx.LocalTypeFlow.ConstructorByVariable[scope.ID][varName] = ctor.ClassName
	}
	for _, ann := range refs.TypeAnnotations {
		if ann.Context != TypeCtxAnnotation {
			continue
		}
		idx.LocalTypeFlow.AnnotationByLocation[NewLocationKey(ann.Location)] = ann.Name
	}

	return idx
}

// assignedVariableName finds the Assignment record whose location matches
// loc, returning its bound name, or "" if none is found.
func assignedVariableName(refs ReferenceBundle, loc Location) string {
	for _, a := range refs.Assignments {
		if a.Location == loc {
			return a.Name
		}
	}
	return ""
}
