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

// Resolutions is the visible name set at one scope: every name bound by
// import, inheritance from a parent scope, or local definition, each
// pointing at a concrete SymbolId.
type Resolutions map[string]SymbolId

// clone returns a shallow copy, used so a child scope can extend its
// parent's bindings without mutating the parent's map.
func (r Resolutions) clone() Resolutions {
	out := make(Resolutions, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ProjectIndex is the read-only, cross-file context the name resolver (and
// later phases) need: every file's SemanticIndex plus the shared import
// graph built across all of them.
type ProjectIndex struct {
	Files   map[FilePath]*SemanticIndex
	Imports *ImportGraph
}

// NameResolver implements phase 1 (spec.md §4.7): resolving symbol names
// to SymbolIds scope by scope, honoring lexical shadowing and import
// bindings, and chasing re-export chains across files.
type NameResolver struct {
	project *ProjectIndex

	// perFile holds the ScopeId -> Resolutions result for every file,
	// populated as ResolveFile runs.
	perFile map[FilePath]map[ScopeId]Resolutions
}

// NewNameResolver builds a resolver over an already-assembled ProjectIndex.
func NewNameResolver(project *ProjectIndex) *NameResolver {
	return &NameResolver{
		project: project,
		perFile: make(map[FilePath]map[ScopeId]Resolutions),
	}
}

// ResolveAll runs resolve_scope_recursive from each file's module root and
// returns the full ScopeId -> Resolutions map across the whole project.
func (n *NameResolver) ResolveAll() map[ScopeId]Resolutions {
	out := make(map[ScopeId]Resolutions)
	for file := range n.project.Files {
		for scopeID, res := range n.ResolveFile(file) {
			out[scopeID] = res
		}
	}
	return out
}

// ResolveFile runs the recursive resolution algorithm for one file and
// caches the per-scope result.
func (n *NameResolver) ResolveFile(file FilePath) map[ScopeId]Resolutions {
	if cached, ok := n.perFile[file]; ok {
		return cached
	}
	idx := n.project.Files[file]
	if idx == nil {
		return nil
	}
	result := make(map[ScopeId]Resolutions)
	n.resolveScopeRecursive(idx.ScopeTree.Get(idx.ScopeTree.RootID), Resolutions{}, idx, result)
	n.perFile[file] = result
	return result
}

// resolveScopeRecursive implements the algorithm of spec.md §4.7: start
// from the inherited bindings, layer in this scope's import bindings,
// then this scope's local definitions (which always win), record the
// result, and recurse into children with it as their starting point.
func (n *NameResolver) resolveScopeRecursive(scope *LexicalScope, parentResolutions Resolutions, idx *SemanticIndex, result map[ScopeId]Resolutions) {
	if scope == nil {
		return
	}
	current := parentResolutions.clone()

	for _, edge := range n.project.Imports.GetScopeImports(scope.ID) {
		n.bindImport(current, edge, idx)
	}

	for name, symbolID := range idx.DefinitionsByScope[scope.ID] {
		current[name] = symbolID
	}

	result[scope.ID] = current

	for _, childID := range scope.ChildIDs {
		n.resolveScopeRecursive(idx.ScopeTree.Get(childID), current, idx, result)
	}
}

// bindImport resolves one import edge to a concrete SymbolId and binds its
// local name into resolutions.
func (n *NameResolver) bindImport(resolutions Resolutions, edge *ImportEdge, idx *SemanticIndex) {
	if edge.Kind == ImportNamespace {
		sym := symbolForNamespaceImport(edge)
		n.project.Imports.BindSymbol(sym, edge.ExportingFile)
		resolutions[edge.LocalName] = sym
		return
	}

	sourceFile := edge.ExportingFile
	if sourceFile == "" {
		return
	}

	resolved := n.resolveExportChain(sourceFile, edge.ImportedName, make(map[FilePath]bool))
	if resolved != "" {
		resolutions[edge.LocalName] = resolved
		return
	}

	// The imported name may itself name a submodule file rather than an
	// exported symbol (e.g. `import utils from './utils'` where utils.js
	// re-exports nothing directly usable as a symbol); fall back to
	// binding the local name to that module's synthetic module symbol, if
	// one was recorded.
	if subIdx, ok := n.project.Files[sourceFile]; ok {
		if moduleSym := moduleSymbolOf(subIdx); moduleSym != "" {
			resolutions[edge.LocalName] = moduleSym
		}
	}
}

// resolveExportChain follows a chain of re-exports starting at
// (file, name): if file defines name at module scope, that symbol is the
// answer; otherwise, if file itself re-imports name from elsewhere, the
// chain continues there. visited guards against an import cycle.
func (n *NameResolver) resolveExportChain(file FilePath, name string, visited map[FilePath]bool) SymbolId {
	if visited[file] {
		return ""
	}
	visited[file] = true

	idx := n.project.Files[file]
	if idx == nil {
		return ""
	}
	if moduleLocals := idx.DefinitionsByScope[idx.ScopeTree.RootID]; moduleLocals != nil {
		if id, ok := moduleLocals[name]; ok {
			return id
		}
	}

	for _, edge := range n.project.Imports.GetScopeImports(idx.ScopeTree.RootID) {
		if edge.ImportedName != name && edge.LocalName != name {
			continue
		}
		if edge.ExportingFile == "" {
			continue
		}
		if resolved := n.resolveExportChain(edge.ExportingFile, edge.ImportedName, visited); resolved != "" {
			return resolved
		}
	}
	return ""
}

// symbolForNamespaceImport constructs a stable synthetic SymbolId standing
// in for a namespace-style import ("import * as foo from './bar'"), since
// the imported module as a whole has no single SymbolDefinition of its own.
func symbolForNamespaceImport(edge *ImportEdge) SymbolId {
	return SymbolId("sym:namespace:" + string(edge.ID))
}

// moduleSymbolOf returns the synthetic module symbol for idx's root scope,
// if its assembler recorded one (AssembleFileIndex binds it under the
// empty name in the root scope), else "".
func moduleSymbolOf(idx *SemanticIndex) SymbolId {
	if locals := idx.DefinitionsByScope[idx.ScopeTree.RootID]; locals != nil {
		for name, id := range locals {
			if name == "" {
				return id
			}
		}
	}
	return ""
}
