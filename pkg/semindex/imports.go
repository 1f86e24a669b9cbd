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
	"path"
	"strings"
)

// ImportGraph resolves import-declaration definitions against each
// language's module-resolution rules and exposes the resulting edges for
// lookup by scope or by importing symbol (spec.md §4.6). It is built once
// all per-file SemanticIndexes exist, since resolving a relative import
// path requires knowing which project files actually exist.
type ImportGraph struct {
	edges []*ImportEdge

	byScope  map[ScopeId][]*ImportEdge
	byImport map[SymbolId]FilePath

	// knownFiles is the set of every file path present in the project,
	// used to decide whether a resolved candidate path actually exists.
	knownFiles map[FilePath]bool
}

// NewImportGraph builds an empty graph over the given project file set.
func NewImportGraph(files []FilePath) *ImportGraph {
	known := make(map[FilePath]bool, len(files))
	for _, f := range files {
		known[f] = true
	}
	return &ImportGraph{
		byScope:    make(map[ScopeId][]*ImportEdge),
		byImport:   make(map[SymbolId]FilePath),
		knownFiles: known,
	}
}

// importCaptureInfo is the subset of a raw import definition capture's
// fields the graph needs; the per-file index assembler does not itself
// model imports as SymbolDefinitions (they have no single canonical
// SymbolKind), so the orchestrator extracts these directly from the
// normalized capture stream per file and feeds them in.
type importCaptureInfo struct {
	ImportingFile  FilePath
	ImportPathText string
	ImportedName   string
	LocalName      string
	Kind           ImportKind
	ScopeID        ScopeId
	Location       Location
}

// AddImport resolves one raw import capture against lang's module
// resolution rules and records the resulting ImportEdge.
func (g *ImportGraph) AddImport(lang Language, info importCaptureInfo) *ImportEdge {
	resolved := resolveImportPath(lang, info.ImportingFile, info.ImportPathText, g.knownFiles)

	edge := &ImportEdge{
		ID:             GenerateImportEdgeId(info.ImportingFile, info.ImportPathText, info.ImportedName, info.Location),
		ImportingFile:  info.ImportingFile,
		ExportingFile:  resolved,
		ImportedName:   info.ImportedName,
		LocalName:      info.LocalName,
		Kind:           info.Kind,
		ScopeID:        info.ScopeID,
		Location:       info.Location,
		ImportPathText: info.ImportPathText,
	}
	g.edges = append(g.edges, edge)
	g.byScope[info.ScopeID] = append(g.byScope[info.ScopeID], edge)
	return edge
}

// BindSymbol records that symbolID (the SymbolId standing in for a
// namespace-kind import binding) resolves to file.
func (g *ImportGraph) BindSymbol(symbolID SymbolId, file FilePath) {
	g.byImport[symbolID] = file
}

// GetScopeImports returns every import edge attached directly to scopeID.
func (g *ImportGraph) GetScopeImports(scopeID ScopeId) []*ImportEdge {
	return g.byScope[scopeID]
}

// GetResolvedImportPath returns the file a namespace-import symbol was
// bound to, or "" if symbolID was never bound.
func (g *ImportGraph) GetResolvedImportPath(symbolID SymbolId) FilePath {
	return g.byImport[symbolID]
}

// Edges returns every import edge recorded in the graph.
func (g *ImportGraph) Edges() []*ImportEdge {
	return g.edges
}

// resolveImportPath applies per-language module-resolution rules to turn
// an import's raw path text into a concrete project file, or "" if the
// import targets something outside the project (e.g. a third-party
// package) and so cannot be resolved to a local SymbolId.
func resolveImportPath(lang Language, importingFile FilePath, pathText string, known map[FilePath]bool) FilePath {
	switch lang {
	case LangPython:
		return resolvePythonImport(importingFile, pathText, known)
	default:
		return resolveRelativeImport(lang, importingFile, pathText, known)
	}
}

// resolveRelativeImport handles JavaScript/TypeScript/Rust-style relative
// or path-rooted imports: only "./" and "../" prefixed paths are resolved
// against the local project; anything else is treated as an external
// package and left unresolved.
func resolveRelativeImport(lang Language, importingFile FilePath, pathText string, known map[FilePath]bool) FilePath {
	if !strings.HasPrefix(pathText, ".") {
		return ""
	}
	dir := path.Dir(string(importingFile))
	joined := path.Clean(path.Join(dir, pathText))

	for _, candidate := range candidateFiles(lang, joined) {
		if known[FilePath(candidate)] {
			return FilePath(candidate)
		}
	}
	return ""
}

// resolvePythonImport handles dotted Python module paths by treating each
// dot as a path separator relative to the importing file's package
// directory, supporting both absolute (package-rooted) and explicit
// relative (leading-dot) import forms.
func resolvePythonImport(importingFile FilePath, pathText string, known map[FilePath]bool) FilePath {
	dir := path.Dir(string(importingFile))

	leadingDots := 0
	for leadingDots < len(pathText) && pathText[leadingDots] == '.' {
		leadingDots++
	}
	rest := pathText[leadingDots:]

	base := dir
	for i := 1; i < leadingDots; i++ {
		base = path.Dir(base)
	}

	segments := strings.Split(rest, ".")
	joined := path.Clean(path.Join(append([]string{base}, segments...)...))

	for _, candidate := range candidateFiles(LangPython, joined) {
		if known[FilePath(candidate)] {
			return FilePath(candidate)
		}
	}
	return ""
}

// candidateFiles enumerates the concrete file paths a resolved module
// stem could correspond to, in priority order: the bare extension, then
// the language's package/index-module convention.
func candidateFiles(lang Language, stem string) []string {
	switch lang {
	case LangJavaScript:
		return []string{stem + ".js", stem + ".jsx", stem + ".mjs", path.Join(stem, "index.js")}
	case LangTypeScript:
		return []string{stem + ".ts", stem + ".tsx", path.Join(stem, "index.ts")}
	case LangPython:
		return []string{stem + ".py", path.Join(stem, "__init__.py")}
	case LangRust:
		return []string{stem + ".rs", path.Join(stem, "mod.rs")}
	default:
		return nil
	}
}
