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
	"fmt"
	"strconv"
	"strings"

	"github.com/kraklabs/semindex/pkg/semindex"
)

// quoteString renders s as a single-quoted CozoDB string literal.
//
// Single-quoted strings in CozoDB:
//   - Backslash must be escaped: \ -> \\
//   - Single quote must be escaped: ' -> \'
//   - Double quotes are literal (no escape needed)
//   - NUL bytes are dropped
//   - Other characters including newlines are preserved as-is
func quoteString(s string) string {
	var buf strings.Builder
	buf.Grow(len(s) + 10)
	buf.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			buf.WriteString("\\\\")
		case '\'':
			buf.WriteString("\\'")
		default:
			if r == 0 {
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('\'')
	return buf.String()
}

func quoteBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// quoteStringSlice joins items with "|" and quotes the result, used for the
// handful of columns (base classes, interfaces, missing members) that are
// naturally a small string set rather than a column of their own.
func quoteStringSlice(items []string) string {
	return quoteString(strings.Join(items, "|"))
}

// GraphDatalogBuilder generates the Datalog :put statements that persist one
// indexing run's SemanticGraph into the semindex_* relations (schema.go).
// Adapted from the teacher's DatalogBuilder (pkg/ingestion/datalog.go):
// same batched-literal-insert shape, retargeted at the structural schema
// phase 0-4 of the pipeline produces instead of flat function/embedding rows.
type GraphDatalogBuilder struct{}

// NewGraphDatalogBuilder returns a builder with no state; every method is
// a pure function of its arguments.
func NewGraphDatalogBuilder() *GraphDatalogBuilder { return &GraphDatalogBuilder{} }

// BuildFileMutation emits the :put statement for one indexed file's
// metadata row, keyed by its content hash for incremental-reindex skip
// checks (SPEC_FULL.md §4.15).
func (b *GraphDatalogBuilder) BuildFileMutation(path string, lang semindex.Language, contentHash string, size int) string {
	var buf strings.Builder
	buf.WriteString("{ ?[id, path, language, content_hash, size] <- [[")
	buf.WriteString(strings.Join([]string{
		quoteString("file:" + path),
		quoteString(path),
		quoteString(string(lang)),
		quoteString(contentHash),
		strconv.Itoa(size),
	}, ", "))
	buf.WriteString("]] :put semindex_file { id, path, language, content_hash, size } }\n")
	return buf.String()
}

// BuildSymbolMutations emits one :put statement per symbol definition in
// idx, the structural equivalent of the teacher's per-function/per-type
// mutation blocks.
func (b *GraphDatalogBuilder) BuildSymbolMutations(idx *semindex.SemanticIndex) string {
	var buf strings.Builder
	for _, sym := range idx.Symbols {
		buf.WriteString("{ ?[id, name, kind, file_path, owning_class, availability, start_line, end_line, start_col, end_col] <- [[")
		buf.WriteString(strings.Join([]string{
			quoteString(string(sym.ID)),
			quoteString(sym.Name),
			quoteString(string(sym.Kind)),
			quoteString(string(sym.Location.File)),
			quoteString(sym.OwningClass),
			quoteString(string(sym.Availability)),
			strconv.Itoa(sym.Location.StartLine),
			strconv.Itoa(sym.Location.EndLine),
			strconv.Itoa(sym.Location.StartCol),
			strconv.Itoa(sym.Location.EndCol),
		}, ", "))
		buf.WriteString("]] :put semindex_symbol { id, name, kind, file_path, owning_class, availability, start_line, end_line, start_col, end_col } }\n")
	}
	return buf.String()
}

// BuildCallMutations emits one :put statement per resolved call-graph edge.
func (b *GraphDatalogBuilder) BuildCallMutations(callGraph *semindex.CallGraph) string {
	var buf strings.Builder
	for _, caller := range callGraph.Roots() {
		for _, callee := range callGraph.Callees(caller) {
			id := fmt.Sprintf("call:%s>%s", caller, callee)
			buf.WriteString("{ ?[id, caller_id, callee_id] <- [[")
			buf.WriteString(strings.Join([]string{
				quoteString(id),
				quoteString(string(caller)),
				quoteString(string(callee)),
			}, ", "))
			buf.WriteString("]] :put semindex_call { id, caller_id, callee_id } }\n")
		}
	}
	return buf.String()
}

// BuildImportMutations emits one :put statement per import edge in graph.
func (b *GraphDatalogBuilder) BuildImportMutations(graph *semindex.ImportGraph) string {
	var buf strings.Builder
	for _, edge := range graph.Edges() {
		buf.WriteString("{ ?[id, importing_file, exporting_file, imported_name, local_name, kind, start_line] <- [[")
		buf.WriteString(strings.Join([]string{
			quoteString(edge.ID),
			quoteString(string(edge.ImportingFile)),
			quoteString(string(edge.ExportingFile)),
			quoteString(edge.ImportedName),
			quoteString(edge.LocalName),
			quoteString(string(edge.Kind)),
			strconv.Itoa(edge.Location.StartLine),
		}, ", "))
		buf.WriteString("]] :put semindex_import { id, importing_file, exporting_file, imported_name, local_name, kind, start_line } }\n")
	}
	return buf.String()
}

// BuildClassMutations emits one :put statement per class-hierarchy node.
func (b *GraphDatalogBuilder) BuildClassMutations(hierarchy *semindex.ClassHierarchy) string {
	var buf strings.Builder
	for _, node := range hierarchy.Nodes() {
		buf.WriteString("{ ?[id, name, file_path, base_classes, interfaces] <- [[")
		buf.WriteString(strings.Join([]string{
			quoteString(string(node.SymbolID)),
			quoteString(node.Name),
			quoteString(string(node.FilePath)),
			quoteStringSlice(node.BaseClasses),
			quoteStringSlice(node.Interfaces),
		}, ", "))
		buf.WriteString("]] :put semindex_class { id, name, file_path, base_classes, interfaces } }\n")
	}
	return buf.String()
}

// BuildInterfaceImplMutations emits one :put statement per recorded
// interface implementation, complete or not.
func (b *GraphDatalogBuilder) BuildInterfaceImplMutations(impls *semindex.InterfaceImplementationMap) string {
	var buf strings.Builder
	n := 0
	for ifaceName, list := range impls.ImplementationsByInterface {
		for _, impl := range list {
			id := fmt.Sprintf("impl:%s:%s:%d", impl.ImplementorName, ifaceName, n)
			n++
			buf.WriteString("{ ?[id, implementor_name, interface_name, is_complete, missing_members] <- [[")
			buf.WriteString(strings.Join([]string{
				quoteString(id),
				quoteString(impl.ImplementorName),
				quoteString(impl.InterfaceName),
				quoteBool(impl.IsComplete),
				quoteStringSlice(impl.MissingMembers),
			}, ", "))
			buf.WriteString("]] :put semindex_interface_impl { id, implementor_name, interface_name, is_complete, missing_members } }\n")
		}
	}
	return buf.String()
}
