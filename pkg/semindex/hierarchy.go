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

import "fmt"

// ClassHierarchy holds every ClassNode built across the project, indexed
// by SymbolId, plus the base-class graph used for ancestor/descendant
// and MRO computation (spec.md §4.10).
type ClassHierarchy struct {
	nodes map[SymbolId]*ClassNode
	// bases maps a class to the symbol ids of its direct base classes,
	// resolved through phase-1 name resolutions.
	bases map[SymbolId][]SymbolId
	// derived is the reverse of bases: base -> direct subclasses.
	derived map[SymbolId][]SymbolId
}

// Node returns the ClassNode for id, or nil if absent.
func (h *ClassHierarchy) Node(id SymbolId) *ClassNode {
	return h.nodes[id]
}

// Nodes returns every class node in the hierarchy.
func (h *ClassHierarchy) Nodes() []*ClassNode {
	out := make([]*ClassNode, 0, len(h.nodes))
	for _, n := range h.nodes {
		out = append(out, n)
	}
	return out
}

// BuildClassHierarchy walks every class definition across the project,
// resolves its "extends" type references against the phase-1 name
// resolutions to find direct base classes, and assembles the hierarchy.
func BuildClassHierarchy(project *ProjectIndex, names map[ScopeId]Resolutions) *ClassHierarchy {
	h := &ClassHierarchy{
		nodes:   make(map[SymbolId]*ClassNode),
		bases:   make(map[SymbolId][]SymbolId),
		derived: make(map[SymbolId][]SymbolId),
	}

	methodsByClass := make(map[SymbolId][]string)
	for _, idx := range project.Files {
		for _, sym := range idx.Symbols {
			if sym.Kind == SymMethod || sym.Kind == SymConstructor {
				classID := classSymbolByName(idx, sym.OwningClass)
				if classID != "" {
					methodsByClass[classID] = append(methodsByClass[classID], sym.Name)
				}
			}
		}
	}

	for file, idx := range project.Files {
		for _, sym := range idx.Symbols {
			if sym.Kind != SymClass {
				continue
			}
			scope := idx.ScopeTree.FindContainingScope(sym.Location)
			bases, interfaces := extendsAndImplements(idx, scope, sym, names)

			node := &ClassNode{
				SymbolID:    sym.ID,
				Name:        sym.Name,
				FilePath:    file,
				BaseClasses: bases,
				Interfaces:  interfaces,
				MethodNames: methodsByClass[sym.ID],
			}
			h.nodes[sym.ID] = node
			h.bases[sym.ID] = resolveBaseSymbols(idx, scope, bases, names)
		}
	}

	for classID, baseIDs := range h.bases {
		for _, baseID := range baseIDs {
			h.derived[baseID] = append(h.derived[baseID], classID)
		}
	}

	for classID, node := range h.nodes {
		node.MRO = h.computeMRO(classID)
	}

	return h
}

// classSymbolByName finds the SymbolId of the class named name within
// idx, or "" if none.
func classSymbolByName(idx *SemanticIndex, name string) SymbolId {
	if name == "" {
		return ""
	}
	for _, sym := range idx.Symbols {
		if sym.Kind == SymClass && sym.Name == name {
			return sym.ID
		}
	}
	return ""
}

// extendsAndImplements splits a class's TypeCtxExtends/TypeCtxImplements
// type references (recorded at the class's own scope) into base-class
// names and interface names.
func extendsAndImplements(idx *SemanticIndex, scope *LexicalScope, sym *SymbolDefinition, names map[ScopeId]Resolutions) (bases, interfaces []string) {
	classScope := nearestScope(idx.ScopeTree, scope, ScopeClass)
	if classScope == nil {
		return nil, nil
	}
	for _, ann := range idx.References.TypeAnnotations {
		if ann.ScopeID != classScope.ID {
			continue
		}
		switch ann.Context {
		case TypeCtxExtends:
			bases = append(bases, ann.Name)
		case TypeCtxImplements:
			interfaces = append(interfaces, ann.Name)
		}
	}
	return bases, interfaces
}

// resolveBaseSymbols resolves each base-class name visible at scope to a
// concrete SymbolId, dropping names that fail to resolve (an external or
// unindexed base).
func resolveBaseSymbols(idx *SemanticIndex, scope *LexicalScope, baseNames []string, names map[ScopeId]Resolutions) []SymbolId {
	var out []SymbolId
	resolutions := names[scope.ID]
	for _, name := range baseNames {
		if id, ok := resolutions[name]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Ancestors returns every class transitively reachable via base-class
// edges from classID, without classID itself.
func (h *ClassHierarchy) Ancestors(classID SymbolId) []SymbolId {
	seen := make(map[SymbolId]bool)
	var walk func(SymbolId)
	walk = func(id SymbolId) {
		for _, base := range h.bases[id] {
			if !seen[base] {
				seen[base] = true
				walk(base)
			}
		}
	}
	walk(classID)
	return setToSlice(seen)
}

// Descendants returns every class transitively derived from classID,
// without classID itself.
func (h *ClassHierarchy) Descendants(classID SymbolId) []SymbolId {
	seen := make(map[SymbolId]bool)
	var walk func(SymbolId)
	walk = func(id SymbolId) {
		for _, sub := range h.derived[id] {
			if !seen[sub] {
				seen[sub] = true
				walk(sub)
			}
		}
	}
	walk(classID)
	return setToSlice(seen)
}

// EntryPoints returns every class with no incoming "extends" edge: the
// roots of the inheritance forest, each with no direct base of its own.
func (h *ClassHierarchy) EntryPoints() []SymbolId {
	var roots []SymbolId
	for classID := range h.nodes {
		if len(h.bases[classID]) == 0 {
			roots = append(roots, classID)
		}
	}
	return roots
}

// computeMRO computes the method resolution order for classID via C3
// linearization, generalizing to a simple base-chain ordering when
// classID has at most one direct base (the common case for
// single-inheritance languages).
func (h *ClassHierarchy) computeMRO(classID SymbolId) []SymbolId {
	bases := h.bases[classID]
	if len(bases) == 0 {
		return []SymbolId{classID}
	}
	if len(bases) == 1 {
		return append([]SymbolId{classID}, h.computeMRO(bases[0])...)
	}

	var sequences [][]SymbolId
	for _, base := range bases {
		sequences = append(sequences, h.computeMRO(base))
	}
	sequences = append(sequences, append([]SymbolId{}, bases...))

	merged, ok := c3Merge(sequences)
	if !ok {
		// Inconsistent hierarchy (e.g. a genuine diamond conflict); fall
		// back to a deterministic depth-first linearization rather than
		// failing the whole pipeline over one malformed class.
		merged = depthFirstLinearize(h, classID)
	}
	return append([]SymbolId{classID}, merged...)
}

// c3Merge implements the classic C3 linearization merge step: repeatedly
// take the head of the first sequence that does not appear in the tail of
// any other sequence, remove it everywhere, and repeat until all
// sequences are empty.
func c3Merge(sequences [][]SymbolId) ([]SymbolId, bool) {
	var result []SymbolId
	seqs := make([][]SymbolId, len(sequences))
	for i, s := range sequences {
		seqs[i] = append([]SymbolId{}, s...)
	}

	for {
		seqs = removeEmpty(seqs)
		if len(seqs) == 0 {
			return result, true
		}

		var candidate SymbolId
		found := false
		for _, seq := range seqs {
			head := seq[0]
			if !inAnyTail(seqs, head) {
				candidate = head
				found = true
				break
			}
		}
		if !found {
			return result, false
		}

		result = append(result, candidate)
		for i, seq := range seqs {
			seqs[i] = removeFirstOccurrence(seq, candidate)
		}
	}
}

func removeEmpty(seqs [][]SymbolId) [][]SymbolId {
	var out [][]SymbolId
	for _, s := range seqs {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func inAnyTail(seqs [][]SymbolId, id SymbolId) bool {
	for _, seq := range seqs {
		for _, s := range seq[1:] {
			if s == id {
				return true
			}
		}
	}
	return false
}

func removeFirstOccurrence(seq []SymbolId, id SymbolId) []SymbolId {
	out := make([]SymbolId, 0, len(seq))
	for _, s := range seq {
		if s == id {
			continue
		}
		out = append(out, s)
	}
	return out
}

// depthFirstLinearize is the fallback ordering used when C3 merging
// fails to converge: a pre-order walk of the base graph, deduplicated.
func depthFirstLinearize(h *ClassHierarchy, classID SymbolId) []SymbolId {
	seen := make(map[SymbolId]bool)
	var order []SymbolId
	var walk func(SymbolId)
	walk = func(id SymbolId) {
		for _, base := range h.bases[id] {
			if seen[base] {
				continue
			}
			seen[base] = true
			order = append(order, base)
			walk(base)
		}
	}
	walk(classID)
	return order
}

func setToSlice(set map[SymbolId]bool) []SymbolId {
	out := make([]SymbolId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// DescribeMRO renders classID's MRO as a readable "A -> B -> C" string,
// used for diagnostics and CLI output.
func (h *ClassHierarchy) DescribeMRO(classID SymbolId) string {
	node := h.nodes[classID]
	if node == nil {
		return ""
	}
	out := ""
	for i, id := range node.MRO {
		if i > 0 {
			out += " -> "
		}
		if n := h.nodes[id]; n != nil {
			out += n.Name
		} else {
			out += fmt.Sprintf("%s", id)
		}
	}
	return out
}
