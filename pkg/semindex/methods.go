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

import "strings"

// MethodCandidate is one class's implementation of a method name, as
// recorded in the global method index.
type MethodCandidate struct {
	ClassID  SymbolId
	MethodID SymbolId
	Location Location
	IsStatic bool
}

// MethodIndex is the global, project-wide index the method resolver
// searches against: every method name mapped to each class that defines
// it, plus each class's full method-name set (used for sibling-method
// narrowing and completeness checks).
type MethodIndex struct {
	byName   map[string][]MethodCandidate
	byClass  map[SymbolId]map[string]bool
	classOf  map[SymbolId]FilePath
}

// NewMethodIndex builds an empty index.
func NewMethodIndex() *MethodIndex {
	return &MethodIndex{
		byName:  make(map[string][]MethodCandidate),
		byClass: make(map[SymbolId]map[string]bool),
		classOf: make(map[SymbolId]FilePath),
	}
}

// AddMethod registers one method definition under its owning class.
func (idx *MethodIndex) AddMethod(classID SymbolId, classFile FilePath, methodName string, methodID SymbolId, loc Location, isStatic bool) {
	idx.byName[methodName] = append(idx.byName[methodName], MethodCandidate{
		ClassID: classID, MethodID: methodID, Location: loc, IsStatic: isStatic,
	})
	if idx.byClass[classID] == nil {
		idx.byClass[classID] = make(map[string]bool)
	}
	idx.byClass[classID][methodName] = true
	idx.classOf[classID] = classFile
}

// ClassesDefining returns every class that defines methodName.
func (idx *MethodIndex) ClassesDefining(methodName string) []MethodCandidate {
	return idx.byName[methodName]
}

// MethodResolution is the Phase-2 resolver's output for one call site.
type MethodResolution struct {
	SymbolID   SymbolId
	Strategy   string
	Confidence float64
}

// MethodResolver implements spec.md §4.8: converting each MethodCall and
// ConstructorCall site to a concrete target SymbolId via an ordered
// confidence cascade, first strategy to fire wins.
type MethodResolver struct {
	project  *ProjectIndex
	names    map[ScopeId]Resolutions
	methods  *MethodIndex

	methodCalls      map[LocationKey]MethodResolution
	constructorCalls map[LocationKey]SymbolId
	callsToMethod    map[SymbolId][]Location
}

// NewMethodResolver builds a resolver over the project's assembled
// per-file indexes, phase-1 name resolutions, and the global method
// index.
func NewMethodResolver(project *ProjectIndex, names map[ScopeId]Resolutions, methods *MethodIndex) *MethodResolver {
	return &MethodResolver{
		project:          project,
		names:            names,
		methods:          methods,
		methodCalls:      make(map[LocationKey]MethodResolution),
		constructorCalls: make(map[LocationKey]SymbolId),
		callsToMethod:    make(map[SymbolId][]Location),
	}
}

// MethodCallTarget returns the resolved target for a method call site, if
// any strategy matched.
func (r *MethodResolver) MethodCallTarget(loc LocationKey) (MethodResolution, bool) {
	res, ok := r.methodCalls[loc]
	return res, ok
}

// ConstructorCallTarget returns the resolved class SymbolId for a
// constructor call site, if resolved.
func (r *MethodResolver) ConstructorCallTarget(loc LocationKey) (SymbolId, bool) {
	id, ok := r.constructorCalls[loc]
	return id, ok
}

// CallsToMethod returns every call-site location resolved to symbolID.
func (r *MethodResolver) CallsToMethod(symbolID SymbolId) []Location {
	return r.callsToMethod[symbolID]
}

// ResolveFile runs the full cascade over one file's method calls and
// constructor calls, recording results into the resolver's output maps.
func (r *MethodResolver) ResolveFile(file FilePath) {
	idx := r.project.Files[file]
	if idx == nil {
		return
	}

	for _, cc := range idx.References.ConstructorCalls {
		if classID, ok := r.resolveConstructor(idx, cc); ok {
			key := NewLocationKey(cc.Location)
			r.constructorCalls[key] = classID
			r.callsToMethod[classID] = append(r.callsToMethod[classID], cc.Location)
		}
	}

	for _, mc := range idx.References.MethodCalls {
		if res, ok := r.resolveMethodCall(idx, mc); ok {
			key := NewLocationKey(mc.Location)
			r.methodCalls[key] = res
			r.callsToMethod[res.SymbolID] = append(r.callsToMethod[res.SymbolID], mc.Location)
		}
	}
}

// resolveConstructor resolves a class name with one lookup in the phase-1
// name resolutions of the call's scope, which cover both imports and
// local definitions (locals take precedence); unresolved if absent.
func (r *MethodResolver) resolveConstructor(idx *SemanticIndex, cc ConstructorCall) (SymbolId, bool) {
	scope := idx.ScopeTree.FindContainingScope(cc.Location)
	resolutions := r.names[scope.ID]
	if id, ok := resolutions[cc.ClassName]; ok {
		return id, true
	}
	return "", false
}

// resolveMethodCall runs the 8-strategy cascade of spec.md §4.8 in order,
// returning the first strategy's result.
func (r *MethodResolver) resolveMethodCall(idx *SemanticIndex, mc MethodCall) (MethodResolution, bool) {
	scope := idx.ScopeTree.FindContainingScope(mc.Location)
	receiverName := receiverVariableName(mc)

	// 1. Explicit cast/annotation at the object's location.
	if receiverName != "" {
		objLoc := receiverObjectLocation(mc)
		if annotated, ok := idx.LocalTypeFlow.AnnotationByLocation[NewLocationKey(objLoc)]; ok {
			if classID := r.resolveClassName(idx, scope, annotated); classID != "" {
				if methodID, ok := r.methodOnClass(classID, mc.MethodName); ok {
					return MethodResolution{SymbolID: methodID, Strategy: "annotation", Confidence: 0.99}, true
				}
			}
		}
	}

	// 2. Variable-typed resolution: preceding constructor call or type
	// annotation on the declaration of the receiver variable.
	if receiverName != "" {
		if className := r.variableClassName(idx, scope, receiverName); className != "" {
			if classID := r.resolveClassName(idx, scope, className); classID != "" {
				if methodID, ok := r.methodOnClass(classID, mc.MethodName); ok {
					return MethodResolution{SymbolID: methodID, Strategy: "variable_typed", Confidence: 0.95}, true
				}
			}
		}
	}

	// 3. Type guard narrowing: reserved, not implemented (see DESIGN.md).

	// 4. Return-type annotation of the function the receiver call
	// expression targets, when the receiver itself looks like a call.
	if className := r.calleeReturnTypeClassName(idx, scope, receiverName); className != "" {
		if classID := r.resolveClassName(idx, scope, className); classID != "" {
			if methodID, ok := r.methodOnClass(classID, mc.MethodName); ok {
				return MethodResolution{SymbolID: methodID, Strategy: "return_type", Confidence: 0.90}, true
			}
		}
	}

	// 5. Unique method name across the whole project.
	candidates := r.methods.ClassesDefining(mc.MethodName)
	if len(candidates) == 1 {
		return MethodResolution{SymbolID: candidates[0].MethodID, Strategy: "unique_name", Confidence: 1.0}, true
	}

	// 6. Sibling-method narrowing: classes offering every method seen
	// invoked on the same receiver in the same scope.
	if receiverName != "" && len(candidates) > 1 {
		siblingNames := siblingMethodNames(idx, scope, receiverName)
		var narrowed []MethodCandidate
		for _, cand := range candidates {
			if classHasAll(r.methods, cand.ClassID, siblingNames) {
				narrowed = append(narrowed, cand)
			}
		}
		if len(narrowed) == 1 {
			return MethodResolution{SymbolID: narrowed[0].MethodID, Strategy: "sibling_narrowing", Confidence: 0.90}, true
		}
	}

	if len(candidates) > 1 {
		// 7. Import scope: prefer a candidate class imported into the
		// current file.
		if id := preferImported(r.names[scope.ID], candidates); id != "" {
			return MethodResolution{SymbolID: id, Strategy: "import_scope", Confidence: 0.80}, true
		}
		// 8. File proximity: prefer a candidate class defined in the
		// current file.
		if id := preferSameFile(r.methods, candidates, idx.File); id != "" {
			return MethodResolution{SymbolID: id, Strategy: "file_proximity", Confidence: 0.60}, true
		}
	}

	// 9. External-stub fallback (supplemented, additive to the cascade):
	// a call through a receiver with no discoverable implementor still
	// gets a deterministic synthetic target instead of vanishing silently.
	if receiverName != "" {
		stub := externalStubId(mc.MethodName, receiverName)
		return MethodResolution{SymbolID: stub, Strategy: "external_stub", Confidence: 0.1}, true
	}

	return MethodResolution{}, false
}

// methodOnClass looks up a method by (classID, methodName) in the global
// method index.
func (r *MethodResolver) methodOnClass(classID SymbolId, methodName string) (SymbolId, bool) {
	for _, cand := range r.methods.ClassesDefining(methodName) {
		if cand.ClassID == classID {
			return cand.MethodID, true
		}
	}
	return "", false
}

// resolveClassName resolves a bare class name visible at scope (via
// phase-1 resolutions) to its SymbolId.
func (r *MethodResolver) resolveClassName(idx *SemanticIndex, scope *LexicalScope, className string) SymbolId {
	if id, ok := r.names[scope.ID][className]; ok {
		return id
	}
	return ""
}

// variableClassName looks up whether receiverName was bound by a
// preceding constructor call, or carries a type annotation, anywhere from
// scope up to the module root.
func (r *MethodResolver) variableClassName(idx *SemanticIndex, scope *LexicalScope, receiverName string) string {
	current := scope
	for current != nil {
		if byVar, ok := idx.LocalTypeFlow.ConstructorByVariable[current.ID]; ok {
			if className, ok := byVar[receiverName]; ok {
				return className
			}
		}
		if current.ParentID == "" {
			break
		}
		current = idx.ScopeTree.Get(current.ParentID)
	}
	for _, ann := range idx.References.TypeAnnotations {
		if ann.Context != TypeCtxAnnotation {
			continue
		}
		for _, a := range idx.References.Assignments {
			if a.Name == receiverName && a.Location == ann.Location {
				return ann.Name
			}
		}
	}
	return ""
}

// calleeReturnTypeClassName handles the case where the receiver
// expression is itself a call to a function whose declared return type
// names a class; it is a narrow heuristic kept intentionally simple
// since spec.md leaves the exact matching mechanism unspecified.
func (r *MethodResolver) calleeReturnTypeClassName(idx *SemanticIndex, scope *LexicalScope, receiverName string) string {
	if receiverName == "" {
		return ""
	}
	for _, fc := range idx.References.Calls {
		if fc.CalleeName != receiverName {
			continue
		}
		calleeID, ok := r.names[scope.ID][fc.CalleeName]
		if !ok {
			continue
		}
		for _, ann := range idx.References.TypeAnnotations {
			if ann.Context == TypeCtxReturn && idx.ScopeTree.FindContainingScope(ann.Location) != nil {
				if sym := idx.Symbols[calleeID]; sym != nil && sym.ScopeID == ann.ScopeID {
					return ann.Name
				}
			}
		}
	}
	return ""
}

// receiverVariableName extracts the leading identifier of a method call's
// property chain, which is the variable the method was invoked on (unless
// it is a self-reference keyword, which carries no useful class hint on
// its own).
func receiverVariableName(mc MethodCall) string {
	if len(mc.PropertyChain) < 2 {
		return ""
	}
	head := mc.PropertyChain[0]
	if selfReferenceKeywords[head] {
		return ""
	}
	return head
}

// receiverObjectLocation approximates the location of the receiver
// expression itself for annotation lookups; absent a dedicated capture
// for the receiver sub-expression, the call's own location is the closest
// available anchor.
func receiverObjectLocation(mc MethodCall) Location {
	return mc.ReceiverLoc
}

// siblingMethodNames collects every method name invoked on receiverName
// within scope, excluding nothing (the method currently being resolved is
// intentionally included; intersecting against it is harmless).
func siblingMethodNames(idx *SemanticIndex, scope *LexicalScope, receiverName string) []string {
	var names []string
	for _, mc := range idx.References.MethodCalls {
		if receiverVariableName(mc) != receiverName {
			continue
		}
		if idx.ScopeTree.FindContainingScope(mc.Location) != scope {
			continue
		}
		names = append(names, mc.MethodName)
	}
	return names
}

// classHasAll reports whether classID's method set (per the global
// method index) contains every name in names.
func classHasAll(methods *MethodIndex, classID SymbolId, names []string) bool {
	set := methods.byClass[classID]
	for _, n := range names {
		if !set[n] {
			return false
		}
	}
	return true
}

// preferImported returns the first candidate whose class is bound by name
// somewhere in resolutions (i.e. visible via an import into the current
// scope), or "" if none.
func preferImported(resolutions Resolutions, candidates []MethodCandidate) SymbolId {
	imported := make(map[SymbolId]bool, len(resolutions))
	for _, id := range resolutions {
		imported[id] = true
	}
	for _, cand := range candidates {
		if imported[cand.ClassID] {
			return cand.MethodID
		}
	}
	return ""
}

// preferSameFile returns the first candidate whose class was defined in
// file, or "" if none.
func preferSameFile(methods *MethodIndex, candidates []MethodCandidate, file FilePath) SymbolId {
	for _, cand := range candidates {
		if methods.classOf[cand.ClassID] == file {
			return cand.MethodID
		}
	}
	return ""
}

// BuildMethodIndex walks every class definition across the project and
// registers its methods into a fresh MethodIndex, using OwningClass to
// associate each method with its class symbol.
func BuildMethodIndex(project *ProjectIndex) *MethodIndex {
	idx := NewMethodIndex()

	classIDByName := make(map[FilePath]map[string]SymbolId)
	for file, fidx := range project.Files {
		for _, sym := range fidx.Symbols {
			if sym.Kind != SymClass {
				continue
			}
			if classIDByName[file] == nil {
				classIDByName[file] = make(map[string]SymbolId)
			}
			classIDByName[file][sym.Name] = sym.ID
		}
	}

	for file, fidx := range project.Files {
		for _, sym := range fidx.Symbols {
			if sym.Kind != SymMethod && sym.Kind != SymConstructor {
				continue
			}
			classID, ok := classIDByName[file][sym.OwningClass]
			if !ok {
				continue
			}
			isStatic := hasModifier(sym.Modifiers, "static")
			idx.AddMethod(classID, file, sym.Name, sym.ID, sym.Location, isStatic)
		}
	}

	return idx
}

func hasModifier(modifiers []string, name string) bool {
	for _, m := range modifiers {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}
