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

// Package semindex implements the four-phase semantic indexing pipeline:
// per-file indexing, name resolution, reference resolution, and structural
// analysis (call chains, class hierarchy, interface implementation) over a
// parsed multi-language repository.
package semindex

// Language is one of the four syntaxes the pipeline understands.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
)

// SupportedLanguages is the public, closed set of languages the pipeline
// accepts. Indexing any other language tag raises UnsupportedLanguage.
var SupportedLanguages = map[Language]bool{
	LangJavaScript: true,
	LangTypeScript: true,
	LangPython:     true,
	LangRust:       true,
}

// Location is an immutable span in a source file.
type Location struct {
	File      FilePath
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Contains reports whether other is nested within loc (inclusive).
func (loc Location) Contains(other Location) bool {
	if loc.File != other.File {
		return false
	}
	startsAfter := loc.StartLine < other.StartLine ||
		(loc.StartLine == other.StartLine && loc.StartCol <= other.StartCol)
	endsBefore := loc.EndLine > other.EndLine ||
		(loc.EndLine == other.EndLine && loc.EndCol >= other.EndCol)
	return startsAfter && endsBefore
}

// ScopeKind classifies a LexicalScope.
type ScopeKind string

const (
	ScopeModule      ScopeKind = "module"
	ScopeFunction    ScopeKind = "function"
	ScopeMethod      ScopeKind = "method"
	ScopeConstructor ScopeKind = "constructor"
	ScopeClass       ScopeKind = "class"
	ScopeBlock       ScopeKind = "block"
)

// LexicalScope is a node in a file's scope tree.
type LexicalScope struct {
	ID       ScopeId
	Kind     ScopeKind
	Location Location
	ParentID ScopeId // empty for the root module scope
	ChildIDs []ScopeId

	// Locals maps a name to the SymbolId currently bound in this scope by
	// local definition (not by resolution propagation; see names.go).
	Locals map[string]SymbolId
}

// SymbolKind classifies a SymbolDefinition.
type SymbolKind string

const (
	SymFunction   SymbolKind = "function"
	SymMethod     SymbolKind = "method"
	SymClass      SymbolKind = "class"
	SymInterface  SymbolKind = "interface"
	SymVariable   SymbolKind = "variable"
	SymParameter  SymbolKind = "parameter"
	SymConstructor SymbolKind = "constructor"
	SymField      SymbolKind = "field"
	SymTypeAlias  SymbolKind = "type_alias"
	SymModule     SymbolKind = "module"
)

// Availability is the visibility of a SymbolDefinition.
type Availability string

const (
	Public  Availability = "public"
	Private Availability = "private"
)

// SymbolDefinition is a single named definition discovered during indexing.
type SymbolDefinition struct {
	ID           SymbolId
	Name         string
	Kind         SymbolKind
	Location     Location
	ScopeID      ScopeId
	Availability Availability
	// OwningClass is the name of the class/struct this symbol belongs to,
	// set for methods, constructors, and fields; empty otherwise.
	OwningClass string
	// Modifiers is copied from the definition's capture. The capture
	// normalizer does not populate it, so it is empty for every symbol
	// and flags such as "static" or "async" are not recorded.
	Modifiers []string
}

// ReferenceKind discriminates the reference record variants.
type ReferenceKind string

const (
	RefFunctionCall     ReferenceKind = "function_call"
	RefMethodCall       ReferenceKind = "method_call"
	RefSelfReferenceCall ReferenceKind = "self_reference_call"
	RefConstructorCall  ReferenceKind = "constructor_call"
	RefVariableReference ReferenceKind = "variable_reference"
	RefPropertyAccess   ReferenceKind = "property_access"
	RefTypeReference    ReferenceKind = "type_reference"
	RefAssignment       ReferenceKind = "assignment"
	RefReturn           ReferenceKind = "return"
)

// FunctionCall is a call site whose callee expression is a bare name.
type FunctionCall struct {
	Caller     SymbolId // ModuleCaller at file scope
	CalleeName string
	Location   Location
	Arity      int
}

// MethodCall is a call site whose callee expression is a member expression
// followed by call syntax: receiver.method(...).
type MethodCall struct {
	Caller        SymbolId
	MethodName    string
	ReceiverLoc   Location
	PropertyChain []string // e.g. ["a", "b", "c"] for a.b.c()
	IsOptional    bool
	// SelfKeyword is set (and Kind becomes RefSelfReferenceCall) when the
	// receiver text is a self-reference keyword: this/self/super/cls.
	SelfKeyword string
	Location    Location
	Arity       int
}

// Kind reports whether this is a plain method call or a self-reference call.
func (m MethodCall) Kind() ReferenceKind {
	if m.SelfKeyword != "" {
		return RefSelfReferenceCall
	}
	return RefMethodCall
}

// ConstructorCall is a `new X(...)`-style (or language-equivalent) call.
type ConstructorCall struct {
	Caller     SymbolId
	ClassName  string
	Location   Location
	AssignedTo *Location // not set by ReferenceExtractor: always nil, so assignment targets are not tracked
	Arity      int
}

// AccessType classifies a MemberAccessReference.
type AccessType string

const (
	AccessProperty AccessType = "property"
	AccessMethod   AccessType = "method"
	AccessIndex    AccessType = "index"
)

// MemberAccessReference is a non-call member access: obj.prop or obj[i].
type MemberAccessReference struct {
	Location      Location
	MemberName    string
	ScopeID       ScopeId
	AccessType    AccessType
	ObjectLoc     Location
	PropertyChain []string
	IsOptional    bool
	IsStatic      bool
}

// TypeRefContext classifies where a TypeReference occurs.
type TypeRefContext string

const (
	TypeCtxAnnotation TypeRefContext = "annotation"
	TypeCtxExtends    TypeRefContext = "extends"
	TypeCtxImplements TypeRefContext = "implements"
	TypeCtxGeneric    TypeRefContext = "generic"
	TypeCtxReturn     TypeRefContext = "return"
)

// TypeReference records a use of a type name in an annotation-like position.
type TypeReference struct {
	Name     string
	Context  TypeRefContext
	Location Location
	ScopeID  ScopeId
}

// Assignment records a write to a named binding.
type Assignment struct {
	Name       string
	Location   Location
	TypeAnnot  string // declared type, if present on the declaration
	ScopeID    ScopeId
}

// Return records a return statement's expression text and enclosing scope.
type Return struct {
	Expression string
	Location   Location
	ScopeID    ScopeId
}

// ImportKind classifies an ImportEdge.
type ImportKind string

const (
	ImportNamed     ImportKind = "named"
	ImportDefault   ImportKind = "default"
	ImportNamespace ImportKind = "namespace"
)

// ImportEdge connects an importing file to a (possibly unresolved)
// exporting file.
type ImportEdge struct {
	ID             string
	ImportingFile  FilePath
	ExportingFile  FilePath // empty if unresolved
	ImportedName   string
	LocalName      string
	Kind           ImportKind
	ScopeID        ScopeId
	Location       Location
	ImportPathText string // raw module specifier as written in source
}

// CallChainNode is one step of a traversed call chain.
type CallChainNode struct {
	SymbolID    SymbolId
	Location    Location
	Depth       int
	IsRecursive bool
}

// CallChain is a root-to-leaf (or root-to-cycle) traversal result.
type CallChain struct {
	EntryPoint    SymbolId
	Nodes         []CallChainNode
	Depth         int
	HasRecursion  bool
	CyclePoint    SymbolId // set iff HasRecursion
}

// ClassNode is a class/struct/type in the class hierarchy graph.
type ClassNode struct {
	SymbolID    SymbolId
	Name        string
	FilePath    FilePath
	BaseClasses []string // names, resolved to SymbolId by the hierarchy builder
	Interfaces  []string
	MethodNames []string
	MRO         []SymbolId
}

// InterfaceDefinition is a derived interface/trait/protocol description.
type InterfaceDefinition struct {
	Name               string
	Location           Location
	RequiredMethods    map[string]string // method name -> SymbolId of the declaring member
	RequiredProperties []string
	ParentInterfaces   []string
	Language           Language
}

// InterfaceImplementation maps one implementor to one interface.
type InterfaceImplementation struct {
	ImplementorSymbol  SymbolId
	ImplementorName    string
	InterfaceName      string
	ImplementedMethods map[string]SymbolId
	MissingMembers     []string
	IsComplete         bool
}
