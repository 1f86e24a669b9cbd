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
	"unicode"

	"github.com/kraklabs/semindex/pkg/capture"
)

var selfReferenceKeywords = map[string]bool{
	"this": true, "self": true, "super": true, "cls": true,
}

var typeRefContextByRole = map[string]TypeRefContext{
	"annotation": TypeCtxAnnotation,
	"extends":    TypeCtxExtends,
	"implements": TypeCtxImplements,
	"generic":    TypeCtxGeneric,
	"return":     TypeCtxReturn,
}

// ReferenceBundle holds every typed reference record extracted from one
// file, in document order within each collection.
type ReferenceBundle struct {
	Calls          []FunctionCall
	MethodCalls    []MethodCall
	ConstructorCalls []ConstructorCall
	MemberAccesses []MemberAccessReference
	TypeAnnotations []TypeReference
	Assignments    []Assignment
	Returns        []Return
}

// ReferenceExtractor consumes reference/assignment/return captures and
// emits the discriminated reference records of spec.md §4.4.
type ReferenceExtractor struct {
	tree *ScopeTree
	defs *DefinitionExtractor
}

// NewReferenceExtractor builds an extractor over the scope tree and the
// definition extractor that has already run for the same file (needed to
// determine each call site's enclosing caller symbol).
func NewReferenceExtractor(tree *ScopeTree, defs *DefinitionExtractor) *ReferenceExtractor {
	return &ReferenceExtractor{tree: tree, defs: defs}
}

// Extract walks captures and returns the populated ReferenceBundle.
func (r *ReferenceExtractor) Extract(captures []capture.NormalizedCapture) ReferenceBundle {
	var bundle ReferenceBundle

	for _, c := range captures {
		loc := toLocation(r.tree.File, c.Location)
		scope := r.tree.FindContainingScope(loc)
		caller := r.defs.EnclosingCallerSymbol(scope)

		switch c.Category {
		case capture.CategoryReference:
			r.extractReference(c, loc, scope, caller, &bundle)
		case capture.CategoryAssignment:
			bundle.Assignments = append(bundle.Assignments, Assignment{
				Name:     c.Text,
				Location: loc,
				ScopeID:  scope.ID,
			})
		case capture.CategoryReturn:
			bundle.Returns = append(bundle.Returns, Return{
				Expression: c.Text,
				Location:   loc,
				ScopeID:    scope.ID,
			})
		}
	}

	return bundle
}

func (r *ReferenceExtractor) extractReference(c capture.NormalizedCapture, loc Location, scope *LexicalScope, caller SymbolId, bundle *ReferenceBundle) {
	switch c.Entity {
	case capture.EntityFunctionCall:
		bundle.Calls = append(bundle.Calls, FunctionCall{
			Caller:     caller,
			CalleeName: c.Text,
			Location:   loc,
			Arity:      0, // arity beyond name matching is not implemented; see DESIGN.md
		})

	case capture.EntityMethodCall:
		receiverText := c.Context.String("receiver")
		chain := propertyChain(receiverText, c.Text)
		mc := MethodCall{
			Caller:        caller,
			MethodName:    c.Text,
			ReceiverLoc:   loc,
			PropertyChain: chain,
			IsOptional:    c.Context.Bool("is_computed"),
			Location:      loc,
		}
		if selfReferenceKeywords[strings.TrimSpace(receiverText)] {
			mc.SelfKeyword = strings.TrimSpace(receiverText)
		}
		bundle.MethodCalls = append(bundle.MethodCalls, mc)

	case capture.EntityConstructor:
		bundle.ConstructorCalls = append(bundle.ConstructorCalls, ConstructorCall{
			Caller:    caller,
			ClassName: c.Text,
			Location:  loc,
		})

	case capture.EntityMemberAccess:
		at := classifyAccessType(c)
		bundle.MemberAccesses = append(bundle.MemberAccesses, MemberAccessReference{
			Location:      loc,
			MemberName:    c.Text,
			ScopeID:       scope.ID,
			AccessType:    at,
			PropertyChain: propertyChain(firstNonEmpty(c.Context.String("object"), c.Context.String("index")), c.Text),
			IsOptional:    at == AccessIndex,
			IsStatic:      c.Context.Bool("is_static"),
		})

	case capture.EntityTypeReference:
		role := c.Context.String("role")
		ctx, ok := typeRefContextByRole[role]
		if !ok {
			ctx = TypeCtxAnnotation
		}
		bundle.TypeAnnotations = append(bundle.TypeAnnotations, TypeReference{
			Name:     c.Text,
			Context:  ctx,
			Location: loc,
			ScopeID:  scope.ID,
		})
	}
}

// classifyAccessType applies the documented fallback order (spec.md §4.4):
// explicit is_computed in context -> followed_by_call -> numeric member
// name -> conservative method-name pattern -> default property.
func classifyAccessType(c capture.NormalizedCapture) AccessType {
	if c.Context.Bool("is_computed") || c.Context.String("index") != "" {
		return AccessIndex
	}
	if c.Context.Bool("followed_by_call") {
		return AccessMethod
	}
	if isAllDigits(c.Text) {
		return AccessIndex
	}
	if looksLikeMethodName(c.Text) {
		return AccessMethod
	}
	return AccessProperty
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// looksLikeMethodName is a conservative heuristic: verb-like camelCase or
// snake_case names starting with a common verb prefix are treated as
// methods absent better evidence. This mirrors the "conservative
// method-name pattern" fallback named but left loose in spec.md §4.4.
func looksLikeMethodName(name string) bool {
	verbPrefixes := []string{"get", "set", "is", "has", "to", "do", "on", "handle", "build", "create", "update", "delete", "find", "compute"}
	lower := strings.ToLower(name)
	for _, p := range verbPrefixes {
		if strings.HasPrefix(lower, p) && len(name) > len(p) {
			return true
		}
	}
	return false
}

// propertyChain splits a dotted receiver expression (e.g. "a.b") combined
// with the trailing member name into its component identifiers, e.g.
// propertyChain("a.b", "c") -> ["a", "b", "c"].
func propertyChain(receiverText, memberName string) []string {
	var chain []string
	if receiverText != "" {
		chain = append(chain, strings.Split(receiverText, ".")...)
	}
	if memberName != "" {
		chain = append(chain, memberName)
	}
	return chain
}
