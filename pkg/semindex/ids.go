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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// FilePath is a canonical, repo-relative file path string.
type FilePath string

// SymbolId is a globally-unique, content-addressed identifier for a
// SymbolDefinition. Identical source yields identical ids across reindexes.
type SymbolId string

// ScopeId uniquely identifies a LexicalScope within one file's scope tree.
type ScopeId string

// LocationKey is derived from (file, start_line, start_col) and is used to
// find per-site records (resolutions, annotations) by location.
type LocationKey string

// ModuleCaller is the reserved sentinel used as CallReference.caller for
// calls made at file (module) scope, outside any function or method.
const ModuleCaller = SymbolId("<module>")

func hashHex(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateSymbolId deterministically derives a SymbolId from the symbol's
// kind, name, its containing class (empty if none), and its definition
// location. Reindexing unchanged source yields a bitwise-identical id.
func GenerateSymbolId(kind SymbolKind, name string, owningClass string, loc Location) SymbolId {
	sum := hashHex(string(kind), name, owningClass, string(loc.File),
		fmt.Sprintf("%d:%d", loc.StartLine, loc.StartCol))
	return SymbolId(fmt.Sprintf("sym:%s:%s", kind, sum[:16]))
}

// GenerateScopeId derives a ScopeId from the file, scope kind, and location.
func GenerateScopeId(file FilePath, kind ScopeKind, loc Location) ScopeId {
	sum := hashHex(string(file), string(kind), fmt.Sprintf("%d:%d", loc.StartLine, loc.StartCol))
	return ScopeId(fmt.Sprintf("scope:%s", sum[:16]))
}

// NewLocationKey derives a LocationKey from a Location. Two distinct call
// sites never collide because the file path is part of the key.
func NewLocationKey(loc Location) LocationKey {
	return LocationKey(fmt.Sprintf("%s@%d:%d", loc.File, loc.StartLine, loc.StartCol))
}

// GenerateImportEdgeId derives a stable id for an ImportEdge, used as a map
// key by the import graph and by phase-1 resolution.
func GenerateImportEdgeId(importingFile FilePath, importedName, localName string, loc Location) string {
	sum := hashHex(string(importingFile), importedName, localName, fmt.Sprintf("%d:%d", loc.StartLine, loc.StartCol))
	return fmt.Sprintf("imp:%s", sum[:16])
}

// externalStubId synthesizes a SymbolId for a method/constructor call that
// resolves to an external type with no discovered implementor in the
// indexed sources (see SPEC_FULL.md §4.15). The id is deterministic and
// tagged so consumers can tell it apart from a genuine resolution.
func externalStubId(memberName string, receiverHint string) SymbolId {
	sum := hashHex("external", memberName, receiverHint)
	return SymbolId(fmt.Sprintf("sym:external:%s", sum[:16]))
}

// IsExternalStub reports whether id was synthesized by the external-stub
// fallback tier of the method resolver, rather than bound to a genuine
// SymbolDefinition discovered in the indexed sources.
func IsExternalStub(id SymbolId) bool {
	return strings.HasPrefix(string(id), "sym:external:")
}
