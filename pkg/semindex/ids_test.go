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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSymbolId_DeterministicAcrossReindex(t *testing.T) {
	loc := Location{File: "handlers/user.go", StartLine: 10, StartCol: 1, EndLine: 20, EndCol: 1}

	a := GenerateSymbolId(SymFunction, "HandleUser", "", loc)
	b := GenerateSymbolId(SymFunction, "HandleUser", "", loc)

	assert.Equal(t, a, b, "identical source must yield a bitwise-identical id across reindexes")
}

func TestGenerateSymbolId_DiffersByKind(t *testing.T) {
	loc := Location{File: "a.py", StartLine: 1, StartCol: 0}

	fn := GenerateSymbolId(SymFunction, "Parse", "", loc)
	method := GenerateSymbolId(SymMethod, "Parse", "", loc)

	assert.NotEqual(t, fn, method)
}

func TestGenerateSymbolId_DiffersByOwningClass(t *testing.T) {
	loc := Location{File: "a.py", StartLine: 1, StartCol: 0}

	bare := GenerateSymbolId(SymMethod, "run", "", loc)
	owned := GenerateSymbolId(SymMethod, "run", "Worker", loc)

	assert.NotEqual(t, bare, owned)
}

func TestGenerateSymbolId_DiffersByLocation(t *testing.T) {
	locA := Location{File: "a.py", StartLine: 1, StartCol: 0}
	locB := Location{File: "a.py", StartLine: 2, StartCol: 0}

	a := GenerateSymbolId(SymFunction, "run", "", locA)
	b := GenerateSymbolId(SymFunction, "run", "", locB)

	assert.NotEqual(t, a, b, "two definitions with the same name at different locations must get distinct ids")
}

func TestGenerateSymbolId_Prefix(t *testing.T) {
	loc := Location{File: "a.ts", StartLine: 1, StartCol: 0}
	id := GenerateSymbolId(SymClass, "Widget", "", loc)

	assert.Contains(t, string(id), "sym:class:")
}
