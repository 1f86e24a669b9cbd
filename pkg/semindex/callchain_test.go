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
	"github.com/stretchr/testify/require"
)

func TestCallGraph_RootsAndCallees(t *testing.T) {
	g := NewCallGraph()
	g.AddEdge("main", "parseArgs")
	g.AddEdge("main", "run")
	g.AddEdge("run", "handleRequest")

	roots := g.Roots()
	assert.ElementsMatch(t, []SymbolId{"main"}, roots, "only main is never a callee")
	assert.ElementsMatch(t, []SymbolId{"parseArgs", "run"}, g.Callees("main"))
}

func TestCallGraph_Roots_FullyCyclicFallsBackToAllCallers(t *testing.T) {
	g := NewCallGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	roots := g.Roots()
	assert.ElementsMatch(t, []SymbolId{"a", "b"}, roots, "a fully-cyclic graph returns every caller as a root")
}

func TestAnalyzeCallChains_CompletedChain(t *testing.T) {
	g := NewCallGraph()
	g.AddEdge("main", "run")
	g.AddEdge("run", "handle")

	result := AnalyzeCallChains(g, 10)

	require.Len(t, result.Chains, 1)
	assert.Empty(t, result.RecursiveChains)
	assert.Equal(t, SymbolId("main"), result.Chains[0].EntryPoint)
	assert.Equal(t, 2, result.Chains[0].Depth)
	assert.Equal(t, []SymbolId{"main", "run", "handle"}, chainSymbols(result.Chains[0]))
}

func TestAnalyzeCallChains_DetectsRecursion(t *testing.T) {
	g := NewCallGraph()
	g.AddEdge("factorial", "factorial")

	result := AnalyzeCallChains(g, 10)

	require.Len(t, result.RecursiveChains, 1)
	assert.True(t, result.RecursiveChains[0].HasRecursion)
	assert.Equal(t, SymbolId("factorial"), result.RecursiveChains[0].CyclePoint)

	recursive := GetRecursiveFunctions(result.RecursiveChains)
	assert.True(t, recursive[SymbolId("factorial")])
}

func TestAnalyzeCallChains_StopsAtMaxDepth(t *testing.T) {
	g := NewCallGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "d")

	result := AnalyzeCallChains(g, 2)

	require.Len(t, result.Chains, 1)
	assert.Equal(t, 2, result.Chains[0].Depth)
	assert.Equal(t, []SymbolId{"a", "b", "c"}, chainSymbols(result.Chains[0]))
}

func TestGetLongestChain(t *testing.T) {
	short := CallChain{Depth: 1}
	long := CallChain{Depth: 5}
	got := GetLongestChain([]CallChain{short, long}, nil)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.Depth)
}

func TestFindPathsBetween_SimplePaths(t *testing.T) {
	g := NewCallGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "d")
	g.AddEdge("a", "c")
	g.AddEdge("c", "d")

	paths := FindPathsBetween(g, "a", "d", 10)
	assert.Len(t, paths, 2, "both a->b->d and a->c->d should be found")
}

func TestFindPathsBetween_NoPath(t *testing.T) {
	g := NewCallGraph()
	g.AddEdge("a", "b")

	paths := FindPathsBetween(g, "a", "z", 10)
	assert.Empty(t, paths)
}

func TestFindPathsBetweenWithWaypoints_Success(t *testing.T) {
	g := NewCallGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "d")

	path, broken, ok := FindPathsBetweenWithWaypoints(g, "a", []SymbolId{"c"}, "d", 10)
	require.True(t, ok)
	assert.Equal(t, -1, broken)
	assert.Equal(t, []SymbolId{"a", "b", "c", "d"}, path)
}

func TestFindPathsBetweenWithWaypoints_ReportsBrokenSegment(t *testing.T) {
	g := NewCallGraph()
	g.AddEdge("a", "b")
	// no edge from b to the waypoint "x"

	_, broken, ok := FindPathsBetweenWithWaypoints(g, "a", []SymbolId{"x"}, "z", 10)
	assert.False(t, ok)
	assert.Equal(t, 0, broken, "the first segment (a -> x) is the one that breaks")
}

func chainSymbols(c CallChain) []SymbolId {
	out := make([]SymbolId, len(c.Nodes))
	for i, n := range c.Nodes {
		out[i] = n.SymbolID
	}
	return out
}
