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

const defaultMaxDepth = 10

// CallGraph is the adjacency map driving phase-3 analysis: caller ->
// set of callees, built once across every file's resolved and
// unresolved calls (spec.md §4.9).
type CallGraph struct {
	edges   map[SymbolId]map[SymbolId]bool
	callers map[SymbolId]bool
	callees map[SymbolId]bool
}

// NewCallGraph builds an empty graph.
func NewCallGraph() *CallGraph {
	return &CallGraph{
		edges:   make(map[SymbolId]map[SymbolId]bool),
		callers: make(map[SymbolId]bool),
		callees: make(map[SymbolId]bool),
	}
}

// AddEdge records caller -> callee. Self-edges are kept: a function
// calling itself is a legitimate one-node recursive cycle.
func (g *CallGraph) AddEdge(caller, callee SymbolId) {
	if caller == "" || callee == "" {
		return
	}
	if g.edges[caller] == nil {
		g.edges[caller] = make(map[SymbolId]bool)
	}
	g.edges[caller][callee] = true
	g.callers[caller] = true
	g.callees[callee] = true
}

// Callees returns every callee of caller, in no particular order.
func (g *CallGraph) Callees(caller SymbolId) []SymbolId {
	out := make([]SymbolId, 0, len(g.edges[caller]))
	for callee := range g.edges[caller] {
		out = append(out, callee)
	}
	return out
}

// Roots returns symbols that appear as callers but never as callees; if
// that set is empty (a fully-cyclic graph), every caller is returned
// instead, per spec.md §4.9.
func (g *CallGraph) Roots() []SymbolId {
	var roots []SymbolId
	for caller := range g.callers {
		if !g.callees[caller] {
			roots = append(roots, caller)
		}
	}
	if len(roots) == 0 {
		for caller := range g.callers {
			roots = append(roots, caller)
		}
	}
	return roots
}

// BuildCallGraph assembles the union of resolved and unresolved calls
// across every file in the project into one CallGraph. Function calls are
// resolved against the phase-1 name resolutions (names); method calls and
// constructor calls use their Phase-2 resolution when available. Any call
// site that resolves to nothing still participates in traversal via a
// textual placeholder symbol, rather than being dropped silently.
func BuildCallGraph(project *ProjectIndex, names map[ScopeId]Resolutions, resolver *MethodResolver) *CallGraph {
	g := NewCallGraph()

	for _, idx := range project.Files {
		for _, fc := range idx.References.Calls {
			scope := idx.ScopeTree.FindContainingScope(fc.Location)
			target := SymbolId("unresolved:" + fc.CalleeName)
			if id, ok := names[scope.ID][fc.CalleeName]; ok {
				target = id
			}
			g.AddEdge(fc.Caller, target)
		}

		for _, mc := range idx.References.MethodCalls {
			target := SymbolId("unresolved:" + mc.MethodName)
			if res, ok := resolver.MethodCallTarget(NewLocationKey(mc.Location)); ok {
				target = res.SymbolID
			}
			g.AddEdge(mc.Caller, target)
		}

		for _, cc := range idx.References.ConstructorCalls {
			target := SymbolId("unresolved:" + cc.ClassName)
			if classID, ok := resolver.ConstructorCallTarget(NewLocationKey(cc.Location)); ok {
				target = classID
			}
			g.AddEdge(cc.Caller, target)
		}
	}

	return g
}

// CallChainNode and CallChain are defined in types.go.

// CallChainResult holds every completed and recursive chain discovered
// from all roots, plus the overall maximum depth observed.
type CallChainResult struct {
	Chains          []CallChain
	RecursiveChains []CallChain
	MaxChainDepth   int
}

// AnalyzeCallChains runs depth-first traversal from every root of g,
// bounded by maxDepth (spec.md's default is 10; pass 0 to use the
// default), and returns every discovered chain.
func AnalyzeCallChains(g *CallGraph, maxDepth int) CallChainResult {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	var result CallChainResult

	for _, root := range g.Roots() {
		visited := map[SymbolId]bool{root: true}
		path := []CallChainNode{{SymbolID: root, Depth: 0}}
		walkChain(g, root, visited, path, maxDepth, &result)
	}

	return result
}

// walkChain implements the per-step rules of spec.md §4.9: stop and save
// at max_depth, stop and record a recursive chain on revisiting a node,
// branch per callee with a branch-local visited set and path, and save a
// completed chain at a dead end.
func walkChain(g *CallGraph, current SymbolId, visited map[SymbolId]bool, path []CallChainNode, maxDepth int, result *CallChainResult) {
	depth := path[len(path)-1].Depth

	if depth == maxDepth {
		saveChain(path, result, false, "")
		return
	}

	callees := g.Callees(current)
	if len(callees) == 0 {
		saveChain(path, result, false, "")
		return
	}

	for _, callee := range callees {
		if visited[callee] {
			cyclePath := append(append([]CallChainNode{}, path...), CallChainNode{
				SymbolID:    callee,
				Depth:       depth + 1,
				IsRecursive: true,
			})
			saveChain(cyclePath, result, true, callee)
			continue
		}

		branchVisited := make(map[SymbolId]bool, len(visited)+1)
		for k := range visited {
			branchVisited[k] = true
		}
		branchVisited[callee] = true

		branchPath := append(append([]CallChainNode{}, path...), CallChainNode{
			SymbolID: callee,
			Depth:    depth + 1,
		})

		walkChain(g, callee, branchVisited, branchPath, maxDepth, result)
	}
}

// saveChain records a non-empty chain into result, classifying it as
// recursive when cyclePoint is set.
func saveChain(path []CallChainNode, result *CallChainResult, recursive bool, cyclePoint SymbolId) {
	if len(path) == 0 {
		return
	}
	chain := CallChain{
		EntryPoint:   path[0].SymbolID,
		Nodes:        path,
		Depth:        path[len(path)-1].Depth,
		HasRecursion: recursive,
		CyclePoint:   cyclePoint,
	}
	if chain.Depth > result.MaxChainDepth {
		result.MaxChainDepth = chain.Depth
	}
	if recursive {
		result.RecursiveChains = append(result.RecursiveChains, chain)
	} else {
		result.Chains = append(result.Chains, chain)
	}
}

// DetectRecursion returns every chain (from either collection) that
// revisits a node, i.e. every chain already classified HasRecursion.
func DetectRecursion(chains []CallChain) []CallChain {
	var out []CallChain
	for _, c := range chains {
		if c.HasRecursion {
			out = append(out, c)
		}
	}
	return out
}

// GetRecursiveFunctions returns the set of every function appearing
// within any recursive chain's cycle region: from the first occurrence
// of CyclePoint onward in that chain's node list.
func GetRecursiveFunctions(recursiveChains []CallChain) map[SymbolId]bool {
	out := make(map[SymbolId]bool)
	for _, chain := range recursiveChains {
		inCycle := false
		for _, node := range chain.Nodes {
			if node.SymbolID == chain.CyclePoint {
				inCycle = true
			}
			if inCycle {
				out[node.SymbolID] = true
			}
		}
	}
	return out
}

// GetLongestChain returns the chain (among both completed and recursive
// collections) with the greatest Depth, or nil if chains is empty.
func GetLongestChain(completed, recursive []CallChain) *CallChain {
	var longest *CallChain
	consider := func(c CallChain) {
		if longest == nil || c.Depth > longest.Depth {
			cp := c
			longest = &cp
		}
	}
	for _, c := range completed {
		consider(c)
	}
	for _, c := range recursive {
		consider(c)
	}
	return longest
}

// pathSearchNode is one frontier entry in FindPathsBetween's breadth-first
// search: the current symbol and the path taken to reach it.
type pathSearchNode struct {
	symbol SymbolId
	path   []SymbolId
}

// FindPathsBetween enumerates every simple path from start to end, bounded
// by maxDepth edges, via breadth-first search — adapted from the
// waypoint-chaining trace search pattern, generalized here to run a single
// unsegmented search rather than chaining through intermediate waypoints.
func FindPathsBetween(g *CallGraph, start, end SymbolId, maxDepth int) [][]SymbolId {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	var paths [][]SymbolId
	queue := []pathSearchNode{{symbol: start, path: []SymbolId{start}}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if len(current.path)-1 >= maxDepth {
			continue
		}

		for _, callee := range g.Callees(current.symbol) {
			if containsSymbol(current.path, callee) {
				continue // simple paths only: never revisit a node
			}
			nextPath := append(append([]SymbolId{}, current.path...), callee)
			if callee == end {
				paths = append(paths, nextPath)
				continue
			}
			queue = append(queue, pathSearchNode{symbol: callee, path: nextPath})
		}
	}

	return paths
}

// FindPathsBetweenWithWaypoints chains FindPathsBetween across an ordered
// list of intermediate waypoints (start -> wp1 -> wp2 -> ... -> end),
// concatenating one path per segment and reporting which segment broke
// the chain, if any — the supplemented tracing behavior adapted from
// pkg/tools/trace.go's waypoint-chained BFS.
func FindPathsBetweenWithWaypoints(g *CallGraph, start SymbolId, waypoints []SymbolId, end SymbolId, maxDepth int) (path []SymbolId, brokenSegment int, ok bool) {
	stops := append([]SymbolId{start}, waypoints...)
	stops = append(stops, end)

	var full []SymbolId
	for i := 0; i < len(stops)-1; i++ {
		segments := FindPathsBetween(g, stops[i], stops[i+1], maxDepth)
		if len(segments) == 0 {
			return nil, i, false
		}
		seg := segments[0]
		if i > 0 {
			seg = seg[1:]
		}
		full = append(full, seg...)
	}
	return full, -1, true
}

func containsSymbol(path []SymbolId, s SymbolId) bool {
	for _, p := range path {
		if p == s {
			return true
		}
	}
	return false
}
