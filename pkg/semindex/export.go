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
	"encoding/json"
	"fmt"
	"strings"
)

// symbolLabel renders a human-readable label for a call-chain node: the
// symbol's own name when it is indexed, or the raw placeholder text for an
// unresolved/external-stub target.
func symbolLabel(g *SemanticGraph, id SymbolId) string {
	if sym := g.SymbolByID(id); sym != nil {
		return sym.Name
	}
	text := string(id)
	if rest := strings.TrimPrefix(text, "unresolved:"); rest != text {
		return rest + " (unresolved)"
	}
	if rest := strings.TrimPrefix(text, "external:"); rest != text {
		return rest + " (external)"
	}
	return text
}

// dotID produces a Graphviz-safe node identifier for a SymbolId.
func dotID(id SymbolId) string {
	return fmt.Sprintf("%q", string(id))
}

// ExportCallChainsDOT renders every chain in chains (completed and
// recursive) as a single Graphviz digraph: plain nodes are boxes, edges
// along a recursive chain's cycle are bold red, and the edge that closes
// the cycle back to CyclePoint is styled orange. Adapted from the
// teacher's markdown call-path rendering (pkg/tools/trace.go's
// formatTraceOutput/formatTracePath), retargeted to DOT per spec.md §6.
func ExportCallChainsDOT(g *SemanticGraph, chains CallChainResult) string {
	var sb strings.Builder
	sb.WriteString("digraph call_chains {\n")
	sb.WriteString("  node [shape=box];\n\n")

	seenNodes := make(map[SymbolId]bool)
	emitNode := func(id SymbolId) {
		if seenNodes[id] {
			return
		}
		seenNodes[id] = true
		fmt.Fprintf(&sb, "  %s [label=%q];\n", dotID(id), symbolLabel(g, id))
	}

	seenEdges := make(map[[2]SymbolId]bool)
	emitEdge := func(from, to SymbolId, style string) {
		key := [2]SymbolId{from, to}
		if seenEdges[key] {
			return
		}
		seenEdges[key] = true
		if style == "" {
			fmt.Fprintf(&sb, "  %s -> %s;\n", dotID(from), dotID(to))
		} else {
			fmt.Fprintf(&sb, "  %s -> %s [%s];\n", dotID(from), dotID(to), style)
		}
	}

	writeChain := func(c CallChain) {
		for _, node := range c.Nodes {
			emitNode(node.SymbolID)
		}
		for i := 1; i < len(c.Nodes); i++ {
			from, to := c.Nodes[i-1].SymbolID, c.Nodes[i].SymbolID
			style := ""
			if c.HasRecursion && to == c.CyclePoint {
				style = `color=orange, penwidth=2`
			} else if c.HasRecursion && c.Nodes[i].IsRecursive {
				style = `color=red, style=bold`
			}
			emitEdge(from, to, style)
		}
	}

	for _, c := range chains.Chains {
		writeChain(c)
	}
	for _, c := range chains.RecursiveChains {
		writeChain(c)
	}

	sb.WriteString("}\n")
	return sb.String()
}

// callChainExportNode is the JSON shape of one caller with its observed
// callees, per spec.md §6's "arrays of {caller, callees} pairs".
type callChainExportNode struct {
	Caller      string   `json:"caller"`
	CallerName  string   `json:"caller_name"`
	Callees     []string `json:"callees"`
	CalleeNames []string `json:"callee_names"`
}

// ExportCallChainsJSON renders the call graph reachable from chains as a
// JSON array of {caller, callees} pairs, one entry per distinct caller
// observed across every chain and recursive chain.
func ExportCallChainsJSON(g *SemanticGraph, chains CallChainResult) ([]byte, error) {
	callees := make(map[SymbolId]map[SymbolId]bool)
	order := make([]SymbolId, 0)

	record := func(c CallChain) {
		for i := 0; i < len(c.Nodes)-1; i++ {
			from, to := c.Nodes[i].SymbolID, c.Nodes[i+1].SymbolID
			if callees[from] == nil {
				callees[from] = make(map[SymbolId]bool)
				order = append(order, from)
			}
			callees[from][to] = true
		}
	}
	for _, c := range chains.Chains {
		record(c)
	}
	for _, c := range chains.RecursiveChains {
		record(c)
	}

	out := make([]callChainExportNode, 0, len(order))
	for _, caller := range order {
		entry := callChainExportNode{
			Caller:     string(caller),
			CallerName: symbolLabel(g, caller),
		}
		for callee := range callees[caller] {
			entry.Callees = append(entry.Callees, string(callee))
			entry.CalleeNames = append(entry.CalleeNames, symbolLabel(g, callee))
		}
		out = append(out, entry)
	}

	return json.MarshalIndent(out, "", "  ")
}
