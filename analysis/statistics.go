// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package analysis

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/analysis/query"
	"github.com/darkmacheken/wasmati/internal/formatutil"
	"github.com/darkmacheken/wasmati/internal/graphutil"
)

// Statistics summarizes the content of a graph
type Statistics struct {
	Nodes map[cpg.NodeKind]int
	Edges map[cpg.EdgeKind]int

	NumberOfFunctions    int
	NumberOfImports      int
	NumberOfInstructions int

	// Loops maps the functions whose control flow has cycles to the number of cyclic components of their CFG
	Loops map[string]int

	// Recursions are the elementary cycles of the call graph between functions, as lists of function names
	Recursions [][]string
}

// GraphStatistics returns statistics about g. Loops are the strongly connected components of the control-flow graph
// of each function; recursions are the elementary cycles of the call graph.
func GraphStatistics(ctx context.Context, g cpg.Store) (*Statistics, error) {
	stats := &Statistics{
		Nodes: map[cpg.NodeKind]int{},
		Edges: map[cpg.EdgeKind]int{},
		Loops: map[string]int{},
	}
	for _, n := range g.Nodes(nil) {
		stats.Nodes[n.Kind]++
		if n.Kind == cpg.Instruction {
			stats.NumberOfInstructions++
		}
	}
	for _, k := range cpg.EdgeKinds {
		stats.Edges[k] = len(g.Edges(k, nil))
	}

	functions := query.Functions(g)
	callees := map[int64][]int64{}
	for _, fn := range functions {
		stats.NumberOfFunctions++
		if fn.IsImport {
			stats.NumberOfImports++
		}
		instrs, err := query.Instructions(ctx, g, fn, nil)
		if err != nil {
			return nil, err
		}
		if n := len(cfgLoops(g, instrs)); n > 0 {
			stats.Loops[fn.Name] += n
		}
		for _, instr := range instrs {
			for _, e := range g.OutEdges(instr.ID, cpg.CG) {
				callees[fn.ID] = append(callees[fn.ID], e.Dest)
			}
		}
	}

	keys := make([]int64, len(functions))
	for i, fn := range functions {
		keys[i] = fn.ID
	}
	cg := graphutil.NewDigraph(g.Order(), keys, func(id int64) []int64 { return callees[id] })
	for _, cycle := range graphutil.FindAllElementaryCycles(cg) {
		names := make([]string, len(cycle))
		for i, id := range cycle {
			fn, _ := g.Node(id)
			names[i] = fn.Name
		}
		stats.Recursions = append(stats.Recursions, names)
	}
	return stats, nil
}

// cfgLoops returns the cyclic components of the control-flow graph between instrs
func cfgLoops(g cpg.Store, instrs []*cpg.Node) [][]int64 {
	inFunction := make(map[int64]bool, len(instrs))
	ids := make([]int64, len(instrs))
	for i, instr := range instrs {
		inFunction[instr.ID] = true
		ids[i] = instr.ID
	}
	successors := func(id int64) []int64 {
		var res []int64
		for _, e := range g.OutEdges(id, cpg.CFG) {
			if inFunction[e.Dest] {
				res = append(res, e.Dest)
			}
		}
		return res
	}
	return graphutil.Cyclic(graphutil.StronglyConnectedComponents(ids, successors), successors)
}

// Print writes the statistics to w
func (s *Statistics) Print(w io.Writer) {
	fmt.Fprintln(w, formatutil.Bold("Nodes"))
	kinds := make([]string, 0, len(s.Nodes))
	for k := range s.Nodes {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-16s %d\n", k, s.Nodes[cpg.NodeKind(k)])
	}
	fmt.Fprintln(w, formatutil.Bold("Edges"))
	for _, k := range cpg.EdgeKinds {
		fmt.Fprintf(w, "  %-16s %d\n", k, s.Edges[k])
	}
	fmt.Fprintf(w, "%s %d (%d imported), %d instructions\n", formatutil.Bold("Functions"), s.NumberOfFunctions,
		s.NumberOfImports, s.NumberOfInstructions)

	fmt.Fprintf(w, "%s in %d functions\n", formatutil.Bold("Loops"), len(s.Loops))
	names := make([]string, 0, len(s.Loops))
	for name := range s.Loops {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", formatutil.Sanitize(name), s.Loops[name])
	}
	fmt.Fprintf(w, "%s %d\n", formatutil.Bold("Recursive cycles"), len(s.Recursions))
	for _, cycle := range s.Recursions {
		fmt.Fprint(w, "  ")
		for i, name := range cycle {
			if i > 0 {
				fmt.Fprint(w, " -> ")
			}
			fmt.Fprint(w, formatutil.Yellow(formatutil.Sanitize(name)))
		}
		fmt.Fprintln(w)
	}
}
