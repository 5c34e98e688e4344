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

package graphutil

import "sort"

// Digraph is a small directed graph over int64 node ids, stored as adjacency sets. It implements graph.Iterator, and
// is used for graphs derived from the code property graph, such as the call graph between functions.
type Digraph struct {
	// The order of the graph. All keys are in [0, order)
	order int

	// Keys are all the node IDs, sorted
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between x and y
	Edges map[int64]map[int64]bool
}

// NewDigraph returns the graph over keys with the edges given by successors. Successors that are not in keys are
// dropped. order must be larger than every key.
func NewDigraph(order int, keys []int64, successors func(int64) []int64) Digraph {
	edges := make(map[int64]map[int64]bool, len(keys))
	for _, k := range keys {
		edges[k] = map[int64]bool{}
	}
	for _, k := range keys {
		for _, s := range successors(k) {
			if _, ok := edges[s]; ok {
				edges[k][s] = true
			}
		}
	}
	sorted := make([]int64, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return Digraph{order: order, Keys: sorted, Edges: edges}
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The subgraph's order is the same as in origin, meaning that node indices will stay consistent across subgraphs.
func Subgraph(original Digraph, include []int64) Digraph {
	edges := make(map[int64]map[int64]bool, len(include))
	keys := make([]int64, len(include))
	copy(keys, include)

	for _, i := range include {
		edges[i] = map[int64]bool{}
	}
	for _, i := range include {
		for e := range original.Edges[i] {
			if _, ok := edges[e]; ok {
				edges[i][e] = true
			}
		}
	}

	return Digraph{
		order: original.order,
		Edges: edges,
		Keys:  keys,
	}
}

// Order implements the order of the graph.Iterator interface for the Digraph
func (c Digraph) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the Digraph. Successors are visited in ascending order.
func (c Digraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for _, w := range c.successors(int64(v)) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// successors returns the successors of v, sorted
func (c Digraph) successors(v int64) []int64 {
	out := c.Edges[v]
	res := make([]int64, 0, len(out))
	for w := range out {
		res = append(res, w)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
