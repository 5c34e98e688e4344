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

import (
	"sort"

	"github.com/yourbasic/graph"
)

// FindAllElementaryCycles finds all elementary cycles in the graph, self-loops included. Each cycle starts and ends
// with its smallest node.
// This uses Donald B. Johnson's algorithm presented in
// "Finding All The Elementary Circuits of a Directed Graph", 1975
//
//	cg : the graph with cycles, e.g. the call graph between the functions of a module
func FindAllElementaryCycles(cg Digraph) [][]int64 {
	s := &state{
		blocked: map[int64]bool{},
		blist:   map[int64]map[int64]bool{},
		stack:   []int64{},
		cycles:  [][]int64{},
	}
	position := make(map[int64]int, len(cg.Keys))
	for i, k := range cg.Keys {
		position[k] = i
	}

	i := 0
	for i < len(cg.Keys) {
		fg := Subgraph(cg, cg.Keys[i:])
		start, found := leastCyclicNode(fg, position)
		if !found {
			return s.cycles
		}
		s.stack = []int64{}
		s.blocked = map[int64]bool{}
		s.blist = map[int64]map[int64]bool{}
		s.circuit(start, start, fg)
		i = position[start] + 1
	}
	return s.cycles
}

// leastCyclicNode returns the node of g with the smallest position that belongs to a cycle of g
func leastCyclicNode(g Digraph, position map[int64]int) (int64, bool) {
	best := int64(-1)
	found := false
	better := func(x int64) {
		if _, inGraph := g.Edges[x]; !inGraph {
			return
		}
		if !found || position[x] < position[best] {
			best = x
			found = true
		}
	}
	for _, component := range graph.StrongComponents(g) {
		if len(component) >= 2 {
			sort.Ints(component)
			for _, x := range component {
				better(int64(x))
			}
		} else if len(component) == 1 && g.Edges[int64(component[0])][int64(component[0])] {
			better(int64(component[0]))
		}
	}
	return best, found
}

type state struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (s *state) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *state) circuit(v int64, i int64, g Digraph) bool {
	f := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	for _, w := range g.successors(v) {
		if w == i {
			stackCopy := make([]int64, len(s.stack))
			copy(stackCopy, s.stack)
			stackCopy = append(stackCopy, w)
			s.cycles = append(s.cycles, stackCopy)
			f = true
		} else if !s.blocked[w] {
			if s.circuit(w, i, g) {
				f = true
			}
		}
	}

	if f {
		s.unblock(v)
	} else {
		for _, w := range g.successors(v) {
			m := s.blist[w]
			if m != nil {
				s.blist[w][v] = true
			} else {
				s.blist[w] = map[int64]bool{v: true}
			}
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return f
}
