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

package query

import (
	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/internal/funcutil"
)

// EdgesOf returns the edges of the given kind incident to node in direction dir that satisfy filter.
// A nil filter accepts every edge. Edges are in ascending ID order.
func EdgesOf(s cpg.Store, node int64, kind cpg.EdgeKind, dir Direction, filter func(*cpg.Edge) bool) []*cpg.Edge {
	var edges []*cpg.Edge
	if dir == In {
		edges = s.InEdges(node, kind)
	} else {
		edges = s.OutEdges(node, kind)
	}
	if filter == nil {
		return edges
	}
	return funcutil.Filter(edges, filter)
}

// Child returns the AST child of node at argument position arg
func Child(s cpg.Store, node int64, arg int) (*cpg.Node, bool) {
	for _, e := range s.OutEdges(node, cpg.AST) {
		if e.Arg == arg {
			return s.Node(e.Dest)
		}
	}
	return nil, false
}

// Children returns the AST children of node, in ascending edge ID order
func Children(s cpg.Store, node int64) []*cpg.Node {
	var children []*cpg.Node
	for _, e := range s.OutEdges(node, cpg.AST) {
		if c, ok := s.Node(e.Dest); ok {
			children = append(children, c)
		}
	}
	return children
}

// Parent returns the AST parent of node
func Parent(s cpg.Store, node int64) (*cpg.Node, bool) {
	in := s.InEdges(node, cpg.AST)
	if len(in) == 0 {
		return nil, false
	}
	return s.Node(in[0].Src)
}

// ConstInto returns the value of the first PDG Const edge entering node that satisfies filter and carries an integer.
// It is None when there is no such edge.
func ConstInto(s cpg.Store, node int64, filter func(*cpg.Edge) bool) funcutil.Optional[int64] {
	for _, e := range s.InEdges(node, cpg.PDG) {
		if filter != nil && !filter(e) {
			continue
		}
		if v, ok := e.Const(); ok {
			return funcutil.Some(v)
		}
	}
	return funcutil.None[int64]()
}

// HasEdgeInto returns true when some edge of the given kind entering node satisfies filter
func HasEdgeInto(s cpg.Store, node int64, kind cpg.EdgeKind, filter func(*cpg.Edge) bool) bool {
	return len(EdgesOf(s, node, kind, In, filter)) > 0
}

// HasEdgeFrom returns true when some edge of the given kind leaving node satisfies filter
func HasEdgeFrom(s cpg.Store, node int64, kind cpg.EdgeKind, filter func(*cpg.Edge) bool) bool {
	return len(EdgesOf(s, node, kind, Out, filter)) > 0
}

// FunctionOf returns the function whose AST contains node
func FunctionOf(s cpg.Store, node int64) (*cpg.Node, bool) {
	seen := map[int64]bool{}
	for n, ok := s.Node(node); ok; n, ok = Parent(s, n.ID) {
		if n.Kind == cpg.Function {
			return n, true
		}
		if seen[n.ID] {
			return nil, false
		}
		seen[n.ID] = true
	}
	return nil, false
}

// Callers returns the call instructions with a call graph edge to fn
func Callers(s cpg.Store, fn *cpg.Node) []*cpg.Node {
	var callers []*cpg.Node
	for _, e := range s.InEdges(fn.ID, cpg.CG) {
		if c, ok := s.Node(e.Src); ok && c.IsInstruction(cpg.InstCall) {
			callers = append(callers, c)
		}
	}
	return callers
}
