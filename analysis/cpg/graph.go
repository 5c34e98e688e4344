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

package cpg

import (
	"fmt"
	"strconv"
)

// Builder accumulates nodes and edges and produces an immutable Graph.
// A Builder is not safe for concurrent use.
type Builder struct {
	nodes  []*Node
	edges  []*Edge
	keys   map[string]int64
	parent map[int64]int64
	frozen bool
}

// NewBuilder returns an empty builder
func NewBuilder() *Builder {
	return &Builder{
		keys:   map[string]int64{},
		parent: map[int64]int64{},
	}
}

// AddNode adds a copy of n to the graph and returns its ID. The ID field of n is ignored. If n has no key, its ID
// is used as key.
func (b *Builder) AddNode(n Node) (int64, error) {
	if b.frozen {
		return -1, ErrGraphFrozen
	}
	id := int64(len(b.nodes))
	if n.Key == "" {
		n.Key = strconv.FormatInt(id, 10)
	}
	if _, ok := b.keys[n.Key]; ok {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateNode, n.Key)
	}
	n.ID = id
	b.keys[n.Key] = id
	b.nodes = append(b.nodes, &n)
	return id, nil
}

// Lookup returns the ID of the node with the given key
func (b *Builder) Lookup(key string) (int64, bool) {
	id, ok := b.keys[key]
	return id, ok
}

// Len returns the number of nodes added so far
func (b *Builder) Len() int {
	return len(b.nodes)
}

// AddEdge adds a copy of e to the graph and returns its ID. Src and Dest must be IDs returned by AddNode.
func (b *Builder) AddEdge(e Edge) (int64, error) {
	if b.frozen {
		return -1, ErrGraphFrozen
	}
	if !e.Kind.Valid() {
		return -1, fmt.Errorf("%w: %q", ErrUnknownEdgeKind, e.Kind)
	}
	n := int64(len(b.nodes))
	if e.Src < 0 || e.Src >= n {
		return -1, fmt.Errorf("%w: edge source %d", ErrNodeNotFound, e.Src)
	}
	if e.Dest < 0 || e.Dest >= n {
		return -1, fmt.Errorf("%w: edge destination %d", ErrNodeNotFound, e.Dest)
	}
	if e.Kind == AST {
		if p, ok := b.parent[e.Dest]; ok {
			return -1, fmt.Errorf("%w: node %d has parent %d, cannot add %d", ErrSecondASTParent, e.Dest, p, e.Src)
		}
		b.parent[e.Dest] = e.Src
	} else {
		e.Arg = NoArg
	}
	e.ID = int64(len(b.edges))
	b.edges = append(b.edges, &e)
	return e.ID, nil
}

// Freeze returns the graph built so far. The builder cannot be used after Freeze.
func (b *Builder) Freeze() *Graph {
	b.frozen = true
	g := &Graph{
		nodes: b.nodes,
		edges: b.edges,
		keys:  b.keys,
	}
	for k := range g.out {
		g.out[k] = make([][]*Edge, len(b.nodes))
		g.in[k] = make([][]*Edge, len(b.nodes))
	}
	for _, e := range b.edges {
		k := e.Kind.index()
		g.out[k][e.Src] = append(g.out[k][e.Src], e)
		g.in[k][e.Dest] = append(g.in[k][e.Dest], e)
		g.count[k]++
	}
	return g
}

// Graph is an immutable code property graph. It implements Store.
type Graph struct {
	nodes []*Node
	edges []*Edge
	keys  map[string]int64

	// out[k][n] are the edges of kind EdgeKinds[k] leaving node n, in ascending edge ID order
	out [len(EdgeKinds)][][]*Edge
	// in[k][n] are the edges of kind EdgeKinds[k] entering node n, in ascending edge ID order
	in    [len(EdgeKinds)][][]*Edge
	count [len(EdgeKinds)]int
}

var _ Store = (*Graph)(nil)

// Order returns the number of nodes in the graph
func (g *Graph) Order() int {
	return len(g.nodes)
}

// Size returns the number of edges of kind k
func (g *Graph) Size(k EdgeKind) int {
	if i := k.index(); i >= 0 {
		return g.count[i]
	}
	return 0
}

// Node returns the node with identifier id
func (g *Graph) Node(id int64) (*Node, bool) {
	if id < 0 || id >= int64(len(g.nodes)) {
		return nil, false
	}
	return g.nodes[id], true
}

// NodeByKey returns the node that was added with key
func (g *Graph) NodeByKey(key string) (*Node, bool) {
	id, ok := g.keys[key]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Nodes returns the nodes satisfying pred, in ID order
func (g *Graph) Nodes(pred func(*Node) bool) []*Node {
	var res []*Node
	for _, n := range g.nodes {
		if pred == nil || pred(n) {
			res = append(res, n)
		}
	}
	return res
}

// Edges returns the edges of kind k satisfying pred, in ID order
func (g *Graph) Edges(k EdgeKind, pred func(*Edge) bool) []*Edge {
	var res []*Edge
	for _, e := range g.edges {
		if e.Kind == k && (pred == nil || pred(e)) {
			res = append(res, e)
		}
	}
	return res
}

// OutEdges returns the edges of kind k leaving id
func (g *Graph) OutEdges(id int64, k EdgeKind) []*Edge {
	i := k.index()
	if i < 0 || id < 0 || id >= int64(len(g.nodes)) {
		return nil
	}
	return g.out[i][id]
}

// InEdges returns the edges of kind k entering id
func (g *Graph) InEdges(id int64, k EdgeKind) []*Edge {
	i := k.index()
	if i < 0 || id < 0 || id >= int64(len(g.nodes)) {
		return nil
	}
	return g.in[i][id]
}

// AllEdges returns every edge of the graph in ID order. The slice must not be modified.
func (g *Graph) AllEdges() []*Edge {
	return g.edges
}
