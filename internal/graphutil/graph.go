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

	"github.com/darkmacheken/wasmati/analysis/cpg"
	"gonum.org/v1/gonum/graph"
)

// Layer is a view of one edge layer of a code property graph, restricted to the edges accepted by a predicate.
// It implements the methods to satisfy yourbasic's graph.Iterator and Gonum's graph.Graph, so that the traversals
// of both libraries can run directly on the store.
type Layer struct {
	store cpg.Store
	kind  cpg.EdgeKind
	pred  func(*cpg.Edge) bool
}

// NewLayer returns the view of the edges of kind in s that satisfy pred. A nil pred accepts every edge.
func NewLayer(s cpg.Store, kind cpg.EdgeKind, pred func(*cpg.Edge) bool) Layer {
	return Layer{store: s, kind: kind, pred: pred}
}

func (l Layer) accepts(e *cpg.Edge) bool {
	return l.pred == nil || l.pred(e)
}

// Successors returns the distinct successors of id in the layer, in ascending order
func (l Layer) Successors(id int64) []int64 {
	var res []int64
	seen := map[int64]bool{}
	for _, e := range l.store.OutEdges(id, l.kind) {
		if !seen[e.Dest] && l.accepts(e) {
			seen[e.Dest] = true
			res = append(res, e.Dest)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Order implements the order of the graph.Iterator interface for the Layer
func (l Layer) Order() int {
	return l.store.Order()
}

// Visit implements the graph.Iterator interface for the Layer
func (l Layer) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for _, w := range l.Successors(int64(v)) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (l Layer) Node(id int64) graph.Node {
	n, ok := l.store.Node(id)
	if !ok {
		return nil
	}
	return CNode{n}
}

// Nodes returns the set of nodes in the graph
func (l Layer) Nodes() graph.Nodes {
	ids := make([]int64, l.store.Order())
	for i := range ids {
		ids[i] = int64(i)
	}
	return newNodeSet(l.store, ids)
}

// From returns the set of nodes reachable from the id by one edge
func (l Layer) From(id int64) graph.Nodes {
	return newNodeSet(l.store, l.Successors(id))
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (l Layer) HasEdgeBetween(xid, yid int64) bool {
	return l.hasEdgeFromTo(xid, yid) || l.hasEdgeFromTo(yid, xid)
}

func (l Layer) hasEdgeFromTo(uid, vid int64) bool {
	for _, e := range l.store.OutEdges(uid, l.kind) {
		if e.Dest == vid && l.accepts(e) {
			return true
		}
	}
	return false
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (l Layer) Edge(uid, vid int64) graph.Edge {
	if !l.hasEdgeFromTo(uid, vid) {
		return nil
	}
	u, _ := l.store.Node(uid)
	v, _ := l.store.Node(vid)
	return CEdge{from: CNode{u}, to: CNode{v}}
}

// *************** Nodes implementation **********************

// CNode is a wrapper around a *cpg.Node that implements the graph.Node interface
type CNode struct {
	Node *cpg.Node
}

// ID returns the id of the node
func (n CNode) ID() int64 {
	return n.Node.ID
}

func (n CNode) String() string {
	if n.Node == nil {
		return ""
	}
	return n.Node.String()
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	store cpg.Store

	// ids is the set of node ids in the iterator
	ids []int64

	// cur is the current index of the iterator. The current node is ids[cur]
	// invariant: -1 <= cur < len(ids); cur is -1 before the first call to Next
	cur int
}

func newNodeSet(s cpg.Store, ids []int64) *NodeSet {
	return &NodeSet{store: s, ids: ids, cur: -1}
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of nodes remaining in the iterator
func (ns *NodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset resets the iterator to before its first node
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node return the current node in the set
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	n, _ := ns.store.Node(ns.ids[ns.cur])
	return CNode{n}
}

// *************** Edge implementation **********************

// CEdge implements the graph.Edge interface
type CEdge struct {
	from CNode
	to   CNode
}

// From returns the origin of the edge
func (e CEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e CEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e CEdge) ReversedEdge() graph.Edge {
	return CEdge{from: e.to, to: e.from}
}
