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

// Store is the read-only view of a code property graph used by the queries. Implementations must be safe for
// concurrent use and must return results in ascending ID order.
type Store interface {
	// Order returns the number of nodes; node IDs are in [0, Order())
	Order() int

	// Node returns the node with the given id
	Node(id int64) (*Node, bool)

	// Nodes returns all the nodes satisfying pred. A nil pred matches every node.
	Nodes(pred func(*Node) bool) []*Node

	// Edges returns all the edges of the given kind satisfying pred. A nil pred matches every edge.
	Edges(kind EdgeKind, pred func(*Edge) bool) []*Edge

	// OutEdges returns the edges of the given kind leaving node id
	OutEdges(id int64, kind EdgeKind) []*Edge

	// InEdges returns the edges of the given kind entering node id
	InEdges(id int64, kind EdgeKind) []*Edge
}
