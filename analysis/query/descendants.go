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
	"context"
	"fmt"
	"sort"

	"github.com/darkmacheken/wasmati/analysis/cpg"
	"golang.org/x/tools/container/intsets"
)

// Descendants returns the nodes n reachable from root by a path of edges of the given kind whose length is in
// [minHops, maxHops] and such that filter(n). maxHops may be Unbounded. A nil filter accepts every node.
// When minHops is 0, root itself is a candidate.
//
// A node qualifies as soon as one path of admissible length reaches it, even when its shortest path from root is
// shorter than minHops (which can happen in cyclic layers). Results are sorted by ID and have no duplicates.
func Descendants(ctx context.Context, s cpg.Store, root int64, kind cpg.EdgeKind, minHops, maxHops int,
	filter func(*cpg.Node) bool) ([]*cpg.Node, error) {
	if minHops < 0 {
		minHops = 0
	}
	if maxHops != Unbounded && maxHops < minHops {
		return nil, fmt.Errorf("invalid hop interval [%d, %d]", minHops, maxHops)
	}
	if _, ok := s.Node(root); !ok {
		return nil, fmt.Errorf("%w: %d", cpg.ErrNodeNotFound, root)
	}

	// The search is over states (node, min(depth, minHops)), visited in breadth-first order. The first time a state
	// is reached is with the smallest depth, which leaves the most room under maxHops.
	type state struct {
		node  int64
		depth int
	}
	stride := minHops + 1
	key := func(st state) int {
		c := st.depth
		if c > minHops {
			c = minHops
		}
		return int(st.node)*stride + c
	}

	var seen intsets.Sparse
	var found intsets.Sparse
	queue := []state{{root, 0}}
	seen.Insert(key(queue[0]))
	for steps := 1; len(queue) > 0; steps++ {
		if err := checkContext(ctx, steps); err != nil {
			return filterNodes(collect(s, &found), filter), err
		}
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= minHops {
			found.Insert(int(cur.node))
		}
		if maxHops != Unbounded && cur.depth >= maxHops {
			continue
		}
		for _, e := range s.OutEdges(cur.node, kind) {
			next := state{e.Dest, cur.depth + 1}
			if seen.Insert(key(next)) {
				queue = append(queue, next)
			}
		}
	}

	return filterNodes(collect(s, &found), filter), nil
}

func filterNodes(nodes []*cpg.Node, filter func(*cpg.Node) bool) []*cpg.Node {
	if filter == nil {
		return nodes
	}
	filtered := nodes[:0]
	for _, n := range nodes {
		if filter(n) {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

// collect returns the nodes of the set, in ascending ID order
func collect(s cpg.Store, set *intsets.Sparse) []*cpg.Node {
	ids := set.AppendTo(nil)
	sort.Ints(ids)
	res := make([]*cpg.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.Node(int64(id)); ok {
			res = append(res, n)
		}
	}
	return res
}
