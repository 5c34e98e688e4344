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

	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/internal/graphutil"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"
)

// Reach returns true when there is a path of one or more edges of the given kind from `from` to `to` such that
// every edge of the path satisfies pred. A nil pred accepts every edge. When from == to, the path must be a cycle.
//
// Predicates usually close over values of the detector, e.g. PDGEdge(cpg.FunctionDep, m.Label) restricts the path
// to the dependencies of the value returned by the call m.
func Reach(ctx context.Context, s cpg.Store, from, to int64, kind cpg.EdgeKind, pred func(*cpg.Edge) bool) (bool,
	error) {
	src, ok := s.Node(from)
	if !ok {
		return false, fmt.Errorf("%w: %d", cpg.ErrNodeNotFound, from)
	}
	if _, ok := s.Node(to); !ok {
		return false, fmt.Errorf("%w: %d", cpg.ErrNodeNotFound, to)
	}
	layer := graphutil.NewLayer(s, kind, pred)

	// `to` is reachable by one or more edges iff some node reachable by zero or more edges has an edge into `to`.
	// This also covers from == to without treating the empty path as a path.
	predecessors := map[int64]bool{}
	for _, e := range s.InEdges(to, kind) {
		if pred == nil || pred(e) {
			predecessors[e.Src] = true
		}
	}
	if len(predecessors) == 0 {
		return false, nil
	}

	var ctxErr error
	steps := 0
	bf := traverse.BreadthFirst{}
	found := bf.Walk(layer, graphutil.CNode{Node: src}, func(n graph.Node, _ int) bool {
		steps++
		if err := checkContext(ctx, steps); err != nil {
			ctxErr = err
			return true
		}
		return predecessors[n.ID()]
	})
	if ctxErr != nil {
		return false, ctxErr
	}
	return found != nil, nil
}

// ReachAny returns the subset of targets reachable from `from` with the same semantics as Reach, using a single
// traversal. The result preserves the order of targets.
func ReachAny(ctx context.Context, s cpg.Store, from int64, targets []int64, kind cpg.EdgeKind,
	pred func(*cpg.Edge) bool) ([]int64, error) {
	src, ok := s.Node(from)
	if !ok {
		return nil, fmt.Errorf("%w: %d", cpg.ErrNodeNotFound, from)
	}
	// targets by predecessor
	byPred := map[int64][]int64{}
	for _, t := range targets {
		for _, e := range s.InEdges(t, kind) {
			if pred == nil || pred(e) {
				byPred[e.Src] = append(byPred[e.Src], t)
			}
		}
	}
	reached := map[int64]bool{}
	if len(byPred) > 0 {
		var ctxErr error
		steps := 0
		bf := traverse.BreadthFirst{}
		bf.Walk(graphutil.NewLayer(s, kind, pred), graphutil.CNode{Node: src}, func(n graph.Node, _ int) bool {
			steps++
			if err := checkContext(ctx, steps); err != nil {
				ctxErr = err
				return true
			}
			for _, t := range byPred[n.ID()] {
				reached[t] = true
			}
			return len(reached) == len(targets)
		})
		if ctxErr != nil {
			return nil, ctxErr
		}
	}
	var res []int64
	for _, t := range targets {
		if reached[t] {
			res = append(res, t)
		}
	}
	return res, nil
}
