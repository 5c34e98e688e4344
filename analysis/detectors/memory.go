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

package detectors

import (
	"context"

	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/analysis/query"
	"github.com/darkmacheken/wasmati/internal/funcutil"
)

// release is a call m to an allocation function followed by a call free to the matching release function that
// releases the value returned by m
type release struct {
	fn   *cpg.Node
	pair config.ControlFlowSpec
	m    *cpg.Node
	free *cpg.Node
	// frees are all the calls to the release function in fn
	frees []*cpg.Node
}

// forEachRelease calls f on every release of a value allocated by one of the control-flow pairs of the config.
// The call to the release function must be reachable from the allocation in the control flow, and the value
// returned by the allocation must flow into it. Each distinct pair is matched on its own: a value allocated by the
// source of one pair and released by the destination of another is not a release.
func forEachRelease(ctx context.Context, s *State, f func(r release) error) error {
	return forEachFunction(s, func(fn *cpg.Node) error {
		for _, pair := range funcutil.Uniq(s.Config.ControlFlow) {
			allocs, err := calls(ctx, s, fn, pair.Source)
			if err != nil {
				return err
			}
			if len(allocs) == 0 {
				continue
			}
			frees, err := calls(ctx, s, fn, pair.Dest)
			if err != nil {
				return err
			}
			if len(frees) == 0 {
				continue
			}
			freeIDs := funcutil.Map(frees, nodeID)
			for _, m := range allocs {
				released, err := flowsTo(ctx, s, m, m, freeIDs)
				if err != nil {
					return err
				}
				for _, free := range frees {
					if released[free.ID] {
						if err := f(release{fn: fn, pair: pair, m: m, free: free, frees: frees}); err != nil {
							return err
						}
					}
				}
			}
		}
		return nil
	})
}

// flowsTo returns the set of targets that are reachable from `from` in the control flow and that the value returned
// by the call m reaches through the PDG
func flowsTo(ctx context.Context, s *State, m *cpg.Node, from *cpg.Node, targets []int64) (map[int64]bool, error) {
	after, err := query.ReachAny(ctx, s.Store, from.ID, targets, cpg.CFG, nil)
	if err != nil || len(after) == 0 {
		return nil, err
	}
	reached, err := query.ReachAny(ctx, s.Store, m.ID, after, cpg.PDG, query.PDGEdge(cpg.FunctionDep, m.Label))
	if err != nil {
		return nil, err
	}
	return funcutil.Set(reached), nil
}

// DoubleFree reports the values released twice: for a release of the value of m by free1, a second call free2 to
// the release function that is reachable from free1 in the control flow and that the value of m also reaches.
// There is one row per (m, free1, free2) triple.
type DoubleFree struct{}

// Name returns double-free
func (DoubleFree) Name() string { return "double-free" }

// Header returns caller, function
func (DoubleFree) Header() []string { return callHeader }

// Run runs the detector
func (DoubleFree) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	err := forEachRelease(ctx, s, func(r release) error {
		second, err := flowsTo(ctx, s, r.m, r.free, funcutil.Map(r.frees, nodeID))
		if err != nil {
			return err
		}
		for _, free2 := range r.frees {
			if second[free2.ID] {
				s.Logger.Debugf("double free of %s: %s then %s in %s", r.m, r.free, free2, r.fn.Name)
				rows = append(rows, CallRow{Caller: free2.Label, Function: r.fn.Name})
			}
		}
		return nil
	})
	return rows, err
}

// UseAfterFree reports the values used after being released: for a release of the value of m by free, an
// instruction u that is reachable from free in the control flow, that depends on the value of m and that is neither
// a call to the release function nor an argument of one. There is at most one row per (m, free) pair, for the u with
// the lowest ID.
type UseAfterFree struct{}

// Name returns use-after-free
func (UseAfterFree) Name() string { return "use-after-free" }

// Header returns caller, function
func (UseAfterFree) Header() []string { return callHeader }

// Run runs the detector
func (UseAfterFree) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	err := forEachRelease(ctx, s, func(r release) error {
		uses, err := query.Instructions(ctx, s.Store, r.fn, func(n *cpg.Node) bool {
			return query.HasEdgeInto(s.Store, n.ID, cpg.PDG, query.PDGEdge(cpg.FunctionDep, r.m.Label)) &&
				!isReleaseOrArgument(s.Store, n, r.pair.Dest)
		})
		if err != nil || len(uses) == 0 {
			return err
		}
		used, err := flowsTo(ctx, s, r.m, r.free, funcutil.Map(uses, nodeID))
		if err != nil {
			return err
		}
		for _, u := range uses {
			if used[u.ID] {
				s.Logger.Debugf("use of %s after %s: %s in %s", r.m, r.free, u, r.fn.Name)
				rows = append(rows, CallRow{Caller: u.Label, Function: r.fn.Name})
				break
			}
		}
		return nil
	})
	return rows, err
}

// isReleaseOrArgument returns true when n is a call to the release function or a direct argument of one
func isReleaseOrArgument(s cpg.Store, n *cpg.Node, releaseFn string) bool {
	isRelease := query.IsCall(releaseFn)
	if isRelease(n) {
		return true
	}
	parent, ok := query.Parent(s, n.ID)
	return ok && isRelease(parent)
}
