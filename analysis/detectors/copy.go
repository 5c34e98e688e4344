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
	"fmt"

	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/analysis/query"
	"github.com/darkmacheken/wasmati/analysis/taint"
	"github.com/darkmacheken/wasmati/internal/funcutil"
)

// TaintedCopy reports the copies into a static buffer whose source depends on a tainted parameter. The copies are
// the calls to the functions of the memcpy list, outside of those functions. The destination is static when it is
// an address in the stack frame, a constant address, a load from a constant address, or the value of an allocation
// of constant size.
//
// The source depends on a parameter of the calling function through a local. That parameter is tainted when it is
// a tainted parameter of the config (or of an exported function, with exported-as-sinks), or when the argument at
// its position in some call site depends on a tainted parameter of the caller, recursively.
// There is one row per call, for the first tainted parameter.
type TaintedCopy struct{}

// Name returns bo-memcpy
func (TaintedCopy) Name() string { return "bo-memcpy" }

// Header returns function, call, variable, origin, origin_function
func (TaintedCopy) Header() []string {
	return []string{"function", "call", "variable", "origin", "origin_function"}
}

// Run runs the detector
func (TaintedCopy) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	copies := funcutil.Set(s.Config.Memcpy)
	tainted, err := taint.TaintedParams(ctx, s.Store, s.Config)
	if err != nil {
		return nil, err
	}
	origins := &taintOrigins{s: s, tainted: tainted}

	err = forEachFunction(s, func(fn *cpg.Node) error {
		if copies[fn.Name] {
			return nil
		}
		calls, err := callsIn(ctx, s, fn, copies)
		if err != nil || len(calls) == 0 {
			return err
		}
		params, err := query.Parameters(ctx, s.Store, fn)
		if err != nil {
			return err
		}
		for _, c := range calls {
			dest, ok := query.Child(s.Store, c.ID, 0)
			if !ok || !isStaticBuffer(s, dest) {
				continue
			}
			src, ok := query.Child(s.Store, c.ID, 1)
			if !ok {
				continue
			}
			for _, param := range localParams(s, src, params) {
				origin, ok, err := origins.find(ctx, param, map[string]bool{})
				if err != nil {
					return err
				}
				if ok {
					rows = append(rows, TaintedCopyRow{
						Function:       fn.Name,
						Call:           c.Label,
						Variable:       param.Name,
						Origin:         origin.Name,
						OriginFunction: origin.function,
					})
					break
				}
			}
		}
		return nil
	})
	return rows, err
}

// isStaticBuffer returns true when the value of n is the address of a buffer whose location is known statically
func isStaticBuffer(s *State, n *cpg.Node) bool {
	switch {
	case query.HasEdgeInto(s.Store, n.ID, cpg.PDG, query.PDGEdge(cpg.Global, s.Config.FramePointer)):
		return true
	case query.HasEdgeFrom(s.Store, n.ID, cpg.PDG, query.PDGOfType(cpg.Const)):
		return true
	case n.IsInstruction(cpg.InstLoad) && len(s.Store.OutEdges(n.ID, cpg.AST)) == 1 &&
		query.HasEdgeInto(s.Store, n.ID, cpg.PDG, query.PDGOfType(cpg.Const)):
		return true
	}
	return constantAllocation(s, n).IsSome()
}

// constantAllocation returns the size of the allocation whose value is n, when n is a call to an allocation function
// with a constant size or the direct user of one
func constantAllocation(s *State, n *cpg.Node) funcutil.Optional[int64] {
	if n.IsInstruction(cpg.InstCall) && s.Config.IsMalloc(n.Label) {
		return query.ConstInto(s.Store, n.ID, nil)
	}
	fromMalloc := func(e *cpg.Edge) bool { return e.PDGType == cpg.FunctionDep && s.Config.IsMalloc(e.Label) }
	out := query.EdgesOf(s.Store, n.ID, cpg.PDG, query.Out, fromMalloc)
	if len(out) == 0 {
		return funcutil.None[int64]()
	}
	label := out[0].Label
	for _, e := range query.EdgesOf(s.Store, n.ID, cpg.PDG, query.In, query.PDGEdge(cpg.FunctionDep, label)) {
		if m, ok := s.Store.Node(e.Src); ok && m.IsInstruction(cpg.InstCall) && m.Label == label {
			return query.ConstInto(s.Store, m.ID, nil)
		}
	}
	return funcutil.None[int64]()
}

// localParams returns the parameters among params that n depends on, or that depend on n, through a local
func localParams(s *State, n *cpg.Node, params []*cpg.Node) []*cpg.Node {
	isLocal := query.PDGOfType(cpg.Local)
	names := map[string]bool{}
	for _, e := range query.EdgesOf(s.Store, n.ID, cpg.PDG, query.Out, isLocal) {
		names[e.Label] = true
	}
	for _, e := range query.EdgesOf(s.Store, n.ID, cpg.PDG, query.In, isLocal) {
		names[e.Label] = true
	}
	return funcutil.Filter(params, func(p *cpg.Node) bool { return names[p.Name] })
}

// origin is a tainted parameter of a function
type origin struct {
	*cpg.Node
	function string
}

// taintOrigins follows parameters backwards through their call sites up to a tainted parameter
type taintOrigins struct {
	s       *State
	tainted map[string]map[int]bool
}

// find returns the tainted parameter that param depends on, searching the callers in ID order. Functions in visited
// are not searched again.
func (o *taintOrigins) find(ctx context.Context, param *cpg.Node, visited map[string]bool) (origin, bool, error) {
	fn, ok := query.FunctionOf(o.s.Store, param.ID)
	if !ok || visited[fn.Name] {
		return origin{}, false, nil
	}
	visited[fn.Name] = true
	if params, ok := o.tainted[fn.Name]; ok && params[param.Index] {
		return origin{Node: param, function: fn.Name}, true, nil
	}
	if err := ctx.Err(); err != nil {
		return origin{}, false, fmt.Errorf("%w: %v", query.ErrInconclusive, err)
	}

	for _, call := range query.Callers(o.s.Store, fn) {
		arg, ok := query.Child(o.s.Store, call.ID, param.Index)
		if !ok {
			continue
		}
		caller, ok := query.FunctionOf(o.s.Store, call.ID)
		if !ok || o.s.Config.IsIgnored(caller.Name) {
			continue
		}
		callerParams, err := query.Parameters(ctx, o.s.Store, caller)
		if err != nil {
			return origin{}, false, err
		}
		for _, p := range localParams(o.s, arg, callerParams) {
			res, ok, err := o.find(ctx, p, visited)
			if err != nil || ok {
				return res, ok, err
			}
		}
	}
	return origin{}, false, nil
}
