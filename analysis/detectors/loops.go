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

	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/analysis/query"
	"github.com/darkmacheken/wasmati/internal/funcutil"
)

// comparisons that do not bound a loop
var equalityOpcodes = map[string]bool{"i32.eq": true, "i32.eqz": true}

func isLocalAccess(n *cpg.Node) bool {
	return n.IsInstruction(cpg.InstLocalGet) || n.IsInstruction(cpg.InstLocalTee)
}

// loopBodies calls f on every loop of fn with the instructions of its body, the loop included
func loopBodies(ctx context.Context, s *State, fn *cpg.Node, f func(loop *cpg.Node, body []*cpg.Node) error) error {
	loops, err := query.Instructions(ctx, s.Store, fn, query.IsInstruction(cpg.InstLoop))
	if err != nil {
		return err
	}
	for _, loop := range loops {
		body, err := query.Subtree(ctx, s.Store, loop.ID)
		if err != nil {
			return err
		}
		if err := f(loop, funcutil.Filter(body, query.IsKind(cpg.Instruction))); err != nil {
			return err
		}
	}
	return nil
}

// BufferLoops reports the loops that store to a buffer at an address computed by adding a local variable, where the
// variable is incremented by a constant in the loop but no conditional branch of the loop compares it.
// There is one row per loop, for the first such variable in name order.
type BufferLoops struct{}

// Name returns bo-loops
func (BufferLoops) Name() string { return "bo-loops" }

// Header returns function, loop, index
func (BufferLoops) Header() []string { return []string{"function", "loop", "index"} }

// Run runs the detector
func (BufferLoops) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	err := forEachFunction(s, func(fn *cpg.Node) error {
		return loopBodies(ctx, s, fn, func(loop *cpg.Node, body []*cpg.Node) error {
			if index, ok := uncheckedIndex(s, body); ok {
				s.Logger.Debugf("loop %s of %s stores through %s without bound check", loop, fn.Name, index)
				rows = append(rows, LoopRow{Function: fn.Name, Loop: loop.Label, Index: index})
			}
			return nil
		})
	})
	return rows, err
}

// uncheckedIndex returns the first variable, in name order, that is added to the address of a store of the loop
// body and that no comparison of a conditional branch of the body uses
func uncheckedIndex(s *State, body []*cpg.Node) (string, bool) {
	isAdd := query.And(query.IsInstruction(cpg.InstBinary), query.HasOpcode(s.Config.AddOpcode))

	indices := map[string]bool{}
	for _, store := range funcutil.Filter(body, query.IsInstruction(cpg.InstStore)) {
		addr, ok := query.Child(s.Store, store.ID, 0)
		if !ok || !isAdd(addr) {
			continue
		}
		for _, c := range query.Children(s.Store, addr.ID) {
			if isLocalAccess(c) {
				indices[c.Label] = true
			}
		}
	}
	if len(indices) == 0 {
		return "", false
	}

	var operands []*cpg.Node
	for _, add := range funcutil.Filter(body, isAdd) {
		operands = append(operands, query.Children(s.Store, add.ID)...)
	}
	if !funcutil.Exists(operands, query.IsInstruction(cpg.InstConst)) {
		return "", false
	}

	var compared []*cpg.Node
	for _, br := range funcutil.Filter(body, query.IsInstruction(cpg.InstBrIf)) {
		cond, ok := query.Child(s.Store, br.ID, 0)
		if ok && cond.IsInstruction(cpg.InstCompare) {
			compared = append(compared, query.Children(s.Store, cond.ID)...)
		}
	}
	for _, index := range funcutil.SetToOrderedSlice(indices) {
		isIndex := func(n *cpg.Node) bool { return isLocalAccess(n) && n.Label == index }
		if !funcutil.Exists(operands, isIndex) {
			continue
		}
		if !funcutil.Exists(compared, isIndex) {
			return index, true
		}
	}
	return "", false
}

// ScanfLoops reports the loops that call a scanf-like function with a local buffer and that only exit when a value
// loaded from that buffer is equal to a constant: the loop keeps reading into the buffer until the input provides
// the sentinel. The condition of the branch back to the loop must be a comparison other than an equality with a
// constant operand. There is one row per (loop, branch) pair.
type ScanfLoops struct{}

// Name returns bo-scanf-loops
func (ScanfLoops) Name() string { return "bo-scanf-loops" }

// Header returns function, loop, buffer, sentinel
func (ScanfLoops) Header() []string { return []string{"function", "loop", "buffer", "sentinel"} }

// Run runs the detector
func (ScanfLoops) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	scanfs := funcutil.Set(s.Config.Scanf)
	bufferDep := func(e *cpg.Edge) bool { return e.PDGType == cpg.Global || e.PDGType == cpg.Local }

	err := forEachFunction(s, func(fn *cpg.Node) error {
		return loopBodies(ctx, s, fn, func(loop *cpg.Node, body []*cpg.Node) error {
			// variables holding the buffers read by the scanf calls of the loop
			buffers := map[string]bool{}
			for _, call := range funcutil.Filter(body, query.And(query.IsCall(), query.LabelIn(scanfs))) {
				arg, ok := query.Child(s.Store, call.ID, 1)
				if !ok || !arg.IsInstruction(cpg.InstLocalGet) {
					continue
				}
				for _, e := range query.EdgesOf(s.Store, arg.ID, cpg.PDG, query.Out, bufferDep) {
					buffers[e.Label] = true
				}
			}
			if len(buffers) == 0 {
				return nil
			}
			fromBuffer := func(e *cpg.Edge) bool { return buffers[e.Label] }

			for _, br := range funcutil.Filter(body, query.IsInstruction(cpg.InstBrIf, loop.Label)) {
				cond, ok := query.Child(s.Store, br.ID, 0)
				if !ok || !cond.IsInstruction(cpg.InstCompare) || equalityOpcodes[cond.Opcode] {
					continue
				}
				sentinel := query.ConstInto(s.Store, cond.ID, nil)
				if sentinel.IsNone() {
					continue
				}
				loads, err := query.Descendants(ctx, s.Store, br.ID, cpg.AST, 0, query.Unbounded, func(n *cpg.Node) bool {
					return n.IsInstruction(cpg.InstLoad) && query.HasEdgeInto(s.Store, n.ID, cpg.PDG, fromBuffer)
				})
				if err != nil {
					return err
				}
				if len(loads) == 0 {
					continue
				}
				rows = append(rows, ScanfLoopRow{
					Function: fn.Name,
					Loop:     loop.Label,
					Buffer:   loads[0].Label,
					Sentinel: sentinel.Value(),
				})
			}
			return nil
		})
	})
	return rows, err
}
