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

// readCall is a call to a reading function of the buffer-overflow map, with the constant size it reads
type readCall struct {
	call   *cpg.Node
	buffer *cpg.Node
	size   int64
}

// readCalls returns the calls under fn to the functions of the buffer-overflow map that take a size, with their
// constant sizes. Calls whose size is not a constant are skipped.
func readCalls(ctx context.Context, s *State, fn *cpg.Node) ([]readCall, error) {
	labels := map[string]bool{}
	for name, spec := range s.Config.BufferOverflow {
		if spec.Size != nil && spec.Buffer != nil {
			labels[name] = true
		}
	}
	found, err := callsIn(ctx, s, fn, labels)
	if err != nil {
		return nil, err
	}
	var res []readCall
	for _, c := range found {
		spec := s.Config.BufferOverflow[c.Label]
		buffer, ok := query.Child(s.Store, c.ID, *spec.Buffer)
		if !ok {
			continue
		}
		sizeArg, ok := query.Child(s.Store, c.ID, *spec.Size)
		if !ok {
			continue
		}
		fromSizeArg := func(e *cpg.Edge) bool { return e.Src == sizeArg.ID && e.PDGType == cpg.Const }
		if !query.HasEdgeInto(s.Store, c.ID, cpg.PDG, fromSizeArg) {
			// the size is computed at run time
			continue
		}
		size := query.ConstInto(s.Store, c.ID, fromSizeArg)
		if size.IsNone() {
			s.Logger.Warnf("skipping %s in %s: the size argument is not an integer constant", c, fn.Name)
			continue
		}
		res = append(res, readCall{call: c, buffer: buffer, size: size.Value()})
	}
	return res, nil
}

// MallocBufferOverflow reports the reads into a heap buffer whose size is at least the size of the allocation.
// The buffer must be the value returned by an allocation function with a constant size, and that value must flow
// into the call to the reading function. There is one row per (allocation, read) pair.
type MallocBufferOverflow struct{}

// Name returns malloc-buffer-overflow
func (MallocBufferOverflow) Name() string { return "malloc-buffer-overflow" }

// Header returns function, expected_size, read_size
func (MallocBufferOverflow) Header() []string {
	return []string{"function", "expected_size", "read_size"}
}

// Run runs the detector
func (MallocBufferOverflow) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	mallocs := funcutil.Set(s.Config.Malloc)
	err := forEachFunction(s, func(fn *cpg.Node) error {
		allocs, err := callsIn(ctx, s, fn, mallocs)
		if err != nil || len(allocs) == 0 {
			return err
		}
		reads, err := readCalls(ctx, s, fn)
		if err != nil || len(reads) == 0 {
			return err
		}
		targets := funcutil.Map(reads, func(r readCall) int64 { return r.call.ID })
		for _, m := range allocs {
			if !query.HasEdgeInto(s.Store, m.ID, cpg.PDG, query.PDGOfType(cpg.Const)) {
				continue
			}
			allocSize := query.ConstInto(s.Store, m.ID, nil)
			if allocSize.IsNone() {
				s.Logger.Warnf("skipping %s in %s: the allocation size is not an integer constant", m, fn.Name)
				continue
			}
			reached, err := query.ReachAny(ctx, s.Store, m.ID, targets, cpg.PDG,
				query.PDGEdge(cpg.FunctionDep, m.Label))
			if err != nil {
				return err
			}
			into := funcutil.Set(reached)
			for _, r := range reads {
				if into[r.call.ID] && r.size >= allocSize.Value() {
					rows = append(rows, MallocOverflowRow{
						Function:     fn.Name,
						ExpectedSize: allocSize.Value(),
						ReadSize:     r.size,
					})
				}
			}
		}
		return nil
	})
	return rows, err
}

// StaticBufferOverflow reports the reads into a buffer of the stack frame whose size is at least the size of the
// buffer.
//
// The layout of the frame is inferred from the arithmetic on the frame pointer:
//   - the frame is allocated by the first subtraction of a positive constant from the frame pointer, which gives
//     the size of the frame;
//   - the buffers are at the positive constant offsets added to the value derived from the frame pointer.
//
// The buffer read by a call is the one whose address flows into the call through the frame pointer. When no
// address does, the buffer is the one at the base of the frame. There is one row per (call, buffer) pair.
type StaticBufferOverflow struct{}

// Name returns static-buffer-overflow
func (StaticBufferOverflow) Name() string { return "static-buffer-overflow" }

// Header returns function, buffer_location, expected_size, read_size
func (StaticBufferOverflow) Header() []string {
	return []string{"function", "buffer_location", "expected_size", "read_size"}
}

// Run runs the detector
func (StaticBufferOverflow) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	opts := s.Config.Options
	positive := query.PositiveConst(opts.ConstType)
	throughFramePointer := query.PDGEdge(cpg.Global, opts.FramePointer)

	err := forEachFunction(s, func(fn *cpg.Node) error {
		reads, err := readCalls(ctx, s, fn)
		if err != nil || len(reads) == 0 {
			return err
		}

		subs, err := query.Instructions(ctx, s.Store, fn, query.And(
			query.IsInstruction(cpg.InstBinary),
			query.HasOpcode(opts.SubOpcode),
			func(n *cpg.Node) bool {
				return query.HasEdgeInto(s.Store, n.ID, cpg.PDG, positive) &&
					query.HasEdgeInto(s.Store, n.ID, cpg.PDG, throughFramePointer)
			}))
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			s.Logger.Debugf("no stack frame in %s", fn.Name)
			return nil
		}
		sub := subs[0]
		frameSize := query.ConstInto(s.Store, sub.ID, positive).Value()

		adds, err := query.Instructions(ctx, s.Store, fn, query.And(
			query.IsInstruction(cpg.InstBinary),
			query.HasOpcode(opts.AddOpcode),
			func(n *cpg.Node) bool { return query.HasEdgeInto(s.Store, n.ID, cpg.PDG, positive) }))
		if err != nil {
			return err
		}
		bufferIDs, err := query.ReachAny(ctx, s.Store, sub.ID, funcutil.Map(adds, nodeID), cpg.PDG,
			throughFramePointer)
		if err != nil {
			return err
		}
		offsets := map[int64]int64{}
		for _, id := range bufferIDs {
			offsets[id] = query.ConstInto(s.Store, id, positive).Value()
		}
		layout := NewFrameLayout(frameSize, funcutil.Map(bufferIDs, func(id int64) int64 { return offsets[id] }))
		s.Logger.Debugf("stack frame of %s: %d bytes, %s", fn.Name, frameSize, layout)

		for _, r := range reads {
			locations := map[int64]bool{}
			for _, id := range bufferIDs {
				ok, err := query.Reach(ctx, s.Store, id, r.call.ID, cpg.PDG, throughFramePointer)
				if err != nil {
					return err
				}
				if ok {
					locations[offsets[id]] = true
				}
			}
			if len(locations) == 0 {
				locations[0] = true
			}
			for _, loc := range funcutil.SetToOrderedSlice(locations) {
				size, ok := layout[loc]
				if !ok {
					s.Logger.Warnf("skipping buffer @%d of %s in %s: not in the frame layout %s", loc, r.call,
						fn.Name, layout)
					continue
				}
				if r.size >= size {
					rows = append(rows, StaticOverflowRow{
						Function:       fn.Name,
						BufferLocation: loc,
						ExpectedSize:   size,
						ReadSize:       r.size,
					})
				}
			}
		}
		return nil
	})
	return rows, err
}
