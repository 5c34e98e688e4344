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
	"github.com/darkmacheken/wasmati/analysis/taint"
	"github.com/darkmacheken/wasmati/internal/funcutil"
)

// TaintedDirect reports the values returned by a source that flow into a sink of the same function. The sources and
// sinks are the ones of the config, extended with the imported functions as set by import-as-sources and
// import-as-sinks; white-listed functions are never sinks.
// There is one row per (source call, sink call) pair.
type TaintedDirect struct{}

// Name returns tainted-direct
func (TaintedDirect) Name() string { return "tainted-direct" }

// Header returns source, sink, function
func (TaintedDirect) Header() []string { return taintHeader }

// Run runs the detector
func (TaintedDirect) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	sources := taint.Sources(s.Store, s.Config)
	sinks := taint.Sinks(s.Store, s.Config)
	err := forEachFunction(s, func(fn *cpg.Node) error {
		srcs, err := callsIn(ctx, s, fn, sources)
		if err != nil || len(srcs) == 0 {
			return err
		}
		snks, err := callsIn(ctx, s, fn, sinks)
		if err != nil || len(snks) == 0 {
			return err
		}
		for _, src := range srcs {
			reached, err := query.ReachAny(ctx, s.Store, src.ID, funcutil.Map(snks, nodeID), cpg.PDG,
				query.PDGEdge(cpg.FunctionDep, src.Label))
			if err != nil {
				return err
			}
			into := funcutil.Set(reached)
			for _, sink := range snks {
				if into[sink.ID] {
					rows = append(rows, TaintRow{Source: src.Label, Sink: sink.Label, Function: fn.Name})
				}
			}
		}
		return nil
	})
	return rows, err
}

// TaintedIndirect reports the values returned by a source that are used as the target of an indirect call, i.e.
// the call to the source is the last argument of the indirect call and its value flows into it. The sources are the
// same as the ones of TaintedDirect.
// There is one row per (source call, indirect call) pair.
type TaintedIndirect struct{}

// Name returns tainted-indirect
func (TaintedIndirect) Name() string { return "tainted-indirect" }

// Header returns source, sink, function
func (TaintedIndirect) Header() []string { return taintHeader }

// Run runs the detector
func (TaintedIndirect) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	sources := taint.Sources(s.Store, s.Config)
	err := forEachFunction(s, func(fn *cpg.Node) error {
		srcs, err := callsIn(ctx, s, fn, sources)
		if err != nil {
			return err
		}
		for _, src := range srcs {
			ci, ok := query.Parent(s.Store, src.ID)
			if !ok || !ci.IsInstruction(cpg.InstCallIndirect) {
				continue
			}
			if !query.HasEdgeInto(s.Store, src.ID, cpg.AST, query.ASTArg(ci.NArgs-1)) {
				continue
			}
			ok, err := query.Reach(ctx, s.Store, src.ID, ci.ID, cpg.PDG, query.PDGEdge(cpg.FunctionDep, src.Label))
			if err != nil {
				return err
			}
			if ok {
				rows = append(rows, TaintRow{Source: src.Label, Sink: ci.Label, Function: fn.Name})
			}
		}
		return nil
	})
	return rows, err
}

// TaintedCalls reports the sinks called with arguments that depend on tainted parameters, following the taint
// interprocedurally from the tainted parameters of the config. There is one row per (function, parameter, sink)
// triple.
type TaintedCalls struct{}

// Name returns tainted-calls
func (TaintedCalls) Name() string { return "tainted-calls" }

// Header returns taintedFunction, taintedParam, sink
func (TaintedCalls) Header() []string {
	return []string{"taintedFunction", "taintedParam", "sink"}
}

// Run runs the detector
func (TaintedCalls) Run(ctx context.Context, s *State) ([]Row, error) {
	res, err := taint.Propagate(ctx, s.Store, s.Config, s.Logger)
	if res == nil {
		return nil, err
	}
	var rows []Row
	for _, f := range res.Findings {
		row := TaintedCallRow{TaintedFunction: f.Function, TaintedParam: f.Param, Sink: f.Sink, Positions: f.Positions}
		s.Logger.Debugf("%s tainted at positions %s", row.Sink, row.PositionsString())
		rows = append(rows, row)
	}
	s.Metrics.SetFixpointRounds(res.Rounds)
	s.Logger.Debugf("taint propagation: %d rounds, %d functions visited", res.Rounds, len(res.Visited))
	return rows, err
}
