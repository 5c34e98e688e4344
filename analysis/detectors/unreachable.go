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

// instructions that may legitimately have no predecessor in the control flow
var unreachableExempt = map[string]bool{
	cpg.InstReturn:      true,
	cpg.InstBlock:       true,
	cpg.InstLoop:        true,
	cpg.InstUnreachable: true,
}

// UnreachableCode reports the functions that contain an instruction with no predecessor in the control flow.
// Functions without any control-flow edge (imports, or graphs exported without a CFG) are not reported.
type UnreachableCode struct{}

// Name returns unreachable-code
func (UnreachableCode) Name() string { return "unreachable-code" }

// Header returns function
func (UnreachableCode) Header() []string { return []string{"function"} }

// Run runs the detector
func (UnreachableCode) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	err := forEachFunction(s, func(fn *cpg.Node) error {
		body, err := query.Subtree(ctx, s.Store, fn.ID)
		if err != nil {
			return err
		}
		hasCFG := funcutil.Exists(body, func(n *cpg.Node) bool {
			return len(s.Store.OutEdges(n.ID, cpg.CFG)) > 0 || len(s.Store.InEdges(n.ID, cpg.CFG)) > 0
		})
		if !hasCFG {
			return nil
		}
		unreachable := funcutil.Filter(body, func(n *cpg.Node) bool {
			return n.Kind == cpg.Instruction && !unreachableExempt[n.InstType] &&
				len(s.Store.InEdges(n.ID, cpg.CFG)) == 0
		})
		if len(unreachable) > 0 {
			s.Logger.Debugf("%s has %d unreachable instructions, first %s", fn.Name, len(unreachable), unreachable[0])
			rows = append(rows, FunctionRow{Function: fn.Name})
		}
		return nil
	})
	return rows, err
}
