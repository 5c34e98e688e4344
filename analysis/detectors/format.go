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
)

// FormatStrings reports the calls to printf-like functions whose format argument is not a constant, i.e. the
// argument at the position given by the format-string map of the config has no Const dependency into the call.
// Calls that do not have an argument at that position are not reported.
type FormatStrings struct{}

// Name returns format-strings
func (FormatStrings) Name() string { return "format-strings" }

// Header returns caller, function
func (FormatStrings) Header() []string { return callHeader }

// Run runs the detector
func (FormatStrings) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	labels := map[string]bool{}
	for name := range s.Config.FormatString {
		labels[name] = true
	}
	err := forEachFunction(s, func(fn *cpg.Node) error {
		found, err := callsIn(ctx, s, fn, labels)
		if err != nil {
			return err
		}
		for _, c := range found {
			format, ok := query.Child(s.Store, c.ID, s.Config.FormatString[c.Label])
			if !ok {
				continue
			}
			constant := query.HasEdgeInto(s.Store, c.ID, cpg.PDG, func(e *cpg.Edge) bool {
				return e.Src == format.ID && e.PDGType == cpg.Const
			})
			if !constant {
				rows = append(rows, CallRow{Caller: c.Label, Function: fn.Name})
			}
		}
		return nil
	})
	return rows, err
}
