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
	"github.com/darkmacheken/wasmati/internal/funcutil"
)

// DangerousFunctions reports every call site of the functions in the dangerous-functions list of the config.
// A function calling gets twice has two rows.
type DangerousFunctions struct{}

// Name returns dangerous-functions
func (DangerousFunctions) Name() string { return "dangerous-functions" }

// Header returns caller, function
func (DangerousFunctions) Header() []string { return callHeader }

// Run runs the detector
func (DangerousFunctions) Run(ctx context.Context, s *State) ([]Row, error) {
	var rows []Row
	dangerous := funcutil.Set(s.Config.DangerousFunctions)
	err := forEachFunction(s, func(fn *cpg.Node) error {
		found, err := callsIn(ctx, s, fn, dangerous)
		for _, c := range found {
			s.Logger.Debugf("dangerous call %s in %s", c, fn.Name)
			rows = append(rows, CallRow{Caller: c.Label, Function: fn.Name})
		}
		return err
	})
	return rows, err
}
