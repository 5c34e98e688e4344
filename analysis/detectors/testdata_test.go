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

package detectors_test

import (
	"embed"
	"testing"

	"github.com/darkmacheken/wasmati/analysis/detectors"
	"github.com/darkmacheken/wasmati/internal/analysistest"
)

//go:embed testdata
var testdata embed.FS

func TestCustomReleaseFunctions(t *testing.T) {
	g, cfg := analysistest.LoadTest(t, testdata, "testdata/custom-release")

	d := detectors.DoubleFree{}
	want := []detectors.Row{detectors.CallRow{Caller: "$xfree", Function: "$f"}}
	checkRows(t, d, want, run(t, d, g, cfg))

	// the default control-flow pair does not match the functions of the graph
	cfg.ControlFlow = nil
	checkRows(t, d, nil, run(t, d, g, cfg))
}
