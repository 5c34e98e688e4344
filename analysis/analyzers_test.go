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

package analysis

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/analysis/detectors"
	"github.com/darkmacheken/wasmati/analysis/query"
	"github.com/darkmacheken/wasmati/analysis/telemetry"
	"github.com/darkmacheken/wasmati/internal/analysistest"
	"github.com/google/go-cmp/cmp"
)

func testProgram(t *testing.T) *cpg.Graph {
	p := analysistest.NewProgram(t)
	f := p.Function("$f")
	f.Call("$gets", f.LocalGet("buf"))
	f.Call("$strcpy", f.LocalGet("dst"), f.LocalGet("buf"))
	return p.Graph()
}

func testParams(t *testing.T, g cpg.Store, names ...string) RunParams {
	cfg := config.NewDefault()
	cfg.NumRoutines = 2
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	return RunParams{Store: g, Config: cfg, Logger: logger, Detectors: names}
}

func TestRunDetectors(t *testing.T) {
	params := testParams(t, testProgram(t), "unreachable-code", "dangerous-functions")
	params.Metrics = telemetry.NewMetrics()
	run, err := RunDetectors(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.RunID == "" {
		t.Errorf("expected a run id")
	}
	names := make([]string, len(run.Results))
	for i, r := range run.Results {
		names[i] = r.Name
	}
	if diff := cmp.Diff([]string{"dangerous-functions", "unreachable-code"}, names); diff != "" {
		t.Errorf("results are not in the order of the detectors (-want +got):\n%s", diff)
	}
	dangerous := run.Results[0]
	want := []detectors.Row{
		detectors.CallRow{Caller: "$gets", Function: "$f"},
		detectors.CallRow{Caller: "$strcpy", Function: "$f"},
	}
	if diff := cmp.Diff(want, dangerous.Rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	if dangerous.Truncated || dangerous.Err != nil {
		t.Errorf("the detector should have completed, got truncated=%v err=%v", dangerous.Truncated, dangerous.Err)
	}
	if len(run.Failed()) != 0 {
		t.Errorf("expected no failures")
	}
	families, err := params.Metrics.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() != "wasmati_detector_findings_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if m.GetLabel()[0].GetValue() == "dangerous-functions" && m.GetCounter().GetValue() == 2 {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("expected 2 findings recorded for dangerous-functions")
	}
}

func TestRunDetectorsDefaultsToConfig(t *testing.T) {
	params := testParams(t, testProgram(t))
	params.Config.Detectors = []string{"format-strings"}
	run, err := RunDetectors(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Results) != 1 || run.Results[0].Name != "format-strings" {
		t.Errorf("expected only the configured detector to run, got %v", run.Results)
	}

	params.Config.Detectors = nil
	run, err = RunDetectors(context.Background(), params)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Results) != len(detectors.All()) {
		t.Errorf("expected all %d detectors to run, got %d", len(detectors.All()), len(run.Results))
	}
}

func TestRunDetectorsUnknown(t *testing.T) {
	_, err := RunDetectors(context.Background(), testParams(t, testProgram(t), "double-free", "heap-spray"))
	if err == nil || !strings.Contains(err.Error(), "heap-spray") {
		t.Errorf("expected an error naming the unknown detector, got %v", err)
	}
	if _, err := RunDetectors(context.Background(), RunParams{}); err == nil {
		t.Errorf("expected an error without a graph")
	}
}

func TestRunDetectorsExpiredContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	params := testParams(t, testProgram(t), "dangerous-functions", "double-free")
	run, err := RunDetectors(ctx, params)
	if err != nil {
		t.Fatalf("an expired context should not fail the run, got %v", err)
	}
	for _, res := range run.Results {
		if !res.Truncated {
			t.Errorf("%s should be truncated", res.Name)
		}
		if res.Err != nil {
			t.Errorf("%s should not have failed: %v", res.Name, res.Err)
		}
	}
}

type failingDetector struct{}

func (failingDetector) Name() string     { return "failing" }
func (failingDetector) Header() []string { return []string{"x"} }
func (failingDetector) Run(context.Context, *detectors.State) ([]detectors.Row, error) {
	return nil, errors.New("boom")
}

func TestRunDetectorFailure(t *testing.T) {
	params := testParams(t, testProgram(t))
	s := &detectors.State{Store: params.Store, Config: params.Config, Logger: params.Logger}
	res := runDetector(context.Background(), s, failingDetector{}, 0)
	if res.Err == nil || res.Truncated {
		t.Errorf("expected a failure, got %+v", res)
	}
	if errors.Is(res.Err, query.ErrInconclusive) {
		t.Errorf("a failure is not inconclusive")
	}
}
