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

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/darkmacheken/wasmati/analysis"
	"github.com/darkmacheken/wasmati/analysis/detectors"
	"github.com/google/go-cmp/cmp"
)

func testRun() *analysis.RunResult {
	return &analysis.RunResult{
		RunID: "run-1",
		Results: []analysis.DetectorResult{
			{
				Name:   "double-free",
				Header: []string{"caller", "function"},
				Rows: []detectors.Row{
					detectors.CallRow{Caller: "$free", Function: "$f"},
				},
				Duration: 2 * time.Second,
			},
			{
				Name:   "static-buffer-overflow",
				Header: []string{"function", "buffer_location", "expected_size", "read_size"},
				Rows: []detectors.Row{
					detectors.StaticOverflowRow{Function: "$g", BufferLocation: 32, ExpectedSize: 64, ReadSize: 64},
				},
				Truncated: true,
			},
			{
				Name:   "tainted-calls",
				Header: []string{"taintedFunction", "taintedParam", "sink"},
				Err:    errors.New("boom"),
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != JSON {
		t.Errorf("expected JSON, got %q %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Errorf("expected an error for an unknown format")
	}
}

func TestWriteCSVStream(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(testRun(), Options{Format: CSV, Out: &buf}); err != nil {
		t.Fatal(err)
	}
	want := "# double-free\n" +
		"caller,function\n" +
		"$free,$f\n" +
		"# static-buffer-overflow (truncated)\n" +
		"function,buffer_location,expected_size,read_size\n" +
		"$g,@32,64,64\n" +
		"# tainted-calls\n" +
		"taintedFunction,taintedParam,sink\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("csv output (-want +got):\n%s", diff)
	}
}

func TestWriteCSVDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	if err := Write(testRun(), Options{Format: CSV, Dir: dir}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "double-free.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("caller,function\n$free,$f\n", string(b)); diff != "" {
		t.Errorf("double-free.csv (-want +got):\n%s", diff)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("expected one file per detector, got %d", len(entries))
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(testRun(), Options{Format: JSON, Out: &buf, Graph: "g.json", Fingerprint: "abcd"}); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		RunID       string `json:"run_id"`
		Version     string `json:"version"`
		Fingerprint string `json:"fingerprint"`
		Detectors   []struct {
			Name      string           `json:"name"`
			Rows      []map[string]any `json:"rows"`
			Truncated bool             `json:"truncated"`
			Error     string           `json:"error"`
			Seconds   float64          `json:"seconds"`
		} `json:"detectors"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON report: %v", err)
	}
	if doc.RunID != "run-1" || doc.Version != analysis.Version || doc.Fingerprint != "abcd" {
		t.Errorf("unexpected run identity %+v", doc)
	}
	if len(doc.Detectors) != 3 {
		t.Fatalf("expected 3 detectors, got %d", len(doc.Detectors))
	}
	df := doc.Detectors[0]
	if df.Seconds != 2 || len(df.Rows) != 1 || df.Rows[0]["function"] != "$f" {
		t.Errorf("unexpected double-free report %+v", df)
	}
	if !doc.Detectors[1].Truncated {
		t.Errorf("static-buffer-overflow should be truncated")
	}
	if loc := doc.Detectors[1].Rows[0]["buffer_location"]; loc != "@32" {
		t.Errorf("buffer_location should be written as in the CSV report, got %v", loc)
	}
	tc := doc.Detectors[2]
	if tc.Error != "boom" || tc.Rows == nil || len(tc.Rows) != 0 {
		t.Errorf("unexpected tainted-calls report %+v", tc)
	}
}

func TestWriteJSONDir(t *testing.T) {
	dir := t.TempDir()
	if err := Write(testRun(), Options{Format: JSON, Dir: dir}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "report-run-1.json")); err != nil {
		t.Errorf("expected the report file: %v", err)
	}
}
