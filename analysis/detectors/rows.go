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
	"encoding/json"
	"strconv"
	"strings"
)

// CallRow reports a call (the caller column is the label of the called function) in a function
type CallRow struct {
	Caller   string `json:"caller"`
	Function string `json:"function"`
}

var callHeader = []string{"caller", "function"}

// Record returns caller, function
func (r CallRow) Record() []string {
	return []string{r.Caller, r.Function}
}

// MallocOverflowRow reports a read into a heap buffer
type MallocOverflowRow struct {
	Function     string `json:"function"`
	ExpectedSize int64  `json:"expected_size"`
	ReadSize     int64  `json:"read_size"`
}

// Record returns function, expected_size, read_size
func (r MallocOverflowRow) Record() []string {
	return []string{r.Function, itoa(r.ExpectedSize), itoa(r.ReadSize)}
}

// StaticOverflowRow reports a read into a buffer of the stack frame. BufferLocation is the offset of the buffer in
// the frame.
type StaticOverflowRow struct {
	Function       string `json:"function"`
	BufferLocation int64  `json:"buffer_location"`
	ExpectedSize   int64  `json:"expected_size"`
	ReadSize       int64  `json:"read_size"`
}

// Location returns the buffer location in the "@offset" notation
func (r StaticOverflowRow) Location() string {
	return "@" + itoa(r.BufferLocation)
}

// Record returns function, buffer_location, expected_size, read_size
func (r StaticOverflowRow) Record() []string {
	return []string{r.Function, r.Location(), itoa(r.ExpectedSize), itoa(r.ReadSize)}
}

// MarshalJSON writes the buffer location in the "@offset" notation of the CSV record
func (r StaticOverflowRow) MarshalJSON() ([]byte, error) {
	type row StaticOverflowRow
	return json.Marshal(struct {
		row
		BufferLocation string `json:"buffer_location"`
	}{row: row(r), BufferLocation: r.Location()})
}

// LoopRow reports a loop that indexes a buffer with a variable that no exit condition of the loop compares
type LoopRow struct {
	Function string `json:"function"`
	Loop     string `json:"loop"`
	Index    string `json:"index"`
}

// Record returns function, loop, index
func (r LoopRow) Record() []string {
	return []string{r.Function, r.Loop, r.Index}
}

// ScanfLoopRow reports a loop that reads into a buffer with a scanf-like function until the buffer holds the
// sentinel value
type ScanfLoopRow struct {
	Function string `json:"function"`
	Loop     string `json:"loop"`
	Buffer   string `json:"buffer"`
	Sentinel int64  `json:"sentinel"`
}

// Record returns function, loop, buffer, sentinel
func (r ScanfLoopRow) Record() []string {
	return []string{r.Function, r.Loop, r.Buffer, itoa(r.Sentinel)}
}

// TaintedCopyRow reports a copy into a static buffer whose source depends on the parameter Variable of Function,
// which is tainted by the parameter Origin of OriginFunction
type TaintedCopyRow struct {
	Function       string `json:"function"`
	Call           string `json:"call"`
	Variable       string `json:"variable"`
	Origin         string `json:"origin"`
	OriginFunction string `json:"origin_function"`
}

// Record returns function, call, variable, origin, origin_function
func (r TaintedCopyRow) Record() []string {
	return []string{r.Function, r.Call, r.Variable, r.Origin, r.OriginFunction}
}

// TaintRow reports a flow from a source to a sink in a function
type TaintRow struct {
	Source   string `json:"source"`
	Sink     string `json:"sink"`
	Function string `json:"function"`
}

var taintHeader = []string{"source", "sink", "function"}

// Record returns source, sink, function
func (r TaintRow) Record() []string {
	return []string{r.Source, r.Sink, r.Function}
}

// TaintedCallRow reports a sink called by a function with arguments that depend on one of its tainted parameters.
// Positions are the argument positions of the sink that are tainted; they are not part of the CSV record.
type TaintedCallRow struct {
	TaintedFunction string `json:"taintedFunction"`
	TaintedParam    int    `json:"taintedParam"`
	Sink            string `json:"sink"`
	Positions       []int  `json:"positions,omitempty"`
}

// Record returns taintedFunction, taintedParam, sink
func (r TaintedCallRow) Record() []string {
	return []string{r.TaintedFunction, strconv.Itoa(r.TaintedParam), r.Sink}
}

// PositionsString returns the positions separated by semicolons
func (r TaintedCallRow) PositionsString() string {
	s := make([]string, len(r.Positions))
	for i, p := range r.Positions {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ";")
}

// FunctionRow reports a function
type FunctionRow struct {
	Function string `json:"function"`
}

// Record returns function
func (r FunctionRow) Record() []string {
	return []string{r.Function}
}

func itoa(x int64) string {
	return strconv.FormatInt(x, 10)
}
